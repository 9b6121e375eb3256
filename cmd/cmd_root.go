// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/waterpoint/waterpoint/config"
	"github.com/waterpoint/waterpoint/location"
)

var rootCmd = &cobra.Command{
	Use:   "waterpoint",
	Short: "drinking water points on a map",
	Long: `
waterpoint keeps a catalog of drinking water points, serves it over HTTP and
shows the nearest one to your position on an interactive terminal map, where new
points can be reported.
`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var (
	Version = "dev"

	v      = config.New()
	cfg    *config.Config
	logger = slog.Default()

	rootOptions struct {
		configFile string
		envFile    string
	}
)

func Execute(version string) {
	Version = version
	v.SetDefault("api.useragent", "waterpoint/"+version)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootOptions.configFile, "config", "", "Configuration file (default waterpoint.yaml in ., ./config or $HOME/.waterpoint)")
	flags.StringVar(&rootOptions.envFile, "env-file", ".env", "Environment file loaded when present")
	flags.String("driver", "", "Database driver: duckdb or postgres")
	flags.String("db", "", "Database DSN; a duckdb file path or a postgres URL")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")

	bindFlag(rootCmd, "store.driver", "driver")
	bindFlag(rootCmd, "store.dsn", "db")
	bindFlag(rootCmd, "log.level", "log-level")
	bindFlag(rootCmd, "log.format", "log-format")
}

// bindFlag ties a configuration key to a persistent flag of c.
func bindFlag(c *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, c.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag, err))
	}
}

// bindLocalFlag ties a configuration key to a local flag of c.
func bindLocalFlag(c *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, c.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag, err))
	}
}

func loadConfig(_ *cobra.Command, _ []string) error {
	var err error

	cfg, err = config.Load(v, config.Options{
		ConfigFile: rootOptions.configFile,
		EnvFile:    rootOptions.envFile,
	})
	if err != nil {
		return err
	}

	logger = cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	return nil
}

// openRepository opens the configured store and makes sure the schema exists.
// The returned function closes the database.
func openRepository(ctx context.Context, c *config.Config) (location.Repository, func() error, error) {
	if c.Store.Driver == "duckdb" && c.Store.DSN != "" {
		if err := os.MkdirAll(filepath.Dir(c.Store.DSN), 0o750); err != nil {
			return nil, nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := location.Open(c.Store.Driver, c.Store.DSN)
	if err != nil {
		return nil, nil, err
	}

	repo := location.NewRepository(db)
	if err := repo.CreateSchema(ctx); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("store ready", "driver", c.Store.Driver, "dsn", c.Store.DSN)

	return repo, db.Close, nil
}

// newClient builds the location API client from the configuration.
func newClient(c *config.Config) (*location.Client, error) {
	opts := location.ClientOptions{
		BaseURL:   c.API.BaseURL,
		Timeout:   c.API.Timeout,
		UserAgent: c.API.UserAgent,
	}

	if c.API.Trace {
		opts.Trace = os.Stderr
	}

	return location.NewClient(opts)
}

// catalog is where commands read from and write to: the remote API when
// api.baseurl is set, the local store otherwise.
type catalog struct {
	location.Source
	location.Sink
	close func() error
}

func openCatalog(ctx context.Context, c *config.Config) (*catalog, error) {
	if c.API.BaseURL != "" {
		client, err := newClient(c)
		if err != nil {
			return nil, err
		}

		logger.Debug("using remote catalog", "url", c.API.BaseURL)

		return &catalog{Source: client, Sink: client, close: func() error { return nil }}, nil
	}

	repo, closeFn, err := openRepository(ctx, c)
	if err != nil {
		return nil, err
	}

	store := location.NewStore(repo)

	return &catalog{Source: store, Sink: store, close: closeFn}, nil
}
