// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the waterpoint configuration from defaults, an optional
// YAML file, a .env file and WATERPOINT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/waterpoint/waterpoint/sheet"
)

// EnvPrefix prefixes every environment variable, e.g. WATERPOINT_STORE_DSN.
const EnvPrefix = "WATERPOINT"

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Store    StoreConfig
	API      APIConfig
	Position PositionConfig
	Sheet    SheetConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Addr    string
	GinMode string // debug, release, test
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// StoreConfig selects the database.
type StoreConfig struct {
	Driver string // duckdb, postgres
	DSN    string // empty means an in-memory duckdb
}

// APIConfig points the client at a remote location API.
type APIConfig struct {
	BaseURL   string
	Timeout   time.Duration // zero means no timeout
	Trace     bool
	UserAgent string
}

// PositionConfig is the fixed position used when the device has none.
type PositionConfig struct {
	Lat *float64
	Lng *float64
}

// SheetConfig tunes the bottom sheet of the map view.
type SheetConfig struct {
	HeightRatio float64
	Transition  time.Duration
}

var defaults = map[string]any{
	"server.addr":       ":5000",
	"server.ginmode":    "release",
	"log.level":         "info",
	"log.format":        "text",
	"store.driver":      "duckdb",
	"store.dsn":         "waterpoint.db",
	"api.baseurl":       "",
	"api.timeout":       time.Duration(0),
	"api.trace":         false,
	"api.useragent":     "waterpoint/dev",
	"sheet.heightratio": sheet.DefaultHeightRatio,
	"sheet.transition":  300 * time.Millisecond,
}

// keys without a default still need binding so that the environment can set them.
var envOnly = []string{"position.lat", "position.lng"}

// New returns a viper instance with the defaults and environment bindings in
// place. Commands bind their flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, k := range envOnly {
		// BindEnv only fails without a key.
		_ = v.BindEnv(k)
	}

	return v
}

// Options tells Load where to look for files.
type Options struct {
	// ConfigFile is an explicit YAML file. When empty waterpoint.yaml is
	// searched in ., ./config and $HOME/.waterpoint, and is optional.
	ConfigFile string
	// EnvFile is loaded into the environment when it exists. Variables already
	// set win.
	EnvFile string
}

// Load reads configuration from file and environment variables
func Load(v *viper.Viper, opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", opts.EnvFile, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("waterpoint")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.waterpoint")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values that have a closed set of options.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case "duckdb", "postgres":
	default:
		errs = append(errs, fmt.Errorf("store.driver must be duckdb or postgres, got %q", c.Store.Driver))
	}

	if c.Store.Driver == "postgres" && c.Store.DSN == "" {
		errs = append(errs, errors.New("store.dsn is required for postgres"))
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	if c.Sheet.HeightRatio <= 0 || c.Sheet.HeightRatio > 1 {
		errs = append(errs, fmt.Errorf("sheet.heightratio must be in (0, 1], got %v", c.Sheet.HeightRatio))
	}

	if c.Sheet.Transition < 0 {
		errs = append(errs, fmt.Errorf("sheet.transition can't be negative, got %v", c.Sheet.Transition))
	}

	if c.API.Timeout < 0 {
		errs = append(errs, fmt.Errorf("api.timeout can't be negative, got %v", c.API.Timeout))
	}

	if (c.Position.Lat == nil) != (c.Position.Lng == nil) {
		errs = append(errs, errors.New("position.lat and position.lng must be set together"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
}

// NewLogger creates a new slog.Logger writing to w based on the configuration
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch strings.ToLower(c.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default: // "text" or anything else
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
