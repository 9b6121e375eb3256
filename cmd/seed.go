// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/waterpoint/waterpoint/location"
	"github.com/waterpoint/waterpoint/utils/textutils"
)

//go:embed testdata/seed.json
var seedJSON []byte

var seedFile string

func newSeedCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "seed",
		Short: "Seeds the database with data from cmd/testdata/seed.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if cfg.Store.Driver == "duckdb" && cfg.Store.DSN != "" {
				// remove old db if it exists
				_ = os.Remove(cfg.Store.DSN)
				_ = os.Remove(cfg.Store.DSN + ".wal")
			}

			repo, closeDB, err := openRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			var r io.Reader = bytes.NewReader(seedJSON)
			if seedFile != "" {
				f, err := os.Open(seedFile)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", seedFile, err)
				}
				defer f.Close()

				r = f
			}

			n, err := seedDatabase(ctx, repo, r)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Database seeded with %s locations.\n", textutils.FormatInt(int64(n)))

			return nil
		},
	}

	c.Flags().StringVar(&seedFile, "file", "", "Seed from this JSON file instead of the bundled one")

	return c
}

func init() {
	rootCmd.AddCommand(newSeedCmd())
}

func seedDatabase(ctx context.Context, repo location.Repository, r io.Reader) (int, error) {
	var locs []*location.Location
	if err := json.NewDecoder(r).Decode(&locs); err != nil {
		return 0, fmt.Errorf("failed to unmarshal seed data: %w", err)
	}

	imported, skipped, err := importLocations(ctx, repo, locs)
	if err != nil {
		return 0, err
	}

	if skipped > 0 {
		return imported, fmt.Errorf("seed data has %d unusable locations", skipped)
	}

	return imported, nil
}
