// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/waterpoint/waterpoint/location"
	"github.com/waterpoint/waterpoint/utils/textutils"
)

var importOptions struct {
	from string
	kml  string
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the local catalog",
	Long: `Replaces the local catalog with the locations of a remote location API
(--from) or of a Google My Maps KML export (--kml). Placemark folders map to
categories; placemarks without a name or with invalid coordinates are skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		locs, err := readImport(ctx)
		if err != nil {
			return err
		}

		repo, closeDB, err := openRepository(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		imported, skipped, err := importLocations(ctx, repo, locs)
		if err != nil {
			return err
		}

		logger.Info("import complete", "imported", imported, "skipped", skipped)
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s locations, skipped %s.\n",
			textutils.FormatInt(int64(imported)), textutils.FormatInt(int64(skipped)))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importOptions.from, "from", "", "Base URL of a location API to copy")
	importCmd.Flags().StringVar(&importOptions.kml, "kml", "", "KML file to load")
	importCmd.MarkFlagsMutuallyExclusive("from", "kml")
	importCmd.MarkFlagsOneRequired("from", "kml")
}

func readImport(ctx context.Context) ([]*location.Location, error) {
	if importOptions.kml != "" {
		f, err := os.Open(importOptions.kml)
		if err != nil {
			return nil, fmt.Errorf("opening kml: %w", err)
		}
		defer f.Close()

		locs, err := location.ParseKML(f)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", importOptions.kml, err)
		}

		return locs, nil
	}

	client, err := location.NewClient(location.ClientOptions{
		BaseURL:   importOptions.from,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	locs, err := client.FetchLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", importOptions.from, err)
	}

	return locs, nil
}

// importLocations replaces the catalog with the usable entries of locs.
func importLocations(ctx context.Context, repo location.Repository, locs []*location.Location) (int, int, error) {
	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(len(locs),
			progressbar.OptionSetDescription("Checking locations"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	keep := make([]*location.Location, 0, len(locs))
	seen := make(map[string]bool, len(locs))
	skipped := 0

	for _, loc := range locs {
		if bar != nil {
			if err := bar.Add(1); err != nil {
				return 0, 0, fmt.Errorf("updating progress bar: %w", err)
			}
		}

		reason := unusable(loc)
		if reason == "" && loc.ID != "" && seen[loc.ID] {
			reason = fmt.Sprintf("%q: duplicate id %s", loc.Name, loc.ID)
		}

		if reason != "" {
			skipped++

			if bar == nil {
				logger.Warn("skipping location", "reason", reason)
			}

			continue
		}

		if loc.Category == "" {
			loc.Category = location.UserInput
		} else {
			loc.Category, _ = location.ParseCategory(string(loc.Category))
		}

		if loc.ID != "" {
			seen[loc.ID] = true
		}

		keep = append(keep, loc)
	}

	if err := repo.ReplaceAll(ctx, keep); err != nil {
		return 0, 0, fmt.Errorf("replacing catalog: %w", err)
	}

	return len(keep), skipped, nil
}

func unusable(loc *location.Location) string {
	switch {
	case loc == nil:
		return "empty entry"
	case loc.Name == "":
		return "missing name"
	case loc.Point.Validate() != nil:
		return fmt.Sprintf("%q: %v", loc.Name, loc.Point.Validate())
	case loc.Category != "":
		if _, err := location.ParseCategory(string(loc.Category)); err != nil {
			return fmt.Sprintf("%q: %v", loc.Name, err)
		}

		return ""
	default:
		return ""
	}
}
