// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/waterpoint/waterpoint/mapview"
)

var mapOptions struct {
	remote   string
	lat, lng float64
	logFile  string
}

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Open the interactive map",
	Long: `Shows the catalog on a terminal map with the nearest location to your
position. Press + (or click it) to open the form and add a location at your
position; drag the sheet handle to open or dismiss it. q quits.

The position comes from --lat/--lng or position.lat/position.lng in the
configuration. Without one, nearest search and submissions are unavailable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := applyPosition(cmd, &mapOptions.lat, &mapOptions.lng); err != nil {
			return err
		}

		if mapOptions.remote != "" {
			cfg.API.BaseURL = mapOptions.remote
		}

		// The terminal belongs to the view, logs go elsewhere.
		var logOut io.Writer = io.Discard
		if mapOptions.logFile != "" {
			f, err := os.OpenFile(mapOptions.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
			if err != nil {
				return fmt.Errorf("opening log file: %w", err)
			}
			defer f.Close()

			logOut = f
		}

		viewLogger := cfg.NewLogger(logOut)
		logger = viewLogger

		cat, err := openCatalog(ctx, cfg)
		if err != nil {
			return err
		}
		defer cat.close()

		session := mapview.NewSession(cat, cat, mapview.NewStaticPosition(cfg.Position.Lat, cfg.Position.Lng), viewLogger)

		return mapview.Run(ctx, session, mapview.Options{
			HeightRatio: cfg.Sheet.HeightRatio,
			Transition:  cfg.Sheet.Transition,
			Logger:      viewLogger,
		})
	},
}

func init() {
	rootCmd.AddCommand(mapCmd)
	mapCmd.Flags().StringVar(&mapOptions.remote, "remote", "", "Base URL of a location API (default api.baseurl, else the local store)")
	mapCmd.Flags().Float64Var(&mapOptions.lat, "lat", 0, "Latitude of your position")
	mapCmd.Flags().Float64Var(&mapOptions.lng, "lng", 0, "Longitude of your position")
	mapCmd.Flags().StringVar(&mapOptions.logFile, "log-file", "", "Write logs to this file while the map is open")
}

// applyPosition overrides the configured position with the --lat/--lng flags.
func applyPosition(cmd *cobra.Command, lat, lng *float64) error {
	latSet, lngSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
	if latSet != lngSet {
		return errors.New("--lat and --lng must be given together")
	}

	if latSet {
		cfg.Position.Lat = lat
		cfg.Position.Lng = lng
	}

	return nil
}
