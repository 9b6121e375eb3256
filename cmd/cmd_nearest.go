// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/waterpoint/waterpoint/location"
	"github.com/waterpoint/waterpoint/proximity"
	"github.com/waterpoint/waterpoint/spatial"
)

var nearestOptions struct {
	remote   string
	lat, lng float64
	category string
	within   float64
	json     bool
}

var nearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Print the nearest location to a position",
	Long: `Prints the nearest location to --lat/--lng (or position.lat/position.lng)
and its distance. With --within, every location inside that radius is listed
instead, nearest first.

$ waterpoint nearest --lat 1.3521 --lng 103.8198
Bishan Park fountain	Verified Form	Ground	0.42 km`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := applyPosition(cmd, &nearestOptions.lat, &nearestOptions.lng); err != nil {
			return err
		}

		if cfg.Position.Lat == nil {
			return errors.New("a position is required: use --lat and --lng")
		}

		query := spatial.Point{Lat: *cfg.Position.Lat, Lng: *cfg.Position.Lng}
		if err := query.Validate(); err != nil {
			return fmt.Errorf("invalid position: %w", err)
		}

		if nearestOptions.remote != "" {
			cfg.API.BaseURL = nearestOptions.remote
		}

		cat, err := openCatalog(ctx, cfg)
		if err != nil {
			return err
		}
		defer cat.close()

		return printNearest(ctx, cmd.OutOrStdout(), cat, query)
	},
}

func init() {
	rootCmd.AddCommand(nearestCmd)
	flags := nearestCmd.Flags()
	flags.StringVar(&nearestOptions.remote, "remote", "", "Base URL of a location API (default api.baseurl, else the local store)")
	flags.Float64Var(&nearestOptions.lat, "lat", 0, "Latitude of the position")
	flags.Float64Var(&nearestOptions.lng, "lng", 0, "Longitude of the position")
	flags.StringVar(&nearestOptions.category, "category", "", "Only consider this category")
	flags.Float64Var(&nearestOptions.within, "within", 0, "List every location within this many kilometers")
	flags.BoolVar(&nearestOptions.json, "json", false, "Print JSON")
}

func printNearest(ctx context.Context, w io.Writer, src location.Source, query spatial.Point) error {
	locs, err := src.FetchLocations(ctx)
	if err != nil {
		return fmt.Errorf("fetching locations: %w", err)
	}

	if nearestOptions.category != "" {
		category, err := location.ParseCategory(nearestOptions.category)
		if err != nil {
			return err
		}

		filtered := make([]*location.Location, 0, len(locs))
		for _, loc := range locs {
			if loc != nil && loc.Category == category {
				filtered = append(filtered, loc)
			}
		}

		locs = filtered
	}

	if nearestOptions.within > 0 {
		hits := proximity.NewIndex(locs).Within(query, nearestOptions.within)
		if nearestOptions.json {
			return json.NewEncoder(w).Encode(hits)
		}

		for _, h := range hits {
			printLocation(w, h.Location, h.DistanceKm)
		}

		return nil
	}

	res := proximity.Nearest(query, locs)
	if nearestOptions.json {
		return json.NewEncoder(w).Encode(struct {
			Nearest    *location.Location `json:"nearest"`
			DistanceKm float64            `json:"distance_km"`
			Label      string             `json:"label"`
		}{res.Nearest, res.DistanceKm, res.Label()})
	}

	if !res.Found() {
		fmt.Fprintln(w, "no locations")

		return nil
	}

	printLocation(w, res.Nearest, res.DistanceKm)

	return nil
}

func printLocation(w io.Writer, loc *location.Location, km float64) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%.2f km\n", loc.Name, loc.Category, loc.Level, km)
}
