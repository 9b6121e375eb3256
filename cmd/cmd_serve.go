// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/waterpoint/waterpoint/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the location API",
	Long: `Serves the location catalog over HTTP:

  GET  /api/locations            list (category, q, h3, limit, offset)
  POST /api/locations            add a location
  GET  /api/locations/nearest    nearest location to lat, lng
  GET  /api/locations/nearby     locations within radius_km of lat, lng
  GET  /api/locations/geojson    catalog as a GeoJSON FeatureCollection
  GET  /api/markers              marker style per category
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gin.SetMode(cfg.Server.GinMode)

		repo, closeDB, err := openRepository(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		count, err := repo.Count(ctx)
		if err != nil {
			return fmt.Errorf("counting locations: %w", err)
		}

		logger.Info("catalog loaded", "locations", count)

		return server.NewServer(repo, logger).Run(ctx, cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default :5000)")
	bindLocalFlag(serveCmd, "server.addr", "addr")
}
