// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the location catalog over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/waterpoint/waterpoint/location"
	"github.com/waterpoint/waterpoint/proximity"
	"github.com/waterpoint/waterpoint/spatial"
)

const maxLimit = 5000

type Server struct {
	repo   location.Repository
	logger *slog.Logger
}

func NewServer(repo location.Repository, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{repo: repo, logger: logger}
}

// Router returns the engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/health", s.health)
	r.GET("/api/markers", s.listMarkers)
	r.GET("/api/locations", s.listLocations)
	r.POST("/api/locations", s.createLocation)
	r.GET("/api/locations/nearest", s.nearest)
	r.GET("/api/locations/nearby", s.nearby)
	r.GET("/api/locations/geojson", s.catalogGeoJSON)

	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("serving location API", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down location API")

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}

		return nil
	}
}

// fail answers with the status matching err.
func (s *Server) fail(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, location.ErrInvalid):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case location.IsNotFoundError(err):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", "method", ctx.Request.Method, "path", ctx.FullPath(), "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listMarkers(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, location.Markers())
}

// filter reads the common catalog query parameters. Without a limit the whole
// catalog is returned, which is what map clients fetch.
func filter(ctx *gin.Context) (location.Filter, error) {
	f := location.Filter{
		Query: ctx.Query("q"),
		H3:    ctx.Query("h3"),
	}

	if c := ctx.Query("category"); c != "" {
		category, err := location.ParseCategory(c)
		if err != nil {
			return f, err
		}

		f.Category = category
	}

	if l := ctx.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 1 {
			return f, fmt.Errorf("%w: limit must be a positive integer", location.ErrInvalid)
		}

		f.Limit = min(limit, maxLimit)
	}

	if o := ctx.Query("offset"); o != "" {
		offset, err := strconv.Atoi(o)
		if err != nil || offset < 0 {
			return f, fmt.Errorf("%w: offset must be a non negative integer", location.ErrInvalid)
		}

		f.Offset = offset
	}

	return f, nil
}

func (s *Server) listLocations(ctx *gin.Context) {
	f, err := filter(ctx)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	locs, err := s.repo.List(ctx.Request.Context(), f)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, locs)
}

func (s *Server) createLocation(ctx *gin.Context) {
	var loc location.Location
	if err := ctx.BindJSON(&loc); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	// Identity and timestamps are assigned here.
	loc.ID = ""
	loc.CreatedAt = time.Time{}

	if err := location.ValidateSubmission(&loc); err != nil {
		s.fail(ctx, err)

		return
	}

	if err := s.repo.Save(ctx.Request.Context(), &loc); err != nil {
		s.fail(ctx, err)

		return
	}

	s.logger.Info("location added", "id", loc.ID, "name", loc.Name, "category", loc.Category)
	ctx.JSON(http.StatusCreated, &loc)
}

// queryPoint reads the lat and lng query parameters.
func queryPoint(ctx *gin.Context) (spatial.Point, error) {
	lat, err := strconv.ParseFloat(ctx.Query("lat"), 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("%w: lat must be a number", location.ErrInvalid)
	}

	lng, err := strconv.ParseFloat(ctx.Query("lng"), 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("%w: lng must be a number", location.ErrInvalid)
	}

	p := spatial.Point{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return spatial.Point{}, fmt.Errorf("%w: %w", location.ErrInvalid, err)
	}

	return p, nil
}

// candidates loads the whole catalog, narrowed by category when asked.
func (s *Server) candidates(ctx *gin.Context) ([]*location.Location, error) {
	f := location.Filter{}

	if c := ctx.Query("category"); c != "" {
		category, err := location.ParseCategory(c)
		if err != nil {
			return nil, err
		}

		f.Category = category
	}

	return s.repo.List(ctx.Request.Context(), f)
}

type nearestResponse struct {
	Nearest    *location.Location `json:"nearest"`
	DistanceKm float64            `json:"distance_km"`
	Label      string             `json:"label"`
}

func (s *Server) nearest(ctx *gin.Context) {
	query, err := queryPoint(ctx)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	locs, err := s.candidates(ctx)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	res := proximity.Nearest(query, locs)

	if ctx.Query("format") == "geojson" {
		ctx.JSON(http.StatusOK, nearestCollection(query, res))

		return
	}

	ctx.JSON(http.StatusOK, nearestResponse{
		Nearest:    res.Nearest,
		DistanceKm: res.DistanceKm,
		Label:      res.Label(),
	})
}

type nearbyHit struct {
	*location.Location
	DistanceKm float64 `json:"distance_km"`
}

func (s *Server) nearby(ctx *gin.Context) {
	query, err := queryPoint(ctx)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	radius, err := strconv.ParseFloat(ctx.DefaultQuery("radius_km", "1"), 64)
	if err != nil || radius <= 0 {
		s.fail(ctx, fmt.Errorf("%w: radius_km must be a positive number", location.ErrInvalid))

		return
	}

	locs, err := s.candidates(ctx)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	hits := proximity.NewIndex(locs).Within(query, radius)

	out := make([]nearbyHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, nearbyHit{Location: h.Location, DistanceKm: h.DistanceKm})
	}

	ctx.JSON(http.StatusOK, out)
}

func (s *Server) catalogGeoJSON(ctx *gin.Context) {
	f, err := filter(ctx)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	locs, err := s.repo.List(ctx.Request.Context(), f)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, catalogCollection(locs))
}
