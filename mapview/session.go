// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

// Package mapview is the interactive terminal map: it loads the catalog and
// the user position, shows the nearest water point and hosts the bottom sheet
// with the submission form.
package mapview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/waterpoint/waterpoint/location"
	"github.com/waterpoint/waterpoint/proximity"
	"github.com/waterpoint/waterpoint/spatial"
)

// Messages shown to the user after a submission.
const (
	MsgAdded         = "Location successfully added!"
	MsgAddFailed     = "Failed to add location."
	MsgNoGeolocation = "Geolocation not supported :("
)

// ErrPositionUnavailable is returned when the device position can't be read.
var ErrPositionUnavailable = errors.New("position unavailable")

// PositionSource yields the current device position.
type PositionSource interface {
	Position(ctx context.Context) (spatial.Point, error)
}

// StaticPosition is a fixed position, typically from configuration. A nil
// point means no position is known.
type StaticPosition struct {
	Point *spatial.Point
}

// NewStaticPosition builds a StaticPosition from optional coordinates. Both
// must be set for the position to be known.
func NewStaticPosition(lat, lng *float64) StaticPosition {
	if lat == nil || lng == nil {
		return StaticPosition{}
	}

	return StaticPosition{Point: &spatial.Point{Lat: *lat, Lng: *lng}}
}

// Position implements PositionSource.
func (s StaticPosition) Position(context.Context) (spatial.Point, error) {
	if s.Point == nil {
		return spatial.Point{}, ErrPositionUnavailable
	}

	if err := s.Point.Validate(); err != nil {
		return spatial.Point{}, fmt.Errorf("%w: %w", ErrPositionUnavailable, err)
	}

	return *s.Point, nil
}

// Snapshot is the outcome of one load. Candidates is empty, never stale, when
// the source failed; Position is nil when unknown, and then Nearest is empty.
type Snapshot struct {
	Candidates  []*location.Location
	Position    *spatial.Point
	Nearest     proximity.Result
	SourceErr   error
	PositionErr error
}

// Session ties the location source and sink to the position source.
type Session struct {
	source   location.Source
	sink     location.Sink
	position PositionSource
	logger   *slog.Logger
}

func NewSession(source location.Source, sink location.Sink, position PositionSource, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		source:   source,
		sink:     sink,
		position: position,
		logger:   logger,
	}
}

// Load fetches the candidates and the position, then runs the proximity
// search when both are present. Failures are reported in the snapshot.
func (s *Session) Load(ctx context.Context) Snapshot {
	var snap Snapshot

	locs, err := s.source.FetchLocations(ctx)
	if err != nil {
		s.logger.Warn("failed to fetch locations", "error", err)
		snap.SourceErr = fmt.Errorf("fetching locations: %w", err)
	} else {
		snap.Candidates = locs
	}

	p, err := s.position.Position(ctx)
	if err != nil {
		s.logger.Info("position unavailable", "error", err)
		snap.PositionErr = err
	} else {
		snap.Position = &p
	}

	if snap.Position != nil {
		snap.Nearest = proximity.Nearest(*snap.Position, snap.Candidates)
		if snap.Nearest.Found() {
			s.logger.Debug("nearest location", "name", snap.Nearest.Nearest.Name, "distance_km", snap.Nearest.DistanceKm)
		}
	}

	return snap
}

// Submit turns the form into a User Input location at the current position
// and hands it to the sink.
func (s *Session) Submit(ctx context.Context, f Form) (*location.Location, error) {
	p, err := s.position.Position(ctx)
	if err != nil {
		if errors.Is(err, ErrPositionUnavailable) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", ErrPositionUnavailable, err)
	}

	loc := f.Location(p)
	if err := location.ValidateSubmission(loc); err != nil {
		return nil, err
	}

	saved, err := s.sink.SubmitLocation(ctx, loc)
	if err != nil {
		s.logger.Error("failed to submit location", "name", loc.Name, "error", err)

		return nil, fmt.Errorf("submitting location: %w", err)
	}

	s.logger.Info("location submitted", "name", saved.Name, "lat", saved.Lat, "lng", saved.Lng)

	return saved, nil
}

// Message is the popup text for the outcome of Submit.
func Message(err error) string {
	switch {
	case err == nil:
		return MsgAdded
	case errors.Is(err, ErrPositionUnavailable):
		return MsgNoGeolocation
	default:
		return MsgAddFailed
	}
}
