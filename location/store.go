// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"fmt"
)

// Store serves a Repository as a Source and a Sink, for running without a
// remote API.
type Store struct {
	repo Repository
}

// NewStore wraps repo.
func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// FetchLocations returns the whole catalog in insertion order.
func (s *Store) FetchLocations(ctx context.Context) ([]*Location, error) {
	return s.repo.List(ctx, Filter{})
}

// SubmitLocation validates and stores loc.
func (s *Store) SubmitLocation(ctx context.Context, loc *Location) (*Location, error) {
	stored := *loc
	if err := ValidateSubmission(&stored); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, &stored); err != nil {
		return nil, fmt.Errorf("storing location: %w", err)
	}

	return &stored, nil
}

var (
	_ Source = (*Store)(nil)
	_ Sink   = (*Store)(nil)
	_ Source = (*Client)(nil)
	_ Sink   = (*Client)(nil)
)
