// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package mapview

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waterpoint/waterpoint/location"
	"github.com/waterpoint/waterpoint/spatial"
)

type fakeSource struct {
	locs []*location.Location
	err  error
}

func (f *fakeSource) FetchLocations(context.Context) ([]*location.Location, error) {
	return f.locs, f.err
}

type fakeSink struct {
	got []*location.Location
	err error
}

func (f *fakeSink) SubmitLocation(_ context.Context, loc *location.Location) (*location.Location, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.got = append(f.got, loc)
	saved := *loc
	saved.ID = "generated"

	return &saved, nil
}

func here() StaticPosition {
	return StaticPosition{Point: &spatial.Point{Lat: 0, Lng: 0}}
}

func candidates() []*location.Location {
	return []*location.Location{
		{ID: "a", Name: "A", Point: spatial.Point{Lat: 0, Lng: 1}, Category: location.VerifiedForm},
		{ID: "b", Name: "B", Point: spatial.Point{Lat: 0, Lng: 0.5}, Category: location.TicketedReserve},
	}
}

func filledForm() Form {
	f := NewForm()
	f.Name = "Block 123 cooler"
	f.Operator = "Town council"
	f.ToggleTemperature(location.Hot)
	f.ToggleTemperature(location.Cold)

	return f
}

func TestStaticPosition(t *testing.T) {
	lat, lng := 1.3521, 103.8198

	p, err := NewStaticPosition(&lat, &lng).Position(context.Background())
	require.NoError(t, err)
	assert.Equal(t, spatial.Point{Lat: lat, Lng: lng}, p)

	_, err = NewStaticPosition(&lat, nil).Position(context.Background())
	assert.ErrorIs(t, err, ErrPositionUnavailable)

	bad := 200.0
	_, err = NewStaticPosition(&bad, &lng).Position(context.Background())
	assert.ErrorIs(t, err, ErrPositionUnavailable)
	assert.ErrorIs(t, err, spatial.ErrInvalidLatitude)
}

func TestSessionLoad(t *testing.T) {
	locs := candidates()
	s := NewSession(&fakeSource{locs: locs}, &fakeSink{}, here(), nil)

	snap := s.Load(context.Background())

	require.NoError(t, snap.SourceErr)
	require.NoError(t, snap.PositionErr)
	require.NotNil(t, snap.Position)
	assert.Len(t, snap.Candidates, 2)
	require.True(t, snap.Nearest.Found())
	assert.Equal(t, "b", snap.Nearest.Nearest.ID)
	assert.InDelta(t, 55.6, snap.Nearest.DistanceKm, 0.1)
	assert.Equal(t, "55.60 km", snap.Nearest.Label())
}

func TestSessionLoadSourceFailure(t *testing.T) {
	s := NewSession(&fakeSource{locs: candidates(), err: errors.New("boom")}, &fakeSink{}, here(), nil)

	snap := s.Load(context.Background())

	assert.Error(t, snap.SourceErr)
	assert.Empty(t, snap.Candidates, "no stale candidates on failure")
	assert.NotNil(t, snap.Position)
	assert.False(t, snap.Nearest.Found())
	assert.Zero(t, snap.Nearest.DistanceKm)
}

func TestSessionLoadWithoutPosition(t *testing.T) {
	s := NewSession(&fakeSource{locs: candidates()}, &fakeSink{}, StaticPosition{}, nil)

	snap := s.Load(context.Background())

	assert.Len(t, snap.Candidates, 2)
	assert.Nil(t, snap.Position)
	assert.ErrorIs(t, snap.PositionErr, ErrPositionUnavailable)
	assert.False(t, snap.Nearest.Found())
}

func TestSessionSubmit(t *testing.T) {
	sink := &fakeSink{}
	s := NewSession(&fakeSource{}, sink, here(), nil)

	saved, err := s.Submit(context.Background(), filledForm())
	require.NoError(t, err)
	assert.Equal(t, "generated", saved.ID)
	assert.Equal(t, MsgAdded, Message(err))

	require.Len(t, sink.got, 1)

	want := &location.Location{
		Point:        spatial.Point{Lat: 0, Lng: 0},
		Name:         "Block 123 cooler",
		Category:     location.UserInput,
		Level:        location.DefaultLevel,
		Temperatures: location.Temperatures{location.Cold, location.Hot},
		Operator:     "Town council",
	}
	if diff := cmp.Diff(want, sink.got[0]); diff != "" {
		t.Errorf("submitted location mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "Cold, Hot", sink.got[0].Temperatures.String())
}

func TestSessionSubmitFailures(t *testing.T) {
	tests := []struct {
		name     string
		position PositionSource
		sinkErr  error
		form     Form
		wantErr  error
		wantMsg  string
	}{
		{
			name:     "no geolocation",
			position: StaticPosition{},
			form:     filledForm(),
			wantErr:  ErrPositionUnavailable,
			wantMsg:  MsgNoGeolocation,
		},
		{
			name:     "sink failure",
			position: here(),
			sinkErr:  &location.APIError{Type: location.ErrorTypeNetworkError, Message: "connection refused"},
			form:     filledForm(),
			wantMsg:  MsgAddFailed,
		},
		{
			name:     "invalid form",
			position: here(),
			form:     NewForm(),
			wantErr:  location.ErrInvalid,
			wantMsg:  MsgAddFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeSink{err: tt.sinkErr}
			s := NewSession(&fakeSource{}, sink, tt.position, nil)

			saved, err := s.Submit(context.Background(), tt.form)
			require.Error(t, err)
			assert.Nil(t, saved)
			assert.Equal(t, tt.wantMsg, Message(err))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			if tt.sinkErr == nil {
				assert.Empty(t, sink.got, "nothing reaches the sink")
			}
		})
	}
}

func TestForm(t *testing.T) {
	f := NewForm()
	assert.Equal(t, "Ground", f.Level)

	f.CycleLevel(-1)
	assert.Equal(t, "B3", f.Level)
	f.CycleLevel(2)
	assert.Equal(t, "1", f.Level)

	f.ToggleTemperature(location.RoomTemperature)
	f.ToggleTemperature(location.Cold)
	assert.Equal(t, location.Temperatures{location.Cold, location.RoomTemperature}, f.Temperatures)
	f.ToggleTemperature(location.Cold)
	assert.Equal(t, location.Temperatures{location.RoomTemperature}, f.Temperatures)

	f.Name = "x"
	f.Reset()
	assert.Equal(t, NewForm(), f)
}
