// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package mapview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waterpoint/waterpoint/location"
	"github.com/waterpoint/waterpoint/proximity"
	"github.com/waterpoint/waterpoint/spatial"
)

func TestProjection(t *testing.T) {
	nw := spatial.Point{Lat: 1.5, Lng: 103.6}
	se := spatial.Point{Lat: 1.2, Lng: 104.0}
	p := newProjection([]spatial.Point{nw, se}, 41, 11)

	x, y, ok := p.cell(nw)
	require.True(t, ok)
	x2, y2, ok := p.cell(se)
	require.True(t, ok)

	assert.Less(t, x, x2, "west is left")
	assert.Less(t, y, y2, "north is up")
	assert.Positive(t, x, "a margin keeps points off the edge")
	assert.Less(t, x2, 40)

	mx, my, ok := p.cell(spatial.Point{Lat: 1.35, Lng: 103.8})
	require.True(t, ok)
	assert.Equal(t, 20, mx)
	assert.Equal(t, 5, my)

	_, _, ok = p.cell(spatial.Point{Lat: 10, Lng: 103.8})
	assert.False(t, ok)
}

func TestProjectionDegenerate(t *testing.T) {
	p := newProjection(nil, 21, 11)
	x, y, ok := p.cell(defaultCenter)
	require.True(t, ok)
	assert.Equal(t, 10, x)
	assert.Equal(t, 5, y)

	single := spatial.Point{Lat: -33.9, Lng: 18.4}
	p = newProjection([]spatial.Point{single}, 21, 11)
	x, y, ok = p.cell(single)
	require.True(t, ok)
	assert.Equal(t, 10, x)
	assert.Equal(t, 5, y)

	_, _, ok = newProjection(nil, 0, 0).cell(defaultCenter)
	assert.False(t, ok)
}

func TestDrawMap(t *testing.T) {
	user := spatial.Point{Lat: 0, Lng: 0}
	locs := []*location.Location{
		{Name: "far", Point: spatial.Point{Lat: 0, Lng: 1}, Category: location.UnverifiedForm},
		nil,
		{Name: "near", Point: spatial.Point{Lat: 0, Lng: 0.5}, Category: location.UserInput},
	}
	snap := Snapshot{
		Candidates: locs,
		Position:   &user,
		Nearest:    proximity.Nearest(user, locs),
	}

	lines := drawMap(snap, 60, 9)
	require.Len(t, lines, 9)

	canvas := strings.Join(lines, "\n")
	assert.Contains(t, canvas, "@")
	assert.Contains(t, canvas, "○")
	assert.Contains(t, canvas, "◆")
	assert.Contains(t, canvas, "·", "connector to the nearest location")
	assert.Contains(t, canvas, "55.60 km")

	// Everything sits on the equator, so the user row shows the connector
	// between the user and the nearest glyph.
	for _, line := range lines {
		if strings.Contains(line, "@") {
			assert.Regexp(t, `@·+◆`, line)
		}
	}
}

func TestDrawMapWithoutNearest(t *testing.T) {
	snap := Snapshot{Candidates: []*location.Location{
		{Name: "only", Point: spatial.Point{Lat: 1, Lng: 1}, Category: location.VerifiedForm},
	}}

	canvas := strings.Join(drawMap(snap, 30, 5), "\n")
	assert.Contains(t, canvas, "●")
	assert.NotContains(t, canvas, "·")
	assert.NotContains(t, canvas, "km")
}
