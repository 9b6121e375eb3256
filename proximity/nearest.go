// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

// Package proximity finds the locations closest to a point.
//
// Nearest is a linear scan, which is fine for the tens to hundreds of
// locations a catalog holds today. Catalogs in the thousands should query an
// Index instead.
package proximity

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/waterpoint/waterpoint/location"
	"github.com/waterpoint/waterpoint/spatial"
)

// Distance is the haversine distance between a and b in kilometers.
func Distance(a, b spatial.Point) float64 {
	return a.DistanceKm(b)
}

// Result is the outcome of a Nearest call. A nil Nearest means there were no
// candidates, and DistanceKm is then 0.
type Result struct {
	Nearest    *location.Location
	DistanceKm float64
}

// Found reports whether a nearest location exists.
func (r Result) Found() bool {
	return r.Nearest != nil
}

// Label formats the distance the way the map shows it, or returns "" when
// nothing was found.
func (r Result) Label() string {
	if !r.Found() {
		return ""
	}

	return fmt.Sprintf("%.2f km", r.DistanceKm)
}

// Connector is the line from the query point to the nearest location, in
// lng/lat order. It is nil when nothing was found.
func (r Result) Connector(from spatial.Point) orb.LineString {
	if !r.Found() {
		return nil
	}

	return orb.LineString{
		{from.Lng, from.Lat},
		{r.Nearest.Lng, r.Nearest.Lat},
	}
}

// Nearest returns the candidate closest to query. Among equidistant candidates
// the first one wins. Nil candidates are skipped.
func Nearest(query spatial.Point, candidates []*location.Location) Result {
	var res Result

	for _, c := range candidates {
		if c == nil {
			continue
		}

		d := Distance(query, c.Point)
		if res.Nearest == nil || d < res.DistanceKm {
			res = Result{Nearest: c, DistanceKm: d}
		}
	}

	return res
}
