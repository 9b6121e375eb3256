// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/waterpoint/waterpoint/location"
	"github.com/waterpoint/waterpoint/spatial"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50
	// pointTolerance is the half side, in degrees, of the box around each point.
	pointTolerance = 1e-9
)

// Hit is a location found by a radius search.
type Hit struct {
	Location   *location.Location `json:"location"`
	DistanceKm float64            `json:"distance_km"`
}

// indexedLocation wraps a Location for R-tree indexing. Points are stored as
// (lat, lng).
type indexedLocation struct {
	loc   *location.Location
	order int
	rect  *rtreego.Rect
}

func (il *indexedLocation) Bounds() *rtreego.Rect {
	return il.rect
}

// Index is an immutable R-tree over a candidate set. It is safe for
// concurrent use.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// NewIndex indexes locs. Nil entries are skipped.
func NewIndex(locs []*location.Location) *Index {
	ix := &Index{tree: rtreego.NewTree(dimensions, minChildren, maxChildren)}

	for i, loc := range locs {
		if loc == nil {
			continue
		}

		ix.tree.Insert(&indexedLocation{
			loc:   loc,
			order: i,
			rect:  rtreego.Point{loc.Lat, loc.Lng}.ToRect(pointTolerance),
		})
		ix.size++
	}

	return ix
}

// Len returns the number of indexed locations.
func (ix *Index) Len() int {
	return ix.size
}

// Within returns the locations at most radiusKm away from center, closest
// first. Equidistant locations keep their input order.
func (ix *Index) Within(center spatial.Point, radiusKm float64) []Hit {
	if radiusKm < 0 || math.IsNaN(radiusKm) || ix.size == 0 {
		return []Hit{}
	}

	var (
		matches []*indexedLocation
		hits    []Hit
	)

	for _, s := range ix.tree.SearchIntersect(searchBox(center, radiusKm)) {
		il, ok := s.(*indexedLocation)
		if !ok {
			continue
		}

		matches = append(matches, il)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].order < matches[j].order })

	for _, il := range matches {
		if d := Distance(center, il.loc.Point); d <= radiusKm {
			hits = append(hits, Hit{Location: il.loc, DistanceKm: d})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].DistanceKm < hits[j].DistanceKm })

	if hits == nil {
		return []Hit{}
	}

	return hits
}

// searchBox returns a lat/lng box containing every point within radiusKm of
// center. Boxes reaching a pole or the antimeridian widen to the whole globe.
func searchBox(center spatial.Point, radiusKm float64) *rtreego.Rect {
	world, _ := rtreego.NewRect(rtreego.Point{-90 - 1, -180 - 1}, []float64{182, 362})

	dLat := radiusKm / spatial.EarthRadiusKm * 180 / math.Pi

	minLat, maxLat := center.Lat-dLat, center.Lat+dLat
	if minLat <= -90 || maxLat >= 90 {
		return world
	}

	cosLat := math.Min(math.Cos(minLat*math.Pi/180), math.Cos(maxLat*math.Pi/180))
	dLng := dLat / cosLat

	minLng, maxLng := center.Lng-dLng, center.Lng+dLng
	if minLng <= -180 || maxLng >= 180 {
		return world
	}

	// A small margin keeps points exactly on the edge inside the box.
	const margin = 1e-6

	box, err := rtreego.NewRect(
		rtreego.Point{minLat - margin, minLng - margin},
		[]float64{maxLat - minLat + 2*margin, maxLng - minLng + 2*margin},
	)
	if err != nil {
		return world
	}

	return box
}
