// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/waterpoint/waterpoint/location"
	"github.com/waterpoint/waterpoint/proximity"
	"github.com/waterpoint/waterpoint/spatial"
)

func pointOf(p spatial.Point) orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// locationFeature carries the location fields and its marker style.
func locationFeature(loc *location.Location) *geojson.Feature {
	f := geojson.NewFeature(pointOf(loc.Point))
	if loc.ID != "" {
		f.ID = loc.ID
	}

	marker := loc.Category.Marker()
	f.Properties["name"] = loc.Name
	f.Properties["folder"] = string(loc.Category)
	f.Properties["level"] = loc.Level
	f.Properties["temp"] = loc.Temperatures.String()
	f.Properties["operator"] = loc.Operator
	f.Properties["marker-color"] = marker.Color
	f.Properties["marker-symbol"] = marker.Icon

	return f
}

func catalogCollection(locs []*location.Location) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, loc := range locs {
		fc.Append(locationFeature(loc))
	}

	return fc
}

// nearestCollection holds the query point and, when a nearest location
// exists, that location and the connector between both.
func nearestCollection(query spatial.Point, res proximity.Result) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	q := geojson.NewFeature(pointOf(query))
	q.Properties["role"] = "query"
	fc.Append(q)

	if !res.Found() {
		return fc
	}

	n := locationFeature(res.Nearest)
	n.Properties["role"] = "nearest"
	n.Properties["distance_km"] = res.DistanceKm
	fc.Append(n)

	line := geojson.NewFeature(res.Connector(query))
	line.Properties["role"] = "connector"
	line.Properties["label"] = res.Label()
	line.Properties["distance_km"] = res.DistanceKm
	fc.Append(line)

	return fc
}
