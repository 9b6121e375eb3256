// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/waterpoint/waterpoint/spatial"
	"github.com/waterpoint/waterpoint/utils/htmlutils"
)

// kml mirrors the subset of a Google My Maps export we read. Folders are
// the map layers and carry the category name.
type kml struct {
	Document kmlContainer `xml:"Document"`
}

type kmlContainer struct {
	Name       string         `xml:"name"`
	Folders    []kmlContainer `xml:"Folder"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Point       *struct {
		Coordinates string `xml:"coordinates"`
	} `xml:"Point"`
	ExtendedData []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value"`
	} `xml:"ExtendedData>Data"`
}

// ParseKML reads the placemarks of a KML document. The folder a placemark
// sits in names its category; placemarks outside a known folder are UserInput.
// Level, temperature and operator come from "Key: value" lines of the HTML
// description, overridden by ExtendedData fields of the same name.
// Placemarks that are not points are skipped.
func ParseKML(r io.Reader) ([]*Location, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = htmlutils.CharsetReader

	var doc kml
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding KML: %w", err)
	}

	var locs []*Location
	if err := collect(&locs, doc.Document, UserInput); err != nil {
		return nil, err
	}

	return locs, nil
}

func collect(out *[]*Location, c kmlContainer, category Category) error {
	for _, pm := range c.Placemarks {
		if pm.Point == nil {
			continue
		}

		loc, err := pm.location(category)
		if err != nil {
			return fmt.Errorf("placemark %q: %w", pm.Name, err)
		}

		*out = append(*out, loc)
	}

	for _, f := range c.Folders {
		folderCategory := category
		if parsed, err := ParseCategory(f.Name); err == nil {
			folderCategory = parsed
		}

		if err := collect(out, f, folderCategory); err != nil {
			return err
		}
	}

	return nil
}

func (pm kmlPlacemark) location(category Category) (*Location, error) {
	point, err := parseCoordinates(pm.Point.Coordinates)
	if err != nil {
		return nil, err
	}

	lines, err := htmlutils.FragmentLines(pm.Description)
	if err != nil {
		return nil, err
	}

	fields := htmlutils.KeyValues(lines)
	for _, d := range pm.ExtendedData {
		if v := strings.TrimSpace(d.Value); v != "" {
			fields[strings.ToLower(strings.TrimSpace(d.Name))] = v
		}
	}

	loc := &Location{
		Point:    point,
		Name:     strings.TrimSpace(pm.Name),
		Category: category,
		Level:    DefaultLevel,
		Operator: fields["operator"],
	}

	if v, ok := fields["folder"]; ok {
		if c, err := ParseCategory(v); err == nil {
			loc.Category = c
		}
	}

	if v, ok := fields["level"]; ok {
		loc.Level, _ = NormalizeLevel(v)
	}

	for _, key := range []string{"temperature", "temp"} {
		if v, ok := fields[key]; ok {
			loc.Temperatures = ParseTemperatures(v)

			break
		}
	}

	return loc, nil
}

// parseCoordinates reads the first "lng,lat[,alt]" tuple.
func parseCoordinates(s string) (spatial.Point, error) {
	tuples := strings.Fields(s)
	if len(tuples) == 0 {
		return spatial.Point{}, fmt.Errorf("%w: missing coordinates", ErrInvalid)
	}

	parts := strings.Split(tuples[0], ",")
	if len(parts) < 2 {
		return spatial.Point{}, fmt.Errorf("%w: malformed coordinates %q", ErrInvalid, tuples[0])
	}

	lng, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("%w: longitude %q: %w", ErrInvalid, parts[0], err)
	}

	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("%w: latitude %q: %w", ErrInvalid, parts[1], err)
	}

	p := spatial.Point{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return spatial.Point{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return p, nil
}
