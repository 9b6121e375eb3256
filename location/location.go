// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

// Package location models the water points shown on the map, their storage and
// the HTTP API they are fetched from and submitted to.
package location

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/uber/h3-go/v4"
	"github.com/waterpoint/waterpoint/spatial"
)

// Category is the map folder a location belongs to.
type Category string

const (
	TicketedReserve Category = "Ticketed Reserve"
	UnverifiedForm  Category = "Unverified Form"
	VerifiedForm    Category = "Verified Form"
	UserInput       Category = "User Input"
)

// Categories lists every known category in display order.
var Categories = []Category{TicketedReserve, UnverifiedForm, VerifiedForm, UserInput}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}

	return false
}

// ParseCategory accepts the display name in any case, with spaces, dashes or
// underscores between words.
func ParseCategory(s string) (Category, error) {
	key := categoryKey(s)
	for _, c := range Categories {
		if categoryKey(string(c)) == key {
			return c, nil
		}
	}

	return "", fmt.Errorf("%w: unknown category %q", ErrInvalid, s)
}

func categoryKey(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	}), " ")
}

// Marker describes how a category is drawn on the map.
type Marker struct {
	Glyph string `json:"glyph"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var (
	markers = map[Category]Marker{
		TicketedReserve: {Glyph: "▲", Color: "#8E44AD", Icon: "marker-ticketed-reserve.png"},
		UnverifiedForm:  {Glyph: "○", Color: "#F39C12", Icon: "marker-unverified.png"},
		VerifiedForm:    {Glyph: "●", Color: "#27AE60", Icon: "marker-verified.png"},
		UserInput:       {Glyph: "◆", Color: "#2980B9", Icon: "marker-user-input.png"},
	}
	defaultMarker = Marker{Glyph: "•", Color: "#7F8C8D", Icon: "marker-icon.png"}
)

// Marker returns the marker of the category, or the default one for unknown
// categories.
func (c Category) Marker() Marker {
	if m, ok := markers[c]; ok {
		return m
	}

	return defaultMarker
}

// Markers returns a copy of the category to marker table.
func Markers() map[Category]Marker {
	out := make(map[Category]Marker, len(markers))
	for c, m := range markers {
		out[c] = m
	}

	return out
}

// Temperature options offered by the submission form, in canonical order.
const (
	Cold            = "Cold"
	Hot             = "Hot"
	RoomTemperature = "Room temperature"
)

// TemperatureOptions lists the known temperatures in canonical order.
var TemperatureOptions = []string{Cold, Hot, RoomTemperature}

// Temperatures is the set of water temperatures available at a location.
// It is kept in canonical order without duplicates, and travels on the wire as
// the ", " separated string the backend stores.
type Temperatures []string

// NewTemperatures builds a set from the given values. Known options are
// matched case-insensitively and reordered canonically; unknown values are kept
// after them in input order.
func NewTemperatures(values ...string) Temperatures {
	seen := make(map[string]bool, len(values))
	var known, unknown []string

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		if canonical, ok := canonicalTemperature(v); ok {
			v = canonical
		}

		if seen[strings.ToLower(v)] {
			continue
		}

		seen[strings.ToLower(v)] = true

		if _, ok := canonicalTemperature(v); ok {
			known = append(known, v)
		} else {
			unknown = append(unknown, v)
		}
	}

	out := make(Temperatures, 0, len(known)+len(unknown))
	for _, option := range TemperatureOptions {
		for _, k := range known {
			if k == option {
				out = append(out, k)
			}
		}
	}

	return append(out, unknown...)
}

// ParseTemperatures splits the wire representation.
func ParseTemperatures(s string) Temperatures {
	return NewTemperatures(strings.Split(s, ",")...)
}

func canonicalTemperature(v string) (string, bool) {
	for _, option := range TemperatureOptions {
		if strings.EqualFold(option, v) {
			return option, true
		}
	}

	return "", false
}

// String returns the wire representation.
func (t Temperatures) String() string {
	return strings.Join(t, ", ")
}

// Has reports whether option is in the set.
func (t Temperatures) Has(option string) bool {
	for _, v := range t {
		if strings.EqualFold(v, option) {
			return true
		}
	}

	return false
}

// Toggle returns a new set with option added or removed.
func (t Temperatures) Toggle(option string) Temperatures {
	if !t.Has(option) {
		return NewTemperatures(append(append([]string{}, t...), option)...)
	}

	out := make([]string, 0, len(t))
	for _, v := range t {
		if !strings.EqualFold(v, option) {
			out = append(out, v)
		}
	}

	return NewTemperatures(out...)
}

// MarshalJSON implements json.Marshaler.
func (t Temperatures) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts both the wire string and a JSON array.
func (t *Temperatures) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = ParseTemperatures(s)

		return nil
	}

	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("temperatures must be a string or an array of strings: %w", err)
	}

	*t = NewTemperatures(values...)

	return nil
}

// Levels offered by the submission form.
var Levels = []string{"Ground", "1", "2", "3", "B2", "B3"}

// DefaultLevel is preselected in the submission form.
const DefaultLevel = "Ground"

// NormalizeLevel maps s to the canonical spelling of a known level.
func NormalizeLevel(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, level := range Levels {
		if strings.EqualFold(level, s) {
			return level, true
		}
	}

	return s, false
}

// Location is a water point. The JSON form is the one the location API speaks.
type Location struct {
	ID string `json:"id,omitempty"`
	spatial.Point
	Name         string       `json:"name"`
	Category     Category     `json:"folder"`
	Level        string       `json:"level"`
	Temperatures Temperatures `json:"temp"`
	Operator     string       `json:"operator"`
	CreatedAt    time.Time    `json:"created_at,omitzero"`
	H3Res7       int64        `json:"-"`
	H3Res9       int64        `json:"-"`
}

// h3Resolutions are the cell resolutions stored with every location: res 7
// cells are neighbourhood sized, res 9 cells a block or two.
var h3Resolutions = []int{7, 9}

func (l *Location) computeH3() error {
	latLng := h3.NewLatLng(l.Lat, l.Lng)
	for _, res := range h3Resolutions {
		cell, err := h3.LatLngToCell(latLng, res)
		if err != nil {
			return fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
		}

		switch res {
		case 7:
			l.H3Res7 = int64(cell)
		case 9:
			l.H3Res9 = int64(cell)
		}
	}

	return nil
}

// InCell reports whether the location falls in the given H3 cell.
func (l *Location) InCell(cell h3.Cell) bool {
	got, err := h3.LatLngToCell(h3.NewLatLng(l.Lat, l.Lng), cell.Resolution())
	if err != nil {
		return false
	}

	return got == cell
}
