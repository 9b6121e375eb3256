// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package mapview

import (
	"strings"

	"github.com/waterpoint/waterpoint/location"
	"github.com/waterpoint/waterpoint/spatial"
)

// Form holds the values of the submission form.
type Form struct {
	Name         string
	Level        string
	Temperatures location.Temperatures
	Operator     string
}

// NewForm returns an empty form with the default level selected.
func NewForm() Form {
	return Form{Level: location.DefaultLevel}
}

// Reset clears the form after a successful submission.
func (f *Form) Reset() {
	*f = NewForm()
}

// ToggleTemperature checks or unchecks a temperature option.
func (f *Form) ToggleTemperature(option string) {
	f.Temperatures = f.Temperatures.Toggle(option)
}

// CycleLevel moves the level selection by step, wrapping around.
func (f *Form) CycleLevel(step int) {
	i := 0
	for j, level := range location.Levels {
		if strings.EqualFold(level, f.Level) {
			i = j

			break
		}
	}

	n := len(location.Levels)
	f.Level = location.Levels[((i+step)%n+n)%n]
}

// Location builds the submission for the given position.
func (f Form) Location(p spatial.Point) *location.Location {
	return &location.Location{
		Point:        p,
		Name:         f.Name,
		Category:     location.UserInput,
		Level:        f.Level,
		Temperatures: location.NewTemperatures(f.Temperatures...),
		Operator:     f.Operator,
	}
}
