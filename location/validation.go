// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLength     = 200
	maxOperatorLength = 200
)

// ValidateSubmission normalizes loc in place and checks that it can be stored.
// A missing category defaults to UserInput and a missing level to DefaultLevel.
func ValidateSubmission(loc *Location) error {
	if loc == nil {
		return fmt.Errorf("%w: location can't be nil", ErrInvalid)
	}

	sanitize(loc)

	if loc.Name == "" {
		return fmt.Errorf("%w: name can't be empty", ErrInvalid)
	}

	if utf8.RuneCountInString(loc.Name) > maxNameLength {
		return fmt.Errorf("%w: name too long (max %d characters)", ErrInvalid, maxNameLength)
	}

	if loc.Operator == "" {
		return fmt.Errorf("%w: operator can't be empty", ErrInvalid)
	}

	if utf8.RuneCountInString(loc.Operator) > maxOperatorLength {
		return fmt.Errorf("%w: operator too long (max %d characters)", ErrInvalid, maxOperatorLength)
	}

	level, ok := NormalizeLevel(loc.Level)
	if !ok {
		return fmt.Errorf("%w: unknown level %q", ErrInvalid, loc.Level)
	}

	loc.Level = level

	for _, t := range loc.Temperatures {
		if _, ok := canonicalTemperature(t); !ok {
			return fmt.Errorf("%w: unknown temperature %q", ErrInvalid, t)
		}
	}

	if !loc.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalid, loc.Category)
	}

	if err := loc.Point.Validate(); err != nil {
		return fmt.Errorf("%w: invalid coordinates: %w", ErrInvalid, err)
	}

	return nil
}

// sanitize trims the free text fields and fills in the defaults.
func sanitize(loc *Location) {
	loc.Name = strings.TrimSpace(loc.Name)
	loc.Operator = strings.TrimSpace(loc.Operator)
	loc.Level = strings.TrimSpace(loc.Level)

	if loc.Level == "" {
		loc.Level = DefaultLevel
	}

	if loc.Category == "" {
		loc.Category = UserInput
	} else if c, err := ParseCategory(string(loc.Category)); err == nil {
		loc.Category = c
	}

	loc.Temperatures = NewTemperatures(loc.Temperatures...)
}
