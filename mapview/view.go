// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package mapview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/waterpoint/waterpoint/location"
)

const plusButton = "[+]"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#007BFF")).
			Padding(0, 1)

	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	labelStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F1FA8C"))
	connectorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF79C6"))
	plusStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#007BFF"))
	handleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	focusStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#007BFF"))

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#007BFF")).
			Padding(1, 3).
			Align(lipgloss.Center)
)

// View renders the model. The sheet is anchored to the bottom and covers the
// map rows it overlaps.
func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	if m.popup != "" {
		box := popupStyle.Render(m.popup + "\n\n" + focusStyle.Render("[ OK ]"))

		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.spinner.View()+" Loading...")
	}

	visible := m.visibleRows()
	lines := m.mapLines(m.height - visible)
	lines = append(lines, m.sheetLines(visible)...)

	return strings.Join(lines, "\n")
}

// mapLines renders the header, the canvas and the status line into rows.
func (m *Model) mapLines(rows int) []string {
	if rows <= 0 {
		return nil
	}

	header := titleStyle.Render("waterpoint") + " " + dimStyle.Render(fmt.Sprintf("%d locations", len(m.snap.Candidates)))
	lines := []string{clip(header, m.width)}

	if rows == 1 {
		return lines
	}

	lines = append(lines, drawMap(m.snap, m.width, rows-2)...)

	status := m.status()
	if m.plusVisible() && rows == m.height {
		status = clip(status, m.width-len(plusButton)-1)
		pad := max(0, m.width-lipgloss.Width(status)-len(plusButton))
		status += strings.Repeat(" ", pad) + plusStyle.Render(plusButton)
	}

	return append(lines, clip(status, m.width))
}

func (m *Model) status() string {
	switch {
	case m.snap.SourceErr != nil:
		return errorStyle.Render("Could not load locations")
	case m.snap.Position == nil:
		return dimStyle.Render(MsgNoGeolocation)
	case !m.snap.Nearest.Found():
		return dimStyle.Render("No locations yet")
	default:
		return fmt.Sprintf("Nearest: %s (%s)", m.snap.Nearest.Nearest.Name, labelStyle.Render(m.snap.Nearest.Label()))
	}
}

// sheetLines renders the top rows of the bottom sheet.
func (m *Model) sheetLines(rows int) []string {
	if rows <= 0 {
		return nil
	}

	handle := strings.Repeat(" ", max(0, m.width/2-3)) + handleStyle.Render("──────")

	content := []string{
		handle,
		titleStyle.Render("Add a Location"),
		"",
		m.label(fieldName, "Name of location: ") + m.name.View(),
		m.label(fieldLevel, "Level: ") + fmt.Sprintf("‹ %s ›", m.form.Level),
		"Temperature: " + m.temperatures(),
		m.label(fieldOperator, "Operator: ") + m.operator.View(),
		"",
		m.button(fieldSubmit, "Submit") + "  " + m.button(fieldCancel, "Cancel"),
	}

	out := make([]string, rows)
	for i := range out {
		if i < len(content) {
			out[i] = clip(content[i], m.width)
		}
	}

	return out
}

func (m *Model) label(f field, s string) string {
	if m.focus == f {
		return focusStyle.Render(s)
	}

	return s
}

func (m *Model) temperatures() string {
	parts := make([]string, 0, len(location.TemperatureOptions))

	for _, f := range []field{fieldCold, fieldHot, fieldRoom} {
		option := temperatureFields[f]

		box := "[ ]"
		if m.form.Temperatures.Has(option) {
			box = "[x]"
		}

		parts = append(parts, m.label(f, box+" "+option))
	}

	return strings.Join(parts, "  ")
}

func (m *Model) button(f field, s string) string {
	return m.label(f, "[ "+s+" ]")
}

// clip truncates s to w visible cells.
func clip(s string, w int) string {
	if w <= 0 {
		return ""
	}

	if lipgloss.Width(s) <= w {
		return s
	}

	return lipgloss.NewStyle().MaxWidth(w).Render(s)
}
