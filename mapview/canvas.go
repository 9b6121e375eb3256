// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package mapview

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/waterpoint/waterpoint/location"
	"github.com/waterpoint/waterpoint/spatial"
)

// defaultCenter frames an empty map.
var defaultCenter = spatial.Point{Lat: 1.3521, Lng: 103.8198}

const (
	minSpanDeg = 0.02
	marginFrac = 0.08
)

// projection maps coordinates onto a w x h character grid (equirectangular).
type projection struct {
	minLat, maxLat float64
	minLng, maxLng float64
	w, h           int
}

func newProjection(points []spatial.Point, w, h int) projection {
	p := projection{w: w, h: h}

	if len(points) == 0 {
		points = []spatial.Point{defaultCenter}
	}

	p.minLat, p.maxLat = points[0].Lat, points[0].Lat
	p.minLng, p.maxLng = points[0].Lng, points[0].Lng

	for _, pt := range points[1:] {
		p.minLat = math.Min(p.minLat, pt.Lat)
		p.maxLat = math.Max(p.maxLat, pt.Lat)
		p.minLng = math.Min(p.minLng, pt.Lng)
		p.maxLng = math.Max(p.maxLng, pt.Lng)
	}

	padLat := math.Max((p.maxLat-p.minLat)*marginFrac, minSpanDeg/2)
	padLng := math.Max((p.maxLng-p.minLng)*marginFrac, minSpanDeg/2)
	p.minLat -= padLat
	p.maxLat += padLat
	p.minLng -= padLng
	p.maxLng += padLng

	return p
}

// cell returns the grid position of pt; north is row 0.
func (p projection) cell(pt spatial.Point) (x, y int, ok bool) {
	if p.w <= 0 || p.h <= 0 {
		return 0, 0, false
	}

	fx := (pt.Lng - p.minLng) / (p.maxLng - p.minLng)
	fy := (p.maxLat - pt.Lat) / (p.maxLat - p.minLat)

	x = int(math.Round(fx * float64(p.w-1)))
	y = int(math.Round(fy * float64(p.h-1)))

	return x, y, x >= 0 && x < p.w && y >= 0 && y < p.h
}

// grid is a character canvas whose cells may carry a style.
type grid [][]string

func newGrid(w, h int) grid {
	g := make(grid, h)
	for y := range g {
		g[y] = make([]string, w)
		for x := range g[y] {
			g[y][x] = " "
		}
	}

	return g
}

func (g grid) set(x, y int, s string) {
	if y >= 0 && y < len(g) && x >= 0 && x < len(g[y]) {
		g[y][x] = s
	}
}

// text writes s from (x, y), clipping at the right edge.
func (g grid) text(x, y int, s string, style lipgloss.Style) {
	for _, r := range s {
		g.set(x, y, style.Render(string(r)))
		x++
	}
}

// line draws the cells strictly between both ends.
func (g grid) line(x0, y0, x1, y1 int, s string) {
	steps := max(abs(x1-x0), abs(y1-y0))
	for i := 1; i < steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(float64(x0) + t*float64(x1-x0)))
		y := int(math.Round(float64(y0) + t*float64(y1-y0)))
		g.set(x, y, s)
	}
}

func (g grid) lines() []string {
	out := make([]string, len(g))
	for y, row := range g {
		out[y] = strings.Join(row, "")
	}

	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}

// drawMap paints the candidates, the user and the connector to the nearest
// location onto a w x h canvas.
func drawMap(snap Snapshot, w, h int) []string {
	g := newGrid(w, h)
	if w <= 0 || h <= 0 {
		return g.lines()
	}

	points := make([]spatial.Point, 0, len(snap.Candidates)+1)
	for _, loc := range snap.Candidates {
		if loc != nil {
			points = append(points, loc.Point)
		}
	}

	if snap.Position != nil {
		points = append(points, *snap.Position)
	}

	proj := newProjection(points, w, h)

	if snap.Position != nil && snap.Nearest.Found() {
		ux, uy, _ := proj.cell(*snap.Position)
		nx, ny, _ := proj.cell(snap.Nearest.Nearest.Point)
		g.line(ux, uy, nx, ny, connectorStyle.Render("·"))

		label := snap.Nearest.Label()
		lx := min(max(0, (ux+nx)/2-len(label)/2), max(0, w-len(label)))
		ly := (uy + ny) / 2
		if ly == uy || ly == ny {
			ly = max(0, ly-1)
		}

		g.text(lx, ly, label, labelStyle)
	}

	for _, loc := range snap.Candidates {
		if loc == nil {
			continue
		}

		if x, y, ok := proj.cell(loc.Point); ok {
			g.set(x, y, markerStyle(loc.Category).Render(loc.Category.Marker().Glyph))
		}
	}

	if snap.Position != nil {
		if x, y, ok := proj.cell(*snap.Position); ok {
			g.set(x, y, userStyle.Render("@"))
		}
	}

	return g.lines()
}

func markerStyle(c location.Category) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Marker().Color))
}
