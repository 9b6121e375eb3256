// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

// Package sheet implements the gesture controller of the draggable bottom
// sheet. The controller only owns numbers: the vertical offset of the panel and
// whether it is open. Rendering belongs to whoever observes the emitted State.
package sheet

import (
	"fmt"
	"log/slog"
	"math"
)

// DefaultHeightRatio is the share of the viewport covered by a fully open sheet.
const DefaultHeightRatio = 0.7

// Phase is the interaction phase of the sheet.
type Phase int

const (
	// Idle means the sheet rests fully open or fully closed.
	Idle Phase = iota
	// Dragging means a pointer stream is moving the sheet.
	Dragging
	// Settling is the transient step between release and the open/closed decision.
	Settling
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Settling:
		return "settling"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Status is the coarse state of the sheet as seen by the view.
type Status int

const (
	Closed Status = iota
	Open
	InDrag
)

func (s Status) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case InDrag:
		return "dragging"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State is what the controller emits after every transition.
//
// OffsetPx is the hidden distance of the panel (a translateY): 0 is fully open
// and FullHeight is fully closed. Animate tells the renderer whether to play the
// settle transition or to follow the pointer without latency.
type State struct {
	OffsetPx   float64 `json:"offset_px"`
	FullHeight float64 `json:"full_height"`
	IsOpen     bool    `json:"is_open"`
	Phase      Phase   `json:"phase"`
	Animate    bool    `json:"animate"`
}

// Status returns the coarse status of the state.
func (s State) Status() Status {
	switch {
	case s.Phase == Dragging:
		return InDrag
	case s.IsOpen:
		return Open
	default:
		return Closed
	}
}

// VisibleHeight returns how much of the panel is on screen.
func (s State) VisibleHeight() float64 {
	return s.FullHeight - s.OffsetPx
}

// FullHeight derives the height of a fully open sheet from the viewport.
func FullHeight(viewportHeight, ratio float64) float64 {
	if ratio <= 0 || ratio > 1 {
		ratio = DefaultHeightRatio
	}

	return math.Max(0, viewportHeight*ratio)
}

// Observer receives every emitted State.
type Observer func(State)

// Option configures a Controller.
type Option func(*Controller)

// WithObserver registers fn to be called on every transition.
func WithObserver(fn Observer) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// WithLogger makes the controller report ignored samples at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// Controller is the bottom sheet state machine. It is not safe for concurrent
// use: a drag session is a single ordered stream start, move*, end.
type Controller struct {
	state    State
	origin   float64
	base     float64
	observer Observer
	logger   *slog.Logger
}

// NewController creates a closed sheet of the given full height.
func NewController(fullHeight float64, opts ...Option) *Controller {
	fullHeight = math.Max(0, fullHeight)
	c := &Controller{
		state: State{
			OffsetPx:   fullHeight,
			FullHeight: fullHeight,
			Animate:    true,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Open slides a closed sheet fully open. Any other state is left untouched.
func (c *Controller) Open() State {
	if c.state.Status() != Closed {
		c.ignored("open")

		return c.state
	}

	return c.settle(true)
}

// Close slides an open sheet fully closed. Any other state is left untouched.
func (c *Controller) Close() State {
	if c.state.Status() != Open {
		c.ignored("close")

		return c.state
	}

	return c.settle(false)
}

// Toggle opens a closed sheet and closes an open one.
func (c *Controller) Toggle() State {
	if c.state.IsOpen {
		return c.Close()
	}

	return c.Open()
}

// DragStart records the pointer origin and the current offset as the drag base.
func (c *Controller) DragStart(pointerY float64) State {
	if c.state.Phase != Idle || !finite(pointerY) {
		c.ignored("drag start")

		return c.state
	}

	c.origin = pointerY
	c.base = c.state.OffsetPx
	c.state.Phase = Dragging
	c.state.Animate = false

	return c.emit()
}

// DragMove follows the pointer. The offset is clamped into [0, FullHeight].
func (c *Controller) DragMove(pointerY float64) State {
	if c.state.Phase != Dragging || !finite(pointerY) {
		c.ignored("drag move")

		return c.state
	}

	c.state.OffsetPx = clamp(c.base+(pointerY-c.origin), 0, c.state.FullHeight)

	return c.emit()
}

// DragEnd resolves the drag: a panel whose top edge is below the viewport's
// vertical midpoint closes, otherwise it opens. The exact midpoint closes.
func (c *Controller) DragEnd(boundingTop, viewportHeight float64) State {
	if c.state.Phase != Dragging || !finite(boundingTop) || !finite(viewportHeight) {
		c.ignored("drag end")

		return c.state
	}

	open := boundingTop < viewportHeight/2

	c.state.Phase = Settling
	c.state.IsOpen = open
	c.emit()

	return c.settle(open)
}

// Release ends the drag using the panel position the controller knows about,
// for views that anchor the sheet to the bottom of the viewport.
func (c *Controller) Release(viewportHeight float64) State {
	return c.DragEnd(c.BoundingTop(viewportHeight), viewportHeight)
}

// BoundingTop returns the screen offset of the panel's top edge for a sheet
// anchored to the bottom of a viewport of the given height.
func (c *Controller) BoundingTop(viewportHeight float64) float64 {
	return viewportHeight - c.state.FullHeight + c.state.OffsetPx
}

// Resize adapts the controller to a new full height, keeping the open/closed
// decision and clamping an ongoing drag.
func (c *Controller) Resize(fullHeight float64) State {
	fullHeight = math.Max(0, fullHeight)
	c.state.FullHeight = fullHeight

	switch {
	case c.state.Phase == Dragging:
		c.base = clamp(c.base, 0, fullHeight)
		c.state.OffsetPx = clamp(c.state.OffsetPx, 0, fullHeight)
	case c.state.IsOpen:
		c.state.OffsetPx = 0
	default:
		c.state.OffsetPx = fullHeight
	}

	return c.emit()
}

func (c *Controller) settle(open bool) State {
	c.state.IsOpen = open
	c.state.Phase = Idle
	c.state.Animate = true

	if open {
		c.state.OffsetPx = 0
	} else {
		c.state.OffsetPx = c.state.FullHeight
	}

	return c.emit()
}

func (c *Controller) emit() State {
	if c.observer != nil {
		c.observer(c.state)
	}

	return c.state
}

func (c *Controller) ignored(event string) {
	if c.logger != nil {
		c.logger.Debug("ignoring sheet event", "event", event, "status", c.state.Status().String())
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
