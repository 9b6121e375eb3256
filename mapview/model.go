// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package mapview

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/waterpoint/waterpoint/location"
	"github.com/waterpoint/waterpoint/sheet"
)

const (
	fps            = 60
	springFreq     = 12.0
	springDamping  = 1.0
	settleEpsilon  = 0.05
	maxFieldLength = 200
)

// field is a focusable element of the submission form.
type field int

const (
	fieldName field = iota
	fieldLevel
	fieldCold
	fieldHot
	fieldRoom
	fieldOperator
	fieldSubmit
	fieldCancel
	fieldCount
)

var temperatureFields = map[field]string{
	fieldCold: location.Cold,
	fieldHot:  location.Hot,
	fieldRoom: location.RoomTemperature,
}

type (
	loadedMsg    struct{ snap Snapshot }
	submittedMsg struct {
		loc *location.Location
		err error
	}
	frameMsg time.Time
)

// Options tunes the view.
type Options struct {
	// HeightRatio is the share of the terminal covered by the open sheet.
	HeightRatio float64
	// Transition bounds the settle animation. Zero disables it.
	Transition time.Duration
	Logger     *slog.Logger
}

// Model is the bubbletea model of the map view.
type Model struct {
	ctx     context.Context
	session *Session
	logger  *slog.Logger
	opts    Options
	now     func() time.Time

	width, height int

	sheet *sheet.Controller
	// shown is the offset currently painted, which trails the controller's
	// offset while a transition runs.
	shown     float64
	velocity  float64
	target    float64
	animating bool
	deadline  time.Time
	spring    harmonica.Spring

	snap   Snapshot
	loaded bool

	form     Form
	name     textinput.Model
	operator textinput.Model
	focus    field

	loading bool
	spinner spinner.Model
	popup   string
}

// New creates the view. The sheet starts closed.
func New(ctx context.Context, session *Session, opts Options) *Model {
	if opts.HeightRatio <= 0 || opts.HeightRatio > 1 {
		opts.HeightRatio = sheet.DefaultHeightRatio
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	m := &Model{
		ctx:      ctx,
		session:  session,
		logger:   opts.Logger,
		opts:     opts,
		now:      time.Now,
		sheet:    sheet.NewController(0, sheet.WithLogger(opts.Logger)),
		spring:   harmonica.NewSpring(harmonica.FPS(fps), springFreq, springDamping),
		form:     NewForm(),
		name:     newInput("Name of location"),
		operator: newInput("Operator"),
		loading:  true,
		spinner:  s,
	}

	return m
}

func newInput(placeholder string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = maxFieldLength
	in.Prompt = ""

	return in
}

// Run starts the program on the alternate screen with mouse tracking and
// blocks until the user quits or ctx is done.
func Run(ctx context.Context, session *Session, opts Options) error {
	p := tea.NewProgram(
		New(ctx, session, opts),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err := p.Run()

	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m *Model) load() tea.Cmd {
	session, ctx := m.session, m.ctx

	return func() tea.Msg {
		return loadedMsg{snap: session.Load(ctx)}
	}
}

func (m *Model) submit() tea.Cmd {
	m.form.Name = m.name.Value()
	m.form.Operator = m.operator.Value()
	m.loading = true

	session, ctx, form := m.session, m.ctx, m.form

	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		loc, err := session.Submit(ctx, form)

		return submittedMsg{loc: loc, err: err}
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.name.Width = max(10, msg.Width-22)
		m.operator.Width = max(10, msg.Width-22)

		st := m.sheet.Resize(sheet.FullHeight(float64(msg.Height), m.opts.HeightRatio))
		m.snapTo(st.OffsetPx)

		return m, nil

	case loadedMsg:
		m.snap = msg.snap
		m.loaded = true
		m.loading = false

		return m, nil

	case submittedMsg:
		m.loading = false
		m.popup = Message(msg.err)

		if msg.err != nil {
			// The form keeps its values so the user can retry.
			return m, nil
		}

		m.form.Reset()
		m.name.SetValue("")
		m.operator.SetValue("")
		m.focusField(fieldName)

		return m, tea.Batch(m.apply(m.sheet.Close()), m.load())

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case frameMsg:
		return m, m.step(time.Time(msg))

	case tea.MouseMsg:
		return m, m.handleMouse(msg)

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	return m, nil
}

// apply follows an emitted sheet state: drag samples are painted as they
// come, transitions start or retarget the spring.
func (m *Model) apply(st sheet.State) tea.Cmd {
	m.target = st.OffsetPx

	if !st.Animate || m.opts.Transition <= 0 || m.shown == m.target {
		m.snapTo(st.OffsetPx)

		return nil
	}

	m.deadline = m.now().Add(m.opts.Transition)
	if m.animating {
		return nil
	}

	m.animating = true

	return frame()
}

func (m *Model) snapTo(offset float64) {
	m.shown = offset
	m.target = offset
	m.velocity = 0
	m.animating = false
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/fps, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// step advances the spring one frame. The transition ends at the deadline
// even if the spring has not come to rest.
func (m *Model) step(now time.Time) tea.Cmd {
	if !m.animating {
		return nil
	}

	m.shown, m.velocity = m.spring.Update(m.shown, m.velocity, m.target)

	rest := math.Abs(m.shown-m.target) < settleEpsilon && math.Abs(m.velocity) < settleEpsilon
	if rest || !now.Before(m.deadline) {
		m.snapTo(m.target)

		return nil
	}

	m.shown = math.Max(0, math.Min(m.shown, m.sheet.State().FullHeight))

	return frame()
}

// visibleRows is how many rows of the sheet are painted.
func (m *Model) visibleRows() int {
	rows := int(math.Round(m.sheet.State().FullHeight - m.shown))

	return max(0, min(rows, m.height))
}

// sheetTop is the row of the drag handle.
func (m *Model) sheetTop() int {
	return m.height - m.visibleRows()
}

func (m *Model) plusVisible() bool {
	st := m.sheet.State()

	return !st.IsOpen && st.Phase == sheet.Idle && !m.animating
}

func (m *Model) onPlus(x, y int) bool {
	return m.plusVisible() && y == m.height-1 && x >= m.width-len(plusButton)
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if m.popup != "" || m.loading {
		return nil
	}

	dragging := m.sheet.State().Phase == sheet.Dragging

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return nil
		}

		if m.onPlus(msg.X, msg.Y) {
			return m.apply(m.sheet.Toggle())
		}

		// The handle only grabs a settled panel.
		if !m.animating && m.visibleRows() > 0 && msg.Y == m.sheetTop() {
			return m.apply(m.sheet.DragStart(float64(msg.Y)))
		}
	case tea.MouseActionMotion:
		if dragging {
			return m.apply(m.sheet.DragMove(float64(msg.Y)))
		}
	case tea.MouseActionRelease:
		if dragging {
			return m.apply(m.sheet.Release(float64(m.height)))
		}
	}

	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		return tea.Quit
	}

	if m.popup != "" {
		switch msg.String() {
		case "enter", "esc", " ", "space":
			m.popup = ""
		}

		return nil
	}

	if m.loading {
		return nil
	}

	st := m.sheet.State()
	if st.Phase == sheet.Dragging {
		return nil
	}

	if !st.IsOpen {
		switch msg.String() {
		case "q":
			return tea.Quit
		case "+", "a":
			return tea.Batch(m.apply(m.sheet.Open()), m.focusField(fieldName))
		case "r":
			m.loading = true

			return tea.Batch(m.spinner.Tick, m.load())
		}

		return nil
	}

	return m.handleFormKey(msg)
}

func (m *Model) handleFormKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		return m.apply(m.sheet.Close())
	case "tab", "down":
		return m.focusField((m.focus + 1) % fieldCount)
	case "shift+tab", "up":
		return m.focusField((m.focus + fieldCount - 1) % fieldCount)
	}

	switch m.focus {
	case fieldName, fieldOperator:
		if msg.String() == "enter" {
			return m.focusField(m.focus + 1)
		}

		var cmd tea.Cmd
		if m.focus == fieldName {
			m.name, cmd = m.name.Update(msg)
		} else {
			m.operator, cmd = m.operator.Update(msg)
		}

		return cmd
	case fieldLevel:
		switch msg.String() {
		case "left", "h":
			m.form.CycleLevel(-1)
		case "right", "l", " ", "space":
			m.form.CycleLevel(1)
		case "enter":
			return m.focusField(m.focus + 1)
		}
	case fieldCold, fieldHot, fieldRoom:
		switch msg.String() {
		case " ", "space", "x":
			m.form.ToggleTemperature(temperatureFields[m.focus])
		case "enter":
			return m.focusField(m.focus + 1)
		}
	case fieldSubmit:
		if activates(msg) {
			return m.submit()
		}
	case fieldCancel:
		if activates(msg) {
			return m.apply(m.sheet.Close())
		}
	}

	return nil
}

func activates(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "enter", " ", "space":
		return true
	}

	return false
}

func (m *Model) focusField(f field) tea.Cmd {
	m.focus = f
	m.name.Blur()
	m.operator.Blur()

	switch f {
	case fieldName:
		return m.name.Focus()
	case fieldOperator:
		return m.operator.Focus()
	}

	return nil
}

var spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#007BFF"))
