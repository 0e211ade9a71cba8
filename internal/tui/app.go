// Package tui is the terminal front end: it draws viewer snapshots onto a
// Braille canvas and turns keys and mouse clicks into viewer commands.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"

	"github.com/san-kum/htmviz/internal/draw"
	"github.com/san-kum/htmviz/internal/htm"
	"github.com/san-kum/htmviz/internal/metrics"
	"github.com/san-kum/htmviz/internal/viewer"
)

const (
	// Scene pixels per Braille dot.
	pixelsPerDot = 2
	canvasPadX   = 1
	headerRows   = 2
	footerRows   = 2
	panelWidth   = 34
	frameEvery   = 33 * time.Millisecond
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the bubbletea model of the viewer.
type Model struct {
	v      *viewer.Viewer
	engine *draw.Engine
	title  string

	width, height int
	cols, rows    int

	theme int
	st    styles

	snap     *viewer.Snapshot
	seq      uint64
	edits    uint64
	lastStep htm.StepID
	// gated holds back frames while the latest step is off the stride.
	gated bool
	frame string

	all      bool
	showHelp bool
}

func New(v *viewer.Viewer, title, theme string, log zerolog.Logger) Model {
	m := Model{v: v, engine: draw.NewEngine(log), title: title}
	m.setTheme(GetTheme(theme).Name)
	return m
}

func (m *Model) setTheme(name string) {
	for i, t := range Themes {
		if t.Name == name {
			m.theme = i
		}
	}
	m.st = newStyles(Themes[m.theme])
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			if x, y, ok := m.toScene(msg.X, msg.Y); ok {
				m.v.Click(x, y, msg.Shift || msg.Ctrl || msg.Alt)
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.cols = max(10, m.width-canvasPadX-panelWidth-2)
		m.rows = max(4, m.height-headerRows-footerRows)
		m.v.Resize(m.cols*2*pixelsPerDot, m.rows*4*pixelsPerDot)
		m.seq = 0
		return m, nil
	case tickMsg:
		m.refresh()
		return m, tick()
	}
	return m, nil
}

// refresh redraws the frame when a new snapshot is out. A new step is
// drawn only on the animation stride, along with the replies that follow
// it; an edit is drawn at once.
func (m *Model) refresh() {
	s := m.v.Snapshot()
	if s == nil || s.Seq == m.seq || m.cols == 0 {
		return
	}
	m.seq = s.Seq
	edited := s.Edits != m.edits
	m.edits = s.Edits
	if latest, ok := s.Latest(); ok && latest != m.lastStep {
		m.lastStep = latest
		m.gated = !draw.ShouldDraw(s)
	}
	if m.gated && !edited {
		return
	}
	m.gated = false
	m.snap = s
	m.frame = Frame(m.engine, s, m.cols, m.rows)
}

// Frame draws a snapshot onto a Braille canvas of cols x rows cells.
func Frame(e *draw.Engine, s *viewer.Snapshot, cols, rows int) string {
	w, h := s.Options.Drawing.CanvasWidth, s.Options.Drawing.CanvasHeight
	if w <= 0 || h <= 0 {
		return ""
	}
	b := draw.NewBraille(cols, rows, w, h)
	e.Draw(b, s)
	return b.String()
}

// toScene maps a terminal cell to the scene pixel at its centre.
func (m Model) toScene(col, row int) (float64, float64, bool) {
	cx, cy := col-canvasPadX, row-headerRows
	if cx < 0 || cy < 0 || cx >= m.cols || cy >= m.rows {
		return 0, 0, false
	}
	return (float64(cx) + 0.5) * 2 * pixelsPerDot, (float64(cy) + 0.5) * 4 * pixelsPerDot, true
}

// layoutOps are the letter keys of layout commands.
var layoutOps = map[string]viewer.Op{
	"s": viewer.OpSort,
	"c": viewer.OpClearSort,
	"f": viewer.OpAddFacet,
	"x": viewer.OpClearFacets,
}

func commandFor(key string, all bool) (viewer.Command, bool) {
	if op, ok := layoutOps[key]; ok {
		return viewer.Command{Op: op, ApplyToAll: all}, true
	}
	c, ok := viewer.KeyCommand(key)
	if ok && c.Op.PerLayout() {
		c.ApplyToAll = all
	}
	return c, ok
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.all = !m.all
	case "?":
		m.showHelp = !m.showHelp
	case "t":
		m.setTheme(Themes[(m.theme+1)%len(Themes)].Name)
	default:
		if c, ok := commandFor(key, m.all); ok {
			m.v.Do(c)
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.showHelp {
		return m.help()
	}
	var b strings.Builder
	status := m.st.paused.Render("○ paused")
	if m.snap != nil && m.snap.Running {
		status = m.st.running.Render("● running")
	}
	scope := m.st.muted.Render("selected layouts")
	if m.all {
		scope = m.st.accent.Render("all layouts")
	}
	fmt.Fprintf(&b, "%s  %s  %s\n\n", m.st.header.Render(m.title), status, scope)

	canvas := m.st.canvas.Render(strings.TrimRight(m.frame, "\n"))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, canvas, m.st.panel.Render(m.panel())))
	b.WriteString("\n" + m.st.muted.Render(" ←→ time  ↑↓ bit  pgup/pgdn scroll  s sort  f facet  tab scope  space run  ? help  q quit"))
	return b.String()
}

func (m Model) panel() string {
	s, st := m.snap, m.st
	if s == nil {
		return st.muted.Render("waiting for steps")
	}
	var b strings.Builder
	if latest, ok := s.Latest(); ok {
		fmt.Fprintf(&b, "%s %s\n", st.muted.Render("step"), st.text.Render(fmt.Sprint(latest.Timestep)))
	}
	fmt.Fprintf(&b, "%s %s\n\n", st.muted.Render("kept"), st.text.Render(fmt.Sprint(len(s.History))))

	b.WriteString(st.header.Render("selection") + "\n")
	for _, e := range s.Selection {
		if !e.Named() {
			fmt.Fprintf(&b, "%s\n", st.muted.Render(fmt.Sprintf("nothing @ dt %d", e.Dt)))
			continue
		}
		line := fmt.Sprintf("%s #%d @ dt %d", e.Path, e.ID, e.Dt)
		if e.Segment != nil {
			line += fmt.Sprintf(" c%d s%d", e.Segment.Cell, e.Segment.Segment)
		}
		b.WriteString(st.accent.Render(line) + "\n")
	}
	for _, p := range s.Paths {
		if l := s.Layouts[p]; l != nil {
			fmt.Fprintf(&b, "%s %s\n", st.faint.Render(p.String()), st.muted.Render(draw.ScrollStatus(l)))
		}
	}

	path := focusPath(s)
	if series := ActivitySeries(s, path); len(series) > 1 {
		chart := asciigraph.Plot(series,
			asciigraph.Height(5),
			asciigraph.Width(panelWidth-8),
			asciigraph.Caption(path.String()+" active"))
		b.WriteString("\n" + chart + "\n")
	}
	for _, m := range PathMetrics(s, path) {
		fmt.Fprintf(&b, "%s %s\n", st.muted.Render(m.Name()), st.text.Render(fmt.Sprintf("%.2f", m.Value())))
	}
	return b.String()
}

// focusPath is the primary entry's path, or the first layer.
func focusPath(s *viewer.Snapshot) htm.Path {
	if p := s.Selection.Top().Path; !p.IsZero() {
		return p
	}
	for _, p := range s.Paths {
		if p.IsLayer() {
			return p
		}
	}
	if len(s.Paths) > 0 {
		return s.Paths[0]
	}
	return htm.Path{}
}

// ActivitySeries counts a path's active ids per retained step, oldest
// first. It stops at the first step whose data has not arrived.
func ActivitySeries(s *viewer.Snapshot, p htm.Path) []float64 {
	var out []float64
	for dt := len(s.History) - 1; dt >= 0; dt-- {
		st := s.Payload(dt).State(p)
		if st == nil {
			if out != nil {
				break
			}
			continue
		}
		out = append(out, float64(len(st.Active)))
	}
	return out
}

// PathMetrics summarises a path over the retained steps that have arrived.
func PathMetrics(s *viewer.Snapshot, p htm.Path) []metrics.Metric {
	topo, ok := s.Template.Topology(p)
	if !ok {
		return nil
	}
	ms := metrics.Standard(topo.Size())
	for dt := len(s.History) - 1; dt >= 0; dt-- {
		st := s.Payload(dt).State(p)
		if st == nil {
			continue
		}
		for _, m := range ms {
			m.Observe(st.Active, st.Predicted)
		}
	}
	return ms
}

func (m Model) help() string {
	lines := []string{
		m.st.header.Render("keys"),
		"",
		"←/→        step backward / forward (advances at the present)",
		"↑/↓        previous / next bit in the layout order",
		"pgup/pgdn  scroll layouts",
		"s / c      sort by recent activity / clear sort",
		"f / x      add facet / clear facets",
		"tab        apply layout commands to all layouts",
		"space      run / pause",
		"t          next colour theme",
		"click      select; shift-click adds to the selection",
		"?          close help",
	}
	return strings.Join(lines, "\n")
}

// Run starts the program and returns when the user quits.
func Run(v *viewer.Viewer, title, theme string, log zerolog.Logger) error {
	p := tea.NewProgram(New(v, title, theme, log), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
