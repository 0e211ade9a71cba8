// Package viewer is the command loop of the visualization. Every change to
// the view state (UI commands, clicks, admitted steps, option updates and
// journal replies) is queued and handled one at a time by a single
// goroutine, which publishes an immutable Snapshot after each change.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/htmviz/internal/config"
	"github.com/san-kum/htmviz/internal/drawcache"
	"github.com/san-kum/htmviz/internal/fetch"
	"github.com/san-kum/htmviz/internal/htm"
	"github.com/san-kum/htmviz/internal/journal"
	"github.com/san-kum/htmviz/internal/layout"
	"github.com/san-kum/htmviz/internal/selection"
)

const inboxSize = 64

var ErrClosed = errors.New("viewer closed")

// Driver produces steps. Advance and Toggle must return without waiting
// for the step to be made; steps arrive later through Admit.
type Driver interface {
	Advance()
	Toggle() bool
	Running() bool
}

type (
	commandMsg Command
	clickMsg   struct {
		x, y       float64
		appendMode bool
	}
	stepMsg    htm.Step
	optionsMsg config.Options
	resizeMsg  size
	fetchMsg   fetch.Result
	flushMsg   chan struct{}
	refreshMsg struct{}
)

type size struct{ w, h int }

type Viewer struct {
	log    zerolog.Logger
	driver Driver

	inbox     chan any
	resize    chan size
	done      chan struct{}
	closeOnce sync.Once

	snap      atomic.Pointer[Snapshot]
	obsMu     sync.Mutex
	observers map[int]func(*Snapshot)
	nextObs   int

	// Owned by the command goroutine.
	st    Snapshot
	fetch *fetch.Coordinator
}

// New creates a viewer talking to conn. The driver may be nil, in which
// case stepping past the present and toggle-run do nothing.
func New(conn journal.Conn, driver Driver, opts config.Options, log zerolog.Logger) *Viewer {
	v := &Viewer{
		log:       log.With().Str("component", "viewer").Logger(),
		driver:    driver,
		inbox:     make(chan any, inboxSize),
		resize:    make(chan size, 1),
		done:      make(chan struct{}),
		observers: make(map[int]func(*Snapshot)),
	}
	v.fetch = fetch.New(conn, func(r fetch.Result) { v.post(fetchMsg(r)) }, log)
	v.st = Snapshot{
		Options:   opts,
		Layouts:   layout.Layouts{},
		Selection: selection.New(),
		Versions:  drawcache.Versions{},
		Data:      v.fetch.Data(),
	}
	snap := v.st
	v.snap.Store(&snap)
	return v
}

// Snapshot returns the latest published state.
func (v *Viewer) Snapshot() *Snapshot { return v.snap.Load() }

// Subscribe calls fn with every published snapshot, on the command
// goroutine. fn must not block. The returned function unsubscribes.
func (v *Viewer) Subscribe(fn func(*Snapshot)) func() {
	v.obsMu.Lock()
	defer v.obsMu.Unlock()
	id := v.nextObs
	v.nextObs++
	v.observers[id] = fn
	return func() {
		v.obsMu.Lock()
		defer v.obsMu.Unlock()
		delete(v.observers, id)
	}
}

func (v *Viewer) Do(c Command) { v.post(commandMsg(c)) }

// Click reports a click at canvas coordinates. appendMode is the
// multi-select modifier.
func (v *Viewer) Click(x, y float64, appendMode bool) {
	v.post(clickMsg{x: x, y: y, appendMode: appendMode})
}

// Refresh republishes the state, picking up a driver that stopped on its
// own.
func (v *Viewer) Refresh() { v.post(refreshMsg{}) }

// Admit queues a newly produced step.
func (v *Viewer) Admit(step htm.Step) { v.post(stepMsg(step)) }

func (v *Viewer) SetOptions(opts config.Options) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("set options: %w", err)
	}
	v.post(optionsMsg(opts))
	return nil
}

// Resize reports a new canvas size. Sizes reported faster than they are
// applied are coalesced; only the last one is applied.
func (v *Viewer) Resize(w, h int) {
	for {
		select {
		case v.resize <- size{w, h}:
			return
		default:
		}
		select {
		case <-v.resize:
		default:
		}
	}
}

// Flush waits until everything queued before it has been handled. Journal
// replies still in flight are not waited for.
func (v *Viewer) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case v.inbox <- flushMsg(ack):
	case <-ctx.Done():
		return ctx.Err()
	case <-v.done:
		return ErrClosed
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-v.done:
		return ErrClosed
	}
}

// Close stops Run. Messages still queued are dropped.
func (v *Viewer) Close() {
	v.closeOnce.Do(func() { close(v.done) })
}

func (v *Viewer) post(m any) {
	select {
	case v.inbox <- m:
	case <-v.done:
	}
}

// Run handles queued messages until ctx is cancelled or Close is called.
// A second goroutine turns resize events into option updates.
func (v *Viewer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return v.loop(ctx) })
	g.Go(func() error { return v.resizeLoop(ctx) })
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (v *Viewer) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-v.done:
			return nil
		case m := <-v.inbox:
			v.handle(m)
		}
	}
}

func (v *Viewer) resizeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-v.done:
			return nil
		case s := <-v.resize:
			v.post(resizeMsg(s))
		}
	}
}

func (v *Viewer) handle(m any) {
	switch m := m.(type) {
	case flushMsg:
		close(m)
		return
	case fetchMsg:
		if v.fetch.Merge(fetch.Result(m)) {
			v.st.Data = v.fetch.Data()
			v.publish()
		}
		return
	case commandMsg:
		v.log.Debug().Stringer("command", Command(m)).Msg("command")
		v.command(Command(m))
		v.st.Edits++
	case clickMsg:
		v.click(m.x, m.y, m.appendMode)
		v.st.Edits++
	case stepMsg:
		v.admit(htm.Step(m))
	case optionsMsg:
		v.setOptions(config.Options(m))
		v.st.Edits++
	case resizeMsg:
		opts := v.st.Options
		opts.Drawing.CanvasWidth, opts.Drawing.CanvasHeight = m.w, m.h
		v.setOptions(opts)
		v.st.Edits++
	case refreshMsg:
	default:
		v.log.Debug().Str("type", fmt.Sprintf("%T", m)).Msg("unknown message")
		return
	}
	if v.driver != nil {
		v.st.Running = v.driver.Running()
	}
	v.sync()
	v.publish()
}

func (v *Viewer) sync() {
	if len(v.st.Paths) == 0 {
		return
	}
	if v.fetch.Sync(v.st.Layouts, v.st.Options, v.st.Selection, v.st.History) {
		v.log.Debug().Msg("viewport changed, registering")
	}
	v.st.Data = v.fetch.Data()
}

func (v *Viewer) publish() {
	v.st.Seq++
	snap := v.st
	v.snap.Store(&snap)

	v.obsMu.Lock()
	fns := make([]func(*Snapshot), 0, len(v.observers))
	for _, fn := range v.observers {
		fns = append(fns, fn)
	}
	v.obsMu.Unlock()
	for _, fn := range fns {
		fn(&snap)
	}
}

func (v *Viewer) admit(step htm.Step) {
	st := &v.st
	if len(st.Paths) == 0 || !st.Template.Equal(step.Template) {
		st.Template = step.Template
		st.Layouts = layout.Rebuild(st.Layouts, st.Template, st.Options.Drawing)
		st.Paths = st.Template.Paths()
	}
	hist := make(selection.History, 0, len(st.History)+1)
	hist = append(hist, step.StepID)
	hist = append(hist, st.History...)
	if keep := st.Options.KeepSteps; keep > 0 && len(hist) > keep {
		hist = hist[:keep]
	}
	st.History = hist
	st.Selection = selection.Admit(st.Selection, hist)
	v.centre()
}

func (v *Viewer) setOptions(opts config.Options) {
	st := &v.st
	ch := config.Diff(st.Options, opts)
	keepChanged := st.Options.KeepSteps != opts.KeepSteps
	if !ch.Any() && !keepChanged {
		return
	}
	st.Options = opts

	if ch.Drawing {
		st.Versions = st.Versions.Bump(drawcache.GroupDrawing)
	}
	var touched []htm.Path
	for _, p := range st.Paths {
		if (p.IsInput() && ch.Inbits) || (p.IsLayer() && ch.Columns) {
			touched = append(touched, p)
		}
	}
	st.Versions = st.Versions.Invalidate(touched)

	if ch.Geometry && len(st.Paths) > 0 {
		st.Layouts = layout.Rebuild(st.Layouts, st.Template, opts.Drawing)
		v.centre()
	}
	if keep := opts.KeepSteps; keep > 0 && len(st.History) > keep {
		st.History = st.History[:keep:keep]
		st.Selection = selection.Clamp(st.Selection, st.History)
		v.centre()
	}
}

func (v *Viewer) command(c Command) {
	st := &v.st
	switch c.Op {
	case OpStepBackward:
		st.Selection = selection.StepBackward(st.Selection, st.History)
		v.centre()
	case OpStepForward:
		sel, advance := selection.StepForward(st.Selection, st.History)
		st.Selection = sel
		if advance && v.driver != nil {
			v.driver.Advance()
		}
		v.centre()
	case OpBitUp:
		st.Selection = selection.BitUp(st.Selection, st.Layouts)
	case OpBitDown:
		st.Selection = selection.BitDown(st.Selection, st.Layouts)
	case OpToggleRun:
		if v.driver != nil {
			st.Running = v.driver.Toggle()
		}
	case OpSort:
		v.eachTarget(c.ApplyToAll, func(l *layout.Layout) *layout.Layout {
			return layout.SortByRecentActivity(l, v.activeWindow(l))
		})
	case OpClearSort:
		v.eachTarget(c.ApplyToAll, layout.ClearSort)
	case OpAddFacet:
		dt := st.Selection.Top().Dt
		pl := st.Payload(dt)
		if pl == nil {
			return
		}
		v.eachTarget(c.ApplyToAll, func(l *layout.Layout) *layout.Layout {
			s := pl.State(l.Path)
			if s == nil {
				return l
			}
			return layout.AddFacet(l, s.Active, st.History[dt].Timestep)
		})
	case OpClearFacets:
		v.eachTarget(c.ApplyToAll, layout.ClearFacets)
	case OpScrollUp:
		v.eachTarget(c.ApplyToAll, func(l *layout.Layout) *layout.Layout { return layout.ScrollBy(l, -1) })
	case OpScrollDown:
		v.eachTarget(c.ApplyToAll, func(l *layout.Layout) *layout.Layout { return layout.ScrollBy(l, 1) })
	}
}

// click resolves a canvas click against, in order, the segments of the
// cell diagram, the timeline and the layouts.
func (v *Viewer) click(x, y float64, appendMode bool) {
	st := &v.st
	if g, _, ok := st.CellsGeometry(); ok {
		if cell, seg, ok := g.HitSegment(x, y); ok {
			st.Selection = selection.WithSegment(st.Selection, cell, seg)
			return
		}
	}
	tl := st.Timeline()
	if dt, ok := tl.DtAt(x); ok && y >= tl.Top && y < tl.Top+tl.Cell {
		st.Selection = selection.ClickTimeline(st.Selection, dt, appendMode, st.History)
		v.centre()
		return
	}
	hit, ok := selection.Hit(st.Layouts, st.Paths, x, y, st.Selection, st.History)
	st.Selection = selection.Click(st.Selection, hit, ok, appendMode)
}

// eachTarget replaces the layouts a command applies to. The layouts map
// is copied, never written in place.
func (v *Viewer) eachTarget(all bool, fn func(*layout.Layout) *layout.Layout) {
	st := &v.st
	paths := st.Selection.Paths()
	if all || len(paths) == 0 {
		paths = st.Paths
	}
	var out layout.Layouts
	for _, p := range paths {
		l := st.Layouts[p]
		if l == nil {
			continue
		}
		if nl := fn(l); nl != l {
			if out == nil {
				out = maps.Clone(st.Layouts)
			}
			out[p] = nl
		}
	}
	if out != nil {
		st.Layouts = out
	}
}

// centre moves each axis layout's time window so the primary entry's dt
// sits in its middle, clamped to the history.
func (v *Viewer) centre() {
	dt := v.st.Selection.Top().Dt
	n := len(v.st.History)
	v.eachTarget(true, func(l *layout.Layout) *layout.Layout {
		if l.Mode == config.ModeSpatial || l.Window <= 0 {
			return l
		}
		off := min(max(dt-l.Window/2, 0), max(0, n-l.Window))
		return layout.WithDtOffset(l, off)
	})
}

// activeWindow collects the active ids of a layout over its time window,
// most recent first. Steps without data count as inactive.
func (v *Viewer) activeWindow(l *layout.Layout) []htm.IDSet {
	n := min(len(v.st.History), max(l.Window, 1))
	window := make([]htm.IDSet, n)
	for dt := range window {
		if s := v.st.Payload(dt).State(l.Path); s != nil {
			window[dt] = s.Active
		}
	}
	return window
}
