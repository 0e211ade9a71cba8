package draw

import (
	"image"

	"github.com/rs/zerolog"

	"github.com/san-kum/htmviz/internal/config"
	"github.com/san-kum/htmviz/internal/drawcache"
	"github.com/san-kum/htmviz/internal/htm"
	"github.com/san-kum/htmviz/internal/journal"
	"github.com/san-kum/htmviz/internal/layout"
	"github.com/san-kum/htmviz/internal/viewer"
)

const statsEvery = 100

// Engine draws snapshots. It owns its image cache and must be used from one
// goroutine at a time.
type Engine struct {
	cache   *drawcache.Cache
	palette Palette
	log     zerolog.Logger
	frames  uint64
}

func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		cache:   drawcache.New(log),
		palette: DefaultPalette(),
		log:     log.With().Str("component", "draw").Logger(),
	}
}

func (e *Engine) Cache() *drawcache.Cache { return e.cache }

// ShouldDraw reports whether a snapshot is due for an animated frame:
// animation is on, a step exists, the canvas size is known and the latest
// timestep falls on the animation stride.
func ShouldDraw(s *viewer.Snapshot) bool {
	latest, ok := s.Latest()
	if !ok {
		return false
	}
	d := s.Options.Drawing
	return d.Animate && d.CanvasWidth > 0 && d.CanvasHeight > 0 &&
		latest.Timestep%max(1, d.AnimationStride) == 0
}

// Offsets returns the dts drawn for a layout: the selected dt in spatial
// mode, otherwise the layout's time window clamped to the history.
func Offsets(l *layout.Layout, s *viewer.Snapshot) []int {
	if l.Mode == config.ModeSpatial {
		dt := s.Selection.Top().Dt
		if dt >= len(s.History) {
			return nil
		}
		return []int{dt}
	}
	var out []int
	for dt := l.DtOffset; dt < l.DtOffset+l.Window && dt < len(s.History); dt++ {
		out = append(out, dt)
	}
	return out
}

// Draw composes a full frame.
func (e *Engine) Draw(c Canvas, s *viewer.Snapshot) {
	c.Clear(e.palette.Background)
	e.prune(s)

	multi := false
	for _, p := range s.Paths {
		l := s.Layouts[p]
		if l == nil {
			continue
		}
		e.drawLabels(c, l)
		offsets := Offsets(l, s)
		multi = multi || len(offsets) > 1
		for _, dt := range offsets {
			e.drawStep(c, s, l, dt)
		}
	}
	for _, p := range s.Paths {
		if l := s.Layouts[p]; l != nil {
			e.drawFacets(c, l)
		}
	}
	e.drawSelection(c, s, multi)
	e.drawSynapses(c, s)
	e.drawCells(c, s)
	e.drawTimeline(c, s)

	e.frames++
	if e.frames%statsEvery == 0 {
		hits, misses := e.cache.Stats()
		e.log.Debug().Int("hits", hits).Int("misses", misses).Int("images", e.cache.Len()).Msg("image cache")
	}
}

func (e *Engine) prune(s *viewer.Snapshot) {
	windows := make(map[htm.Path]drawcache.Window, len(s.Layouts))
	for p, l := range s.Layouts {
		windows[p] = drawcache.Window{Order: l.OrderVersion, Scroll: l.Scroll}
	}
	steps := make(map[htm.StepID]*htm.Payload, len(s.History))
	for _, id := range s.History {
		steps[id] = s.Data.Steps[id]
	}
	e.cache.Prune(windows, steps)
}

func (e *Engine) drawLabels(c Canvas, l *layout.Layout) {
	c.Text(l.Path.String(), l.Left, l.Top-14, e.palette.Text)
	c.Text(ScrollStatus(l), l.Left, l.Top-2, e.palette.Text)
}

func (e *Engine) drawStep(c Canvas, s *viewer.Snapshot, l *layout.Layout, dt int) {
	origin, ok := l.TimeColumn(dt)
	if !ok {
		return
	}
	base := drawcache.Key{Channel: "background", Order: l.OrderVersion, Scroll: l.Scroll}
	bg := e.cache.WithCache(l.Path, l.Generation, base, s.Versions, []drawcache.Group{drawcache.GroupDrawing}, func() image.Image {
		return e.background(l)
	})
	if bg != nil {
		c.DrawImage(bg, origin.X, origin.Y)
	}

	step := s.History[dt]
	pl := s.Data.Steps[step]
	st := pl.State(l.Path)
	if st == nil {
		return
	}
	groups := []drawcache.Group{drawcache.GroupFor(l.Path), drawcache.GroupDrawing}
	for _, ov := range config.Overlays() {
		if !s.Options.Enabled(l.Path.Kind, ov) {
			continue
		}
		key := drawcache.Key{Step: step, Channel: ov.String(), Order: l.OrderVersion, Scroll: l.Scroll, Payload: pl}
		img := e.cache.WithCache(l.Path, l.Generation, key, s.Versions, groups, func() image.Image {
			return e.overlay(l, st, ov)
		})
		if img != nil {
			c.DrawImage(img, origin.X, origin.Y)
		}
	}
	if pl.Break {
		c.Line(origin.X, origin.Y, origin.X, origin.Y+origin.H, e.palette.Break, 1)
	}
}

func (e *Engine) drawFacets(c Canvas, l *layout.Layout) {
	from, to := l.VisibleRange()
	for _, f := range l.Facets {
		start, end := max(f.Start, from), min(f.Start+len(f.IDs), to)
		if start >= end {
			continue
		}
		if l.Mode == config.ModeSpatial {
			for p := start; p < end; p++ {
				if r, ok := l.ElementRect(l.Order[p], 0); ok {
					c.StrokeRect(r, e.palette.Facet, 1)
				}
			}
			continue
		}
		x := l.Left - 3
		y0 := l.Top + float64(start-from)*l.ElemH
		y1 := l.Top + float64(end-from)*l.ElemH
		c.Line(x, y0, x, y1, e.palette.Facet, 2)
	}
}

func (e *Engine) drawSelection(c Canvas, s *viewer.Snapshot, multi bool) {
	if multi && len(s.Selection) == 1 {
		dt := s.Selection[0].Dt
		for _, p := range s.Paths {
			l := s.Layouts[p]
			if l == nil || l.Mode == config.ModeSpatial {
				continue
			}
			if r, ok := l.TimeColumn(dt); ok {
				c.FillRect(r, e.palette.TimeColumn)
			}
		}
	}
	for _, en := range s.Selection {
		if !en.Named() {
			continue
		}
		l := s.Layouts[en.Path]
		if l == nil {
			continue
		}
		if r, ok := l.ElementRect(en.ID, en.Dt); ok {
			c.StrokeRect(layout.Rect{X: r.X - 1, Y: r.Y - 1, W: r.W + 2, H: r.H + 2}, e.palette.Highlight, 2)
		}
	}
}

func (e *Engine) drawSynapses(c Canvas, s *viewer.Snapshot) {
	for _, en := range s.Selection {
		syn := s.Data.Synapses[en.Key()]
		if syn == nil {
			continue
		}
		for _, list := range [][]htm.Synapse{syn.In, syn.Out} {
			for _, sy := range list {
				e.drawSynapse(c, s, sy, en.Dt)
			}
		}
	}
}

func (e *Engine) drawSynapse(c Canvas, s *viewer.Snapshot, sy htm.Synapse, dt int) {
	src, dst := s.Layouts[sy.SrcPath], s.Layouts[sy.DstPath]
	if src == nil || dst == nil {
		return
	}
	sr, ok := src.ElementRect(sy.SrcID, dt)
	if !ok {
		return
	}
	dr, ok := dst.ElementRect(sy.DstID, dt)
	if !ok {
		return
	}
	col := e.palette.Synapse[sy.State]
	if sy.HasPermanence {
		col = withAlpha(col, 0.25+0.75*min(1, sy.Permanence/(2*journal.ConnectedPermanence)))
	}
	c.Line(sr.X+sr.W, sr.Y+sr.H/2, dr.X, dr.Y+dr.H/2, col, 1)
}

func (e *Engine) drawTimeline(c Canvas, s *viewer.Snapshot) {
	tl := s.Timeline()
	for dt := 0; dt < tl.Count; dt++ {
		r, ok := tl.Rect(dt)
		if !ok {
			continue
		}
		c.FillRect(layout.Rect{X: r.X + 1, Y: r.Y + 1, W: r.W - 2, H: r.H - 2}, e.palette.Timeline)
		if pl := s.Payload(dt); pl != nil && pl.Break {
			c.Line(r.X+r.W, r.Y, r.X+r.W, r.Y+r.H, e.palette.Break, 1)
		}
	}
	for _, en := range s.Selection {
		if r, ok := tl.Rect(en.Dt); ok {
			c.FillRect(layout.Rect{X: r.X + 2, Y: r.Y + 2, W: r.W - 4, H: r.H - 4}, e.palette.Highlight)
		}
	}
}
