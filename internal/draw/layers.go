package draw

import (
	"image"

	"github.com/fogleman/gg"

	"github.com/san-kum/htmviz/internal/config"
	"github.com/san-kum/htmviz/internal/htm"
	"github.com/san-kum/htmviz/internal/layout"
)

// Step images cover the visible ids of one layout at one dt. Their origin
// is the layout's time column for that dt.

func stepSize(l *layout.Layout) (int, int) {
	from, to := l.VisibleRange()
	n := to - from
	if n == 0 {
		return 0, 0
	}
	if l.Mode == config.ModeSpatial {
		rows := (n + l.GridW - 1) / l.GridW
		return int(float64(l.GridW) * l.ElemW), int(float64(rows) * l.ElemH)
	}
	return int(l.ElemW), int(float64(n) * l.ElemH)
}

// cell is the rectangle of the q-th visible element, relative to the image.
func cell(l *layout.Layout, q int) layout.Rect {
	inset := 0.0
	if l.ElemW >= 3 {
		inset = 0.5
	}
	x, y := 0.0, float64(q)*l.ElemH
	if l.Mode == config.ModeSpatial {
		x = float64(q%l.GridW) * l.ElemW
		y = float64(q/l.GridW) * l.ElemH
	}
	return layout.Rect{X: x + inset, Y: y + inset, W: l.ElemW - 2*inset, H: l.ElemH - 2*inset}
}

// eachVisible calls fn with the position and id of every visible element.
func eachVisible(l *layout.Layout, fn func(q, id int)) {
	from, to := l.VisibleRange()
	for p := from; p < to; p++ {
		fn(p-from, l.Order[p])
	}
}

func newContext(l *layout.Layout) *gg.Context {
	w, h := stepSize(l)
	if w == 0 || h == 0 {
		return nil
	}
	return gg.NewContext(w, h)
}

func (e *Engine) background(l *layout.Layout) image.Image {
	dc := newContext(l)
	if dc == nil {
		return nil
	}
	dc.SetColor(e.palette.Element)
	eachVisible(l, func(q, _ int) {
		r := cell(l, q)
		dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	})
	dc.Fill()
	return dc.Image()
}

// overlay renders one channel of a path's state, or nil when the channel
// marks nothing in the visible window.
func (e *Engine) overlay(l *layout.Layout, st *htm.PathState, ov config.Overlay) image.Image {
	dc := newContext(l)
	if dc == nil {
		return nil
	}
	drawn := false
	switch ov {
	case config.OverlayActive, config.OverlayPredicted, config.OverlayTemporalPooling:
		ids := st.Active
		switch ov {
		case config.OverlayPredicted:
			ids = st.Predicted
		case config.OverlayTemporalPooling:
			ids = st.TemporalPooling
		}
		eachVisible(l, func(q, id int) {
			if !ids.Has(id) {
				return
			}
			drawn = true
			r := cell(l, q)
			switch ov {
			case config.OverlayActive:
				dc.SetColor(e.palette.Active)
				dc.DrawRectangle(r.X, r.Y, r.W, r.H)
				dc.Fill()
			case config.OverlayPredicted:
				dc.SetColor(e.palette.Predicted)
				dc.SetLineWidth(1.5)
				dc.DrawRectangle(r.X+0.75, r.Y+0.75, r.W-1.5, r.H-1.5)
				dc.Stroke()
			default:
				cx, cy := r.Center()
				dc.SetColor(e.palette.Pooling)
				dc.DrawCircle(cx, cy, r.W/4)
				dc.Fill()
			}
		})
	default:
		values := heatValues(st, ov)
		top := 0.0
		for _, v := range values {
			top = max(top, v)
		}
		if top <= 0 {
			return nil
		}
		base := e.palette.Heat[ov]
		eachVisible(l, func(q, id int) {
			v, ok := values[id]
			if !ok || v <= 0 {
				return
			}
			drawn = true
			r := cell(l, q)
			dc.SetColor(withAlpha(base, 0.85*v/top))
			dc.DrawRectangle(r.X, r.Y, r.W, r.H)
			dc.Fill()
		})
	}
	if !drawn {
		return nil
	}
	return dc.Image()
}

func heatValues(st *htm.PathState, ov config.Overlay) map[int]float64 {
	switch ov {
	case config.OverlayOverlap:
		return st.Overlaps
	case config.OverlayBoost:
		return st.Boosts
	case config.OverlayFrequency:
		return st.Frequencies
	case config.OverlaySegmentCount:
		out := make(map[int]float64, len(st.SegmentCounts))
		for id, n := range st.SegmentCounts {
			out[id] = float64(n)
		}
		return out
	}
	return nil
}
