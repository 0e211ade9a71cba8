package layout

import (
	"math"

	"github.com/san-kum/htmviz/internal/config"
)

type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

func (l *Layout) Bounds() Rect {
	return Rect{X: l.Left, Y: l.Top, W: l.Width, H: l.Height}
}

// Hit returns the id under a point. In axis mode dt is the time column's
// offset; in spatial mode time is not pickable and hasDt is false.
func (l *Layout) Hit(x, y float64) (id, dt int, hasDt, ok bool) {
	if l.Size() == 0 || !l.Bounds().Contains(x, y) {
		return 0, 0, false, false
	}
	gx := int(math.Floor((x - l.Left) / l.ElemW))
	gy := int(math.Floor((y - l.Top) / l.ElemH))
	if gy >= l.Rows() {
		return 0, 0, false, false
	}
	if l.Mode == config.ModeSpatial {
		if gx >= l.GridW {
			return 0, 0, false, false
		}
		p := l.Scroll + gy*l.GridW + gx
		if p >= l.Size() {
			return 0, 0, false, false
		}
		return l.Order[p], 0, false, true
	}
	p := l.Scroll + gy
	if p >= l.Size() || gx >= l.Window {
		return 0, 0, false, false
	}
	return l.Order[p], l.DtOffset + gx, true, true
}

// ElementRect is the on-screen rectangle of an id at a dt. The dt is ignored
// in spatial mode.
func (l *Layout) ElementRect(id, dt int) (Rect, bool) {
	p, ok := l.Pos(id)
	if !ok {
		return Rect{}, false
	}
	q := p - l.Scroll
	if q < 0 || q >= l.Capacity() {
		return Rect{}, false
	}
	if l.Mode == config.ModeSpatial {
		return Rect{
			X: l.Left + float64(q%l.GridW)*l.ElemW,
			Y: l.Top + float64(q/l.GridW)*l.ElemH,
			W: l.ElemW,
			H: l.ElemH,
		}, true
	}
	col := dt - l.DtOffset
	if col < 0 || col >= l.Window {
		return Rect{}, false
	}
	return Rect{
		X: l.Left + float64(col)*l.ElemW,
		Y: l.Top + float64(q)*l.ElemH,
		W: l.ElemW,
		H: l.ElemH,
	}, true
}

// TimeColumn is the strip covering every visible id at one dt. In spatial
// mode it is the whole layout.
func (l *Layout) TimeColumn(dt int) (Rect, bool) {
	if l.Mode == config.ModeSpatial {
		return l.Bounds(), true
	}
	col := dt - l.DtOffset
	if col < 0 || col >= l.Window {
		return Rect{}, false
	}
	from, to := l.VisibleRange()
	return Rect{X: l.Left + float64(col)*l.ElemW, Y: l.Top, W: l.ElemW, H: float64(to-from) * l.ElemH}, true
}

// Timeline is the strip of step boxes above the layouts, dt 0 on the left.
type Timeline struct {
	Left, Top float64
	Cell      float64
	Count     int
}

func NewTimeline(d config.Drawing, steps int) Timeline {
	cell := d.TimelineHeight
	if steps > 0 && d.CanvasWidth > 0 {
		if fit := (float64(d.CanvasWidth) - 2*d.LeftMargin) / float64(steps); fit < cell {
			cell = fit
		}
	}
	return Timeline{Left: d.LeftMargin, Top: 0, Cell: cell, Count: steps}
}

func (t Timeline) Rect(dt int) (Rect, bool) {
	if dt < 0 || dt >= t.Count || t.Cell <= 0 {
		return Rect{}, false
	}
	return Rect{X: t.Left + float64(dt)*t.Cell, Y: t.Top, W: t.Cell, H: t.Cell}, true
}

func (t Timeline) DtAt(x float64) (int, bool) {
	if t.Cell <= 0 || x < t.Left {
		return 0, false
	}
	dt := int((x - t.Left) / t.Cell)
	if dt >= t.Count {
		return 0, false
	}
	return dt, true
}
