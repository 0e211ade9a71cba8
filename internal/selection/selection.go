// Package selection is the focus state of the viewer: an ordered stack of
// entries, each naming an element of a layout at a time offset. The last
// entry is primary. Every transition returns a new Selection and leaves its
// argument untouched.
package selection

import (
	"github.com/samber/lo"

	"github.com/san-kum/htmviz/internal/htm"
	"github.com/san-kum/htmviz/internal/layout"
)

// NoID marks an entry that names no element.
const NoID = -1

// CellSegment refines a column entry to one distal segment of one cell.
type CellSegment struct {
	Cell    int
	Segment int
}

type Entry struct {
	Path    htm.Path
	ID      int
	Dt      int
	ModelID string
	Segment *CellSegment
}

// Key identifies an entry independently of its time offset. Fetched data
// is filed under it so that replies survive dt changes.
type Key struct {
	Path    htm.Path
	ID      int
	ModelID string
}

func (e Entry) Key() Key {
	return Key{Path: e.Path, ID: e.ID, ModelID: e.ModelID}
}

// Named reports whether the entry points at an element.
func (e Entry) Named() bool {
	return !e.Path.IsZero() && e.ID != NoID
}

func (e Entry) same(o Entry) bool {
	return e.Path == o.Path && e.ID == o.ID && e.Dt == o.Dt
}

// Selection is never empty.
type Selection []Entry

func New() Selection {
	return Selection{{ID: NoID}}
}

func (s Selection) Top() Entry {
	if len(s) == 0 {
		return Entry{ID: NoID}
	}
	return s[len(s)-1]
}

// Cleared reports whether the selection names nothing.
func (s Selection) Cleared() bool {
	return len(s) <= 1 && !s.Top().Named()
}

func (s Selection) Paths() []htm.Path {
	return lo.Uniq(lo.FilterMap(s, func(e Entry, _ int) (htm.Path, bool) {
		return e.Path, !e.Path.IsZero()
	}))
}

func (s Selection) clone() Selection {
	return append(Selection(nil), s...)
}

func (s Selection) withTop(e Entry) Selection {
	out := s.clone()
	if len(out) == 0 {
		return Selection{e}
	}
	out[len(out)-1] = e
	return out
}

// Clear keeps only the time offset of the primary entry.
func Clear(s Selection) Selection {
	return Selection{{ID: NoID, Dt: s.Top().Dt, ModelID: s.Top().ModelID}}
}

// History is the sequence of retained step identities, most recent first.
type History []htm.StepID

// MaxDt is the largest selectable time offset. The oldest retained step is
// not selectable.
func (h History) MaxDt() int {
	return max(0, len(h)-2)
}

func (h History) ModelID(dt int) string {
	if dt < 0 || dt >= len(h) {
		return ""
	}
	return h[dt].ModelID
}

func (h History) clamp(dt int) int {
	return min(max(dt, 0), h.MaxDt())
}

// Hit finds the element under a canvas point. Paths are tested in order.
// In axis mode the time column gives dt, clamped to the selectable range;
// in spatial mode dt is taken from the current primary entry.
func Hit(ls layout.Layouts, paths []htm.Path, x, y float64, s Selection, h History) (Entry, bool) {
	for _, p := range paths {
		l := ls[p]
		if l == nil {
			continue
		}
		id, dt, hasDt, ok := l.Hit(x, y)
		if !ok {
			continue
		}
		if !hasDt {
			dt = s.Top().Dt
		}
		dt = h.clamp(dt)
		return Entry{Path: p, ID: id, Dt: dt, ModelID: h.ModelID(dt)}, true
	}
	return Entry{}, false
}

// Click applies a canvas click. Without appending, a hit replaces the whole
// selection and a miss clears it. With appending, a hit on an existing
// entry removes it, or clears the selection when it was the only entry;
// any other hit is pushed. An appending miss changes nothing.
func Click(s Selection, hit Entry, ok, appendMode bool) Selection {
	if !ok {
		if appendMode {
			return s
		}
		return Clear(s)
	}
	if !appendMode {
		return Selection{hit}
	}
	return toggle(s, hit)
}

func toggle(s Selection, e Entry) Selection {
	_, i, found := lo.FindIndexOf(s, e.same)
	switch {
	case found && len(s) == 1:
		return Clear(s)
	case found:
		out := s.clone()
		return append(out[:i], out[i+1:]...)
	case s.Cleared():
		return Selection{e}
	default:
		return append(s.clone(), e)
	}
}

// ClickTimeline applies a click on the timeline at dt. The candidate is the
// primary entry moved to dt, and follows the same rules as Click.
func ClickTimeline(s Selection, dt int, appendMode bool, h History) Selection {
	dt = h.clamp(dt)
	e := s.Top()
	e.Dt = dt
	e.ModelID = h.ModelID(dt)
	e.Segment = nil
	if !appendMode {
		return Selection{e}
	}
	_, i, found := lo.FindIndexOf(s, e.same)
	switch {
	case found && len(s) == 1:
		return Clear(s)
	case found:
		out := s.clone()
		return append(out[:i], out[i+1:]...)
	default:
		return append(s.clone(), e)
	}
}

// StepBackward moves the primary entry one step into the past.
func StepBackward(s Selection, h History) Selection {
	return setDt(s, s.Top().Dt+1, h)
}

// StepForward moves the primary entry one step towards the present. At
// dt 0 it leaves the selection alone and reports that the model should
// advance instead.
func StepForward(s Selection, h History) (Selection, bool) {
	if s.Top().Dt <= 0 {
		return s, true
	}
	return setDt(s, s.Top().Dt-1, h), false
}

func setDt(s Selection, dt int, h History) Selection {
	dt = h.clamp(dt)
	e := s.Top()
	if e.Dt == dt {
		return s
	}
	e.Dt = dt
	e.ModelID = h.ModelID(dt)
	return s.withTop(e)
}

// BitUp moves the primary entry to the previous id in its layout's
// ordering. Past the first id the entry names no element.
func BitUp(s Selection, ls layout.Layouts) Selection {
	return moveBit(s, ls, -1)
}

// BitDown moves to the next id in the ordering.
func BitDown(s Selection, ls layout.Layouts) Selection {
	return moveBit(s, ls, 1)
}

func moveBit(s Selection, ls layout.Layouts, delta int) Selection {
	e := s.Top()
	if !e.Named() {
		return s
	}
	l := ls[e.Path]
	if l == nil {
		return s
	}
	p, ok := l.Pos(e.ID)
	if !ok {
		return s
	}
	id, ok := l.IDAt(p + delta)
	if !ok {
		id = NoID
	}
	e.ID = id
	e.Segment = nil
	return s.withTop(e)
}

// CellTarget returns the entry whose column cells should be shown: the
// only entry, when it names a layer column.
func (s Selection) CellTarget() (Entry, bool) {
	if len(s) != 1 {
		return Entry{}, false
	}
	e := s[0]
	if !e.Path.IsLayer() || e.ID < 0 {
		return Entry{}, false
	}
	return e, true
}

// WithSegment attaches a cell and segment to the only entry.
func WithSegment(s Selection, cell, seg int) Selection {
	e, ok := s.CellTarget()
	if !ok {
		return s
	}
	e.Segment = &CellSegment{Cell: cell, Segment: seg}
	return Selection{e}
}

// Admit updates the selection for a newly admitted step. Entries in the
// past keep pointing at the same timestep by moving one further back;
// entries at dt 0 follow the new step.
func Admit(s Selection, h History) Selection {
	out := s.clone()
	for i := range out {
		dt := out[i].Dt
		if dt > 0 {
			dt++
		}
		out[i].Dt = h.clamp(dt)
		out[i].ModelID = h.ModelID(out[i].Dt)
	}
	return out
}

// Clamp pulls every entry back into the selectable range of h, for when
// the history shrinks.
func Clamp(s Selection, h History) Selection {
	out := s.clone()
	for i := range out {
		if dt := h.clamp(out[i].Dt); dt != out[i].Dt {
			out[i].Dt = dt
			out[i].ModelID = h.ModelID(dt)
		}
	}
	return out
}
