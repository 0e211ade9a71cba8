package fetch

import (
	"maps"

	"github.com/san-kum/htmviz/internal/htm"
	"github.com/san-kum/htmviz/internal/layout"
)

// Window is what decides a layout's visible ids.
type Window struct {
	Scroll int
	Order  uint64
	Rows   int
}

// WindowSnapshot captures every layout's window so a mutation can be
// checked for a visible-set change by comparing before and after.
type WindowSnapshot map[htm.Path]Window

func Snapshot(ls layout.Layouts) WindowSnapshot {
	s := make(WindowSnapshot, len(ls))
	for p, l := range ls {
		s[p] = Window{Scroll: l.Scroll, Order: l.OrderVersion, Rows: l.Capacity()}
	}
	return s
}

func (s WindowSnapshot) Equal(o WindowSnapshot) bool {
	return maps.Equal(s, o)
}

// Visible collects the visible ids of every layout.
func Visible(ls layout.Layouts) map[htm.Path]htm.IDSet {
	out := make(map[htm.Path]htm.IDSet, len(ls))
	for p, l := range ls {
		out[p] = l.VisibleIDs()
	}
	return out
}
