package viewer

import (
	"github.com/san-kum/htmviz/internal/config"
	"github.com/san-kum/htmviz/internal/drawcache"
	"github.com/san-kum/htmviz/internal/fetch"
	"github.com/san-kum/htmviz/internal/htm"
	"github.com/san-kum/htmviz/internal/layout"
	"github.com/san-kum/htmviz/internal/selection"
)

// Snapshot is the published view state. Nothing reachable from a Snapshot
// is mutated after it is published, so readers need no locking.
type Snapshot struct {
	Seq       uint64
	Template  htm.Template
	Options   config.Options
	Layouts   layout.Layouts
	Paths     []htm.Path
	History   selection.History
	Selection selection.Selection
	Versions  drawcache.Versions
	Data      fetch.Data
	Running   bool
	// Edits counts changes made by commands, clicks, options and resizes.
	// Admitted steps and journal replies leave it unchanged.
	Edits uint64
}

// Latest is the most recent step, if any.
func (s *Snapshot) Latest() (htm.StepID, bool) {
	if s == nil || len(s.History) == 0 {
		return htm.StepID{}, false
	}
	return s.History[0], true
}

// Payload returns the fetched data of the step at dt.
func (s *Snapshot) Payload(dt int) *htm.Payload {
	if dt < 0 || dt >= len(s.History) {
		return nil
	}
	return s.Data.Steps[s.History[dt]]
}

// Timeline is the geometry of the timeline strip.
func (s *Snapshot) Timeline() layout.Timeline {
	return layout.NewTimeline(s.Options.Drawing, len(s.History))
}

// CellsGeometry returns the cell diagram of the selected column, when the
// selection names exactly one column and its segments have been fetched.
func (s *Snapshot) CellsGeometry() (layout.CellsGeometry, *htm.CellSegments, bool) {
	target, ok := s.Selection.CellTarget()
	cells := s.Data.Cells
	if !ok || cells == nil || cells.Segments == nil || cells.Key != target.Key() {
		return layout.CellsGeometry{}, nil, false
	}
	l := s.Layouts[target.Path]
	if l == nil {
		return layout.CellsGeometry{}, nil, false
	}
	g, ok := layout.NewCellsGeometry(l, target.ID, target.Dt, cells.Segments.SegmentCounts())
	return g, cells.Segments, ok
}
