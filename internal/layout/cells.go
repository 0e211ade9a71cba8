package layout

const (
	cellsOffset  = 60.0
	cellRadius   = 5.0
	segmentShift = 40.0
	SegmentWidth = 100.0
	maxSlot      = 14.0
	minSlot      = 4.0
)

// SegmentSlot is the rectangle holding one segment's bars.
type SegmentSlot struct {
	Segment int
	Rect    Rect
	// AnchorX, AnchorY is where the segment's line to its cell ends.
	AnchorX, AnchorY float64
}

// CellBand is one cell's vertical band.
type CellBand struct {
	Cell     int
	Band     Rect
	CX, CY   float64
	Segments []SegmentSlot
}

// CellsGeometry places the cells of one column to the right of the
// column's on-screen position.
type CellsGeometry struct {
	ColX, ColY float64
	Radius     float64
	Cells      []CellBand
}

// Curve returns the control points of the S-curve joining the column to a
// cell centre: one third of the horizontal span in from each end, level
// with that end.
func (g CellsGeometry) Curve(c CellBand) (c1x, c1y, c2x, c2y float64) {
	span := c.CX - g.ColX
	return g.ColX + span/3, g.ColY, c.CX - span/3, c.CY
}

// NewCellsGeometry stacks the cells contiguously, each taking one slot per
// segment and at least one slot.
func NewCellsGeometry(l *Layout, col, dt int, counts []int) (CellsGeometry, bool) {
	r, ok := l.ElementRect(col, dt)
	if !ok || len(counts) == 0 {
		return CellsGeometry{}, false
	}
	slots := 0
	for _, n := range counts {
		slots += max(1, n)
	}
	slot := maxSlot
	if l.Height > 0 {
		if fit := l.Height / float64(slots); fit < slot {
			slot = max(fit, minSlot)
		}
	}

	g := CellsGeometry{Radius: cellRadius}
	g.ColX, g.ColY = r.X+r.W, r.Y+r.H/2
	cx := g.ColX + cellsOffset
	y := l.Top
	for i, n := range counts {
		h := float64(max(1, n)) * slot
		band := CellBand{
			Cell: i,
			Band: Rect{X: cx - cellRadius, Y: y, W: 2*cellRadius + segmentShift + SegmentWidth, H: h},
			CX:   cx,
			CY:   y + h/2,
		}
		for s := 0; s < n; s++ {
			sy := y + float64(s)*slot
			band.Segments = append(band.Segments, SegmentSlot{
				Segment: s,
				Rect:    Rect{X: cx + segmentShift, Y: sy, W: SegmentWidth, H: slot},
				AnchorX: cx + segmentShift,
				AnchorY: sy + slot/2,
			})
		}
		g.Cells = append(g.Cells, band)
		y += h
	}
	return g, true
}

// HitSegment returns the first (cell, segment) whose slot covers the point,
// cells in order and segments in order within a cell.
func (g CellsGeometry) HitSegment(x, y float64) (cell, seg int, ok bool) {
	for _, c := range g.Cells {
		for _, s := range c.Segments {
			if s.Rect.Contains(x, y) {
				return c.Cell, s.Segment, true
			}
		}
	}
	return 0, 0, false
}
