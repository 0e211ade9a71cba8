package draw

import (
	"github.com/san-kum/htmviz/internal/htm"
	"github.com/san-kum/htmviz/internal/layout"
	"github.com/san-kum/htmviz/internal/viewer"
)

func (e *Engine) drawCells(c Canvas, s *viewer.Snapshot) {
	g, cs, ok := s.CellsGeometry()
	if !ok {
		return
	}
	selected := s.Selection.Top().Segment
	for i, band := range g.Cells {
		cell := cs.Cells[i]
		live := false
		for _, seg := range cell.Segments {
			live = live || seg.ActiveConnected >= cs.ActivationThreshold
		}
		curve := e.palette.Cell
		if live {
			curve = e.palette.SegmentLive
		}
		c1x, c1y, c2x, c2y := g.Curve(band)
		c.Curve(g.ColX, g.ColY, c1x, c1y, c2x, c2y, band.CX-g.Radius, band.CY, curve, 1)
		c.Circle(band.CX, band.CY, g.Radius, e.palette.Cell, live)

		for j, slot := range band.Segments {
			seg := cell.Segments[j]
			line, width := e.palette.Segment, 1.0
			if seg.ActiveConnected >= cs.ActivationThreshold {
				line, width = e.palette.SegmentLive, 2
			}
			c.Line(band.CX+g.Radius, band.CY, slot.AnchorX, slot.AnchorY, line, width)
			e.drawSegmentBars(c, slot.Rect, seg, cs.ActivationThreshold, cs.LearningThreshold)
			if selected != nil && selected.Cell == i && selected.Segment == j {
				c.StrokeRect(slot.Rect, e.palette.Highlight, 1)
			}
		}
	}
}

// drawSegmentBars draws the connected bar against the activation threshold
// and the disconnected bar against the learning threshold. Each threshold
// sits at the middle of the slot; the active subset is drawn over each bar.
func (e *Engine) drawSegmentBars(c Canvas, slot layout.Rect, seg htm.SegmentInfo, activation, learning int) {
	h := max(1, slot.H/2-1)
	half := slot.W / 2
	bar := func(n, threshold int) float64 {
		if threshold <= 0 {
			return 0
		}
		return min(slot.W, float64(n)*half/float64(threshold))
	}
	top, bottom := slot.Y, slot.Y+slot.H/2

	c.FillRect(layout.Rect{X: slot.X, Y: top, W: bar(seg.ConnectedTotal, activation), H: h}, e.palette.Segment)
	c.FillRect(layout.Rect{X: slot.X, Y: top, W: bar(seg.ActiveConnected, activation), H: h}, e.palette.SegmentLive)
	c.FillRect(layout.Rect{X: slot.X, Y: bottom, W: bar(seg.DisconnectedTotal, learning), H: h}, e.palette.Segment)
	c.FillRect(layout.Rect{X: slot.X, Y: bottom, W: bar(seg.ActiveDisconnected, learning), H: h}, e.palette.Predicted)
	c.Line(slot.X+half, slot.Y, slot.X+half, slot.Y+slot.H, e.palette.Text, 1)
}
