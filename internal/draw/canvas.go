// Package draw composes a viewer snapshot into a frame: cached per-step
// layer images, selection highlights, synapse lines, the cell and segment
// diagram of the selected column and the timeline.
package draw

import (
	"image"
	"image/color"

	"github.com/san-kum/htmviz/internal/layout"
)

// Canvas is the drawing capability a frame is composed onto. Coordinates
// are pixels of the scene, origin top left.
type Canvas interface {
	Size() (w, h int)
	Clear(c color.Color)
	FillRect(r layout.Rect, c color.Color)
	StrokeRect(r layout.Rect, c color.Color, width float64)
	Line(x0, y0, x1, y1 float64, c color.Color, width float64)
	Curve(x0, y0, c1x, c1y, c2x, c2y, x1, y1 float64, c color.Color, width float64)
	Circle(x, y, r float64, c color.Color, fill bool)
	// Text draws s with its baseline starting at (x, y).
	Text(s string, x, y float64, c color.Color)
	DrawImage(img image.Image, x, y float64)
}

func withAlpha(c color.Color, a float64) color.Color {
	r, g, b, _ := c.RGBA()
	a = min(max(a, 0), 1)
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a * 255)}
}
