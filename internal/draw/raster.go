package draw

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/san-kum/htmviz/internal/layout"
)

// Raster is a Canvas backed by an RGBA image.
type Raster struct {
	dc *gg.Context
}

func NewRaster(w, h int) *Raster {
	dc := gg.NewContext(w, h)
	dc.SetFontFace(basicfont.Face7x13)
	return &Raster{dc: dc}
}

func (r *Raster) Size() (int, int) { return r.dc.Width(), r.dc.Height() }

func (r *Raster) Image() image.Image { return r.dc.Image() }

func (r *Raster) SavePNG(path string) error { return r.dc.SavePNG(path) }

func (r *Raster) Clear(c color.Color) {
	r.dc.SetColor(c)
	r.dc.Clear()
}

func (r *Raster) FillRect(rect layout.Rect, c color.Color) {
	r.dc.SetColor(c)
	r.dc.DrawRectangle(rect.X, rect.Y, rect.W, rect.H)
	r.dc.Fill()
}

func (r *Raster) StrokeRect(rect layout.Rect, c color.Color, width float64) {
	r.dc.SetColor(c)
	r.dc.SetLineWidth(width)
	r.dc.DrawRectangle(rect.X, rect.Y, rect.W, rect.H)
	r.dc.Stroke()
}

func (r *Raster) Line(x0, y0, x1, y1 float64, c color.Color, width float64) {
	r.dc.SetColor(c)
	r.dc.SetLineWidth(width)
	r.dc.DrawLine(x0, y0, x1, y1)
	r.dc.Stroke()
}

func (r *Raster) Curve(x0, y0, c1x, c1y, c2x, c2y, x1, y1 float64, c color.Color, width float64) {
	r.dc.SetColor(c)
	r.dc.SetLineWidth(width)
	r.dc.MoveTo(x0, y0)
	r.dc.CubicTo(c1x, c1y, c2x, c2y, x1, y1)
	r.dc.Stroke()
}

func (r *Raster) Circle(x, y, radius float64, c color.Color, fill bool) {
	r.dc.SetColor(c)
	r.dc.DrawCircle(x, y, radius)
	if fill {
		r.dc.Fill()
		return
	}
	r.dc.SetLineWidth(1)
	r.dc.Stroke()
}

func (r *Raster) Text(s string, x, y float64, c color.Color) {
	r.dc.SetColor(c)
	r.dc.DrawString(s, x, y)
}

func (r *Raster) DrawImage(img image.Image, x, y float64) {
	r.dc.DrawImage(img, int(x), int(y))
}
