package draw

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/san-kum/htmviz/internal/layout"
)

// Braille patterns: 2x4 dots per cell
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Braille is a Canvas for terminals. A scene of W x H pixels is scaled onto
// Cols x Rows character cells of 2 x 4 dots each. A dot is set wherever a
// dark enough, opaque enough colour is drawn; text replaces whole cells.
type Braille struct {
	Cols, Rows int
	Grid       [][]rune

	w, h   int
	sx, sy float64
	text   map[[2]int]rune
}

func NewBraille(cols, rows, w, h int) *Braille {
	b := &Braille{
		Cols: cols,
		Rows: rows,
		Grid: make([][]rune, rows),
		w:    w,
		h:    h,
		text: make(map[[2]int]rune),
	}
	if w > 0 && h > 0 {
		b.sx = float64(2*cols) / float64(w)
		b.sy = float64(4*rows) / float64(h)
	}
	for i := range b.Grid {
		b.Grid[i] = make([]rune, cols)
		for j := range b.Grid[i] {
			b.Grid[i][j] = blank
		}
	}
	return b
}

func (b *Braille) Size() (int, int) { return b.w, b.h }

// Set sets a dot at (x, y) in dot coordinates. The canvas is Cols*2 by
// Rows*4 dots.
func (b *Braille) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col := x / 2
	row := y / 4
	if col >= b.Cols || row >= b.Rows {
		return
	}
	b.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

// Unset clears a dot.
func (b *Braille) Unset(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col := x / 2
	row := y / 4
	if col >= b.Cols || row >= b.Rows {
		return
	}
	b.Grid[row][col] &= ^rune(pixelMap[y%4][x%2])
	if b.Grid[row][col] < blank {
		b.Grid[row][col] = blank
	}
}

// IsSet reports whether a dot is set.
func (b *Braille) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= b.Cols || y/4 >= b.Rows {
		return false
	}
	return b.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (b *Braille) Clear(color.Color) {
	for i := range b.Grid {
		for j := range b.Grid[i] {
			b.Grid[i][j] = blank
		}
	}
	clear(b.text)
}

func (b *Braille) dot(x, y float64) (int, int) {
	return int(math.Floor(x * b.sx)), int(math.Floor(y * b.sy))
}

// ink reports whether a colour marks dots. Light and faint colours are
// treated as background.
func ink(c color.Color) bool {
	r, g, bl, a := c.RGBA()
	if a < 0x8000 {
		return false
	}
	lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)) / float64(a)
	return lum < 0.85
}

func (b *Braille) FillRect(r layout.Rect, c color.Color) {
	if !ink(c) {
		return
	}
	x0, y0 := b.dot(r.X, r.Y)
	x1, y1 := b.dot(r.X+r.W, r.Y+r.H)
	for y := y0; y <= max(y0, y1-1); y++ {
		for x := x0; x <= max(x0, x1-1); x++ {
			b.Set(x, y)
		}
	}
}

func (b *Braille) StrokeRect(r layout.Rect, c color.Color, width float64) {
	b.Line(r.X, r.Y, r.X+r.W, r.Y, c, width)
	b.Line(r.X+r.W, r.Y, r.X+r.W, r.Y+r.H, c, width)
	b.Line(r.X+r.W, r.Y+r.H, r.X, r.Y+r.H, c, width)
	b.Line(r.X, r.Y+r.H, r.X, r.Y, c, width)
}

func (b *Braille) Line(x0, y0, x1, y1 float64, c color.Color, _ float64) {
	if !ink(c) {
		return
	}
	ax, ay := b.dot(x0, y0)
	bx, by := b.dot(x1, y1)
	b.DrawLine(ax, ay, bx, by)
}

// DrawLine draws a line in dot coordinates using Bresenham's algorithm.
func (b *Braille) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		b.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

const curveSteps = 16

func (b *Braille) Curve(x0, y0, c1x, c1y, c2x, c2y, x1, y1 float64, c color.Color, width float64) {
	px, py := x0, y0
	for i := 1; i <= curveSteps; i++ {
		t := float64(i) / curveSteps
		u := 1 - t
		x := u*u*u*x0 + 3*u*u*t*c1x + 3*u*t*t*c2x + t*t*t*x1
		y := u*u*u*y0 + 3*u*u*t*c1y + 3*u*t*t*c2y + t*t*t*y1
		b.Line(px, py, x, y, c, width)
		px, py = x, y
	}
}

func (b *Braille) Circle(x, y, r float64, c color.Color, fill bool) {
	if fill {
		b.FillRect(layout.Rect{X: x - r, Y: y - r, W: 2 * r, H: 2 * r}, c)
		return
	}
	const n = 12
	for i := 0; i < n; i++ {
		a0 := 2 * math.Pi * float64(i) / n
		a1 := 2 * math.Pi * float64(i+1) / n
		b.Line(x+r*math.Cos(a0), y+r*math.Sin(a0), x+r*math.Cos(a1), y+r*math.Sin(a1), c, 1)
	}
}

func (b *Braille) Text(s string, x, y float64, _ color.Color) {
	dx, dy := b.dot(x, y)
	col, row := dx/2, dy/4
	if row < 0 || row >= b.Rows {
		return
	}
	for i, r := range []rune(s) {
		if col+i >= 0 && col+i < b.Cols {
			b.text[[2]int{row, col + i}] = r
		}
	}
}

// DrawImage sets the dots whose scene pixel is inked in img.
func (b *Braille) DrawImage(img image.Image, x, y float64) {
	if b.sx == 0 || b.sy == 0 {
		return
	}
	bounds := img.Bounds()
	x0, y0 := b.dot(x, y)
	x1, y1 := b.dot(x+float64(bounds.Dx()), y+float64(bounds.Dy()))
	for dy := y0; dy < y1; dy++ {
		for dx := x0; dx < x1; dx++ {
			px := bounds.Min.X + int((float64(dx)+0.5)/b.sx-x)
			py := bounds.Min.Y + int((float64(dy)+0.5)/b.sy-y)
			if image.Pt(px, py).In(bounds) && ink(img.At(px, py)) {
				b.Set(dx, dy)
			}
		}
	}
}

// TextCell is a run of text placed on the character grid.
type TextCell struct {
	Row, Col int
	Text     string
}

// Texts returns the placed text as runs of adjacent cells, top to bottom
// and left to right.
func (b *Braille) Texts() []TextCell {
	var out []TextCell
	for row := 0; row < b.Rows; row++ {
		var run []rune
		start := 0
		for col := 0; col <= b.Cols; col++ {
			r, ok := b.text[[2]int{row, col}]
			if ok && col < b.Cols {
				if len(run) == 0 {
					start = col
				}
				run = append(run, r)
				continue
			}
			if len(run) > 0 {
				out = append(out, TextCell{Row: row, Col: start, Text: string(run)})
				run = nil
			}
		}
	}
	return out
}

func (b *Braille) String() string {
	var sb strings.Builder
	for row, line := range b.Grid {
		for col, r := range line {
			if t, ok := b.text[[2]int{row, col}]; ok {
				r = t
			}
			sb.WriteRune(r)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
