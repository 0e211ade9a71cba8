package export

import (
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	"image/gif"
	"io"
	"os"

	"github.com/san-kum/htmviz/internal/config"
	"github.com/san-kum/htmviz/internal/draw"
	"github.com/san-kum/htmviz/internal/htm"
)

// GIFRecorder collects frames into an animation.
type GIFRecorder struct {
	palette color.Palette
	delay   int
	frames  []*image.Paletted
}

// NewGIFRecorder records frames shown for delay hundredths of a second
// each, quantised to the drawing palette.
func NewGIFRecorder(delay int) *GIFRecorder {
	return &GIFRecorder{palette: framePalette(draw.DefaultPalette()), delay: max(delay, 1)}
}

func framePalette(p draw.Palette) color.Palette {
	out := color.Palette{p.Background, p.Element, p.Text, p.Active, p.Predicted, p.Pooling,
		p.Facet, p.Timeline, p.Cell, p.Segment}
	for _, ov := range config.Overlays() {
		if c, ok := p.Heat[ov]; ok {
			out = append(out, c)
		}
	}
	for st := htm.SynapseInactive; st <= htm.SynapseGrowing; st++ {
		if c, ok := p.Synapse[st]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (g *GIFRecorder) Capture(img image.Image) {
	b := img.Bounds()
	frame := image.NewPaletted(b, g.palette)
	stddraw.Draw(frame, b, img, b.Min, stddraw.Src)
	g.frames = append(g.frames, frame)
}

func (g *GIFRecorder) Len() int { return len(g.frames) }

func (g *GIFRecorder) Encode(w io.Writer) error {
	if len(g.frames) == 0 {
		return fmt.Errorf("no frames captured")
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range g.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, g.delay)
	}
	return gif.EncodeAll(w, &anim)
}

func (g *GIFRecorder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gif: %w", err)
	}
	defer f.Close()
	if err := g.Encode(f); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	return nil
}
