package export

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/htmviz/internal/draw"
)

func TestBrailleToSVG(t *testing.T) {
	b := draw.NewBraille(4, 2, 40, 40)
	b.Set(0, 0)
	b.Set(3, 7)
	b.Text("a<b", 0, 20, color.Black)

	svg := BrailleToSVG(b, 2)
	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Errorf("expected 2 dots, got %d", n)
	}
	if !strings.Contains(svg, `width="16" height="16"`) {
		t.Error("expected the picture size to follow the grid")
	}
	if !strings.Contains(svg, ">a&lt;b</text>") {
		t.Error("expected escaped text")
	}
	if BrailleToSVG(nil, 1) != "" {
		t.Error("expected nothing for a nil canvas")
	}
}

func TestSeriesToSVG(t *testing.T) {
	if SeriesToSVG([]float64{1}, 100, 50, "red") != "" {
		t.Error("expected nothing for a single point")
	}
	svg := SeriesToSVG([]float64{1, 3, 2}, 100, 50, "red")
	if !strings.Contains(svg, `stroke="red"`) || strings.Count(svg, " L") != 2 {
		t.Errorf("unexpected path: %s", svg)
	}
}

func TestGIFRecorder(t *testing.T) {
	g := NewGIFRecorder(5)
	if err := g.Encode(&bytes.Buffer{}); err == nil {
		t.Error("expected an error without frames")
	}

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, draw.DefaultPalette().Active)
	g.Capture(img)
	g.Capture(img)

	var buf bytes.Buffer
	if err := g.Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	anim, err := gif.DecodeAll(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(anim.Image) != 2 || anim.Delay[0] != 5 {
		t.Errorf("expected 2 frames of delay 5, got %d/%v", len(anim.Image), anim.Delay)
	}
	r, gr, b, _ := anim.Image[0].At(1, 1).RGBA()
	if r>>8 != 214 || gr>>8 != 39 || b>>8 != 40 {
		t.Errorf("expected the active colour to survive quantisation, got %d %d %d", r>>8, gr>>8, b>>8)
	}
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	if err := SavePNG(path, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := SavePNG(filepath.Join(t.TempDir(), "missing", "frame.png"), image.NewRGBA(image.Rect(0, 0, 1, 1))); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
