package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/htmviz/internal/htm"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Drawing.Mode != ModeAxis {
		t.Errorf("expected axis mode, got %s", opts.Drawing.Mode)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("default options should validate: %v", err)
	}
	if opts.FFSynapses.To != SynapsesSelected {
		t.Errorf("expected selected synapse policy, got %s", opts.FFSynapses.To)
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opts.yaml")
	opts := DefaultOptions()
	opts.Drawing.Mode = ModeSpatial
	opts.KeepSteps = 12

	if err := Save(path, opts); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Drawing.Mode != ModeSpatial {
		t.Errorf("expected spatial mode, got %s", loaded.Drawing.Mode)
	}
	if loaded.KeepSteps != 12 {
		t.Errorf("expected keep_steps 12, got %d", loaded.KeepSteps)
	}
}

func TestLoadRejectsBadMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("drawing:\n  mode: sideways\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestGetPreset(t *testing.T) {
	opts := GetPreset("spatial")
	if opts == nil {
		t.Fatal("expected preset, got nil")
	}
	if opts.Drawing.Mode != ModeSpatial {
		t.Errorf("expected spatial mode, got %s", opts.Drawing.Mode)
	}
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if len(ListPresets()) != len(Presets) {
		t.Error("list should name every preset")
	}
}

func TestDiff(t *testing.T) {
	base := *DefaultOptions()

	tests := []struct {
		name   string
		mutate func(*Options)
		want   Changes
	}{
		{"none", func(o *Options) {}, Changes{}},
		{"stride", func(o *Options) { o.Drawing.AnimationStride = 4 }, Changes{Drawing: true}},
		{"mode", func(o *Options) { o.Drawing.Mode = ModeSpatial }, Changes{Drawing: true, Geometry: true}},
		{"resize", func(o *Options) { o.Drawing.CanvasHeight = 400 }, Changes{Drawing: true, Geometry: true}},
		{"inbits", func(o *Options) { o.Inbits.Predicted = false }, Changes{Inbits: true, Journal: true}},
		{"columns", func(o *Options) { o.Columns.Boosts = true }, Changes{Columns: true, Journal: true}},
		{"synapses", func(o *Options) { o.FFSynapses.To = SynapsesAll }, Changes{Journal: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := base
			tt.mutate(&next)
			if got := Diff(base, next); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	opts := DefaultOptions()
	if !opts.Enabled(htm.KindInput, OverlayActive) {
		t.Error("input active bits should be on by default")
	}
	if opts.Enabled(htm.KindInput, OverlayBoost) {
		t.Error("inputs have no boost channel")
	}
	if opts.Enabled(htm.KindLayer, OverlayOverlap) {
		t.Error("overlap heat should be off by default")
	}
}

func TestLayoutHeight(t *testing.T) {
	d := DefaultOptions().Drawing
	d.CanvasHeight = 300
	if got := d.LayoutHeight(); got != 300-d.TopMargin {
		t.Errorf("expected %f, got %f", 300-d.TopMargin, got)
	}
	d.Height = 120
	if got := d.LayoutHeight(); got != 120 {
		t.Errorf("expected fixed height 120, got %f", got)
	}
}
