package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBitSize         = 6.0
	DefaultColSize         = 6.0
	DefaultGap             = 30.0
	DefaultTopMargin       = 40.0
	DefaultLeftMargin      = 10.0
	DefaultTimelineHeight  = 16.0
	DefaultDrawWindow      = 32
	DefaultAnimationStride = 1
	DefaultKeepSteps       = 50
)

// DisplayMode selects how a layout uses the plane. Axis mode lays ids down
// the y axis and time along x; spatial mode lays ids out as a grid and shows
// one timestep.
type DisplayMode string

const (
	ModeAxis    DisplayMode = "axis"
	ModeSpatial DisplayMode = "spatial"
)

// SynapsePolicy selects which feed-forward synapses are requested for a
// selected layer.
type SynapsePolicy string

const (
	SynapsesAll      SynapsePolicy = "all"
	SynapsesSelected SynapsePolicy = "selected"
	SynapsesNone     SynapsePolicy = "none"
)

type Options struct {
	Drawing    Drawing          `yaml:"drawing"`
	Inbits     InbitsOptions    `yaml:"inbits"`
	Columns    ColumnsOptions   `yaml:"columns"`
	FFSynapses FFSynapseOptions `yaml:"ff_synapses"`
	Distal     DistalOptions    `yaml:"distal"`
	KeepSteps  int              `yaml:"keep_steps"`
}

type Drawing struct {
	Mode            DisplayMode `yaml:"mode"`
	BitSize         float64     `yaml:"bit_size"`
	ColSize         float64     `yaml:"col_size"`
	Height          float64     `yaml:"height"`
	Gap             float64     `yaml:"gap"`
	TopMargin       float64     `yaml:"top_margin"`
	LeftMargin      float64     `yaml:"left_margin"`
	TimelineHeight  float64     `yaml:"timeline_height"`
	DrawWindow      int         `yaml:"draw_window"`
	AnimationStride int         `yaml:"animation_stride"`
	Animate         bool        `yaml:"animate"`
	CanvasWidth     int         `yaml:"-"`
	CanvasHeight    int         `yaml:"-"`
}

type InbitsOptions struct {
	Active    bool `yaml:"active"`
	Predicted bool `yaml:"predicted"`
}

type ColumnsOptions struct {
	Active          bool `yaml:"active"`
	Predicted       bool `yaml:"predicted"`
	Overlaps        bool `yaml:"overlaps"`
	Boosts          bool `yaml:"boosts"`
	Frequencies     bool `yaml:"frequencies"`
	SegmentCounts   bool `yaml:"segment_counts"`
	TemporalPooling bool `yaml:"temporal_pooling"`
}

type FFSynapseOptions struct {
	To           SynapsePolicy `yaml:"to"`
	Inactive     bool          `yaml:"inactive"`
	Disconnected bool          `yaml:"disconnected"`
	Permanences  bool          `yaml:"permanences"`
}

type DistalOptions struct {
	Enabled bool `yaml:"enabled"`
}

func DefaultOptions() *Options {
	return &Options{
		Drawing: Drawing{
			Mode:            ModeAxis,
			BitSize:         DefaultBitSize,
			ColSize:         DefaultColSize,
			Gap:             DefaultGap,
			TopMargin:       DefaultTopMargin,
			LeftMargin:      DefaultLeftMargin,
			TimelineHeight:  DefaultTimelineHeight,
			DrawWindow:      DefaultDrawWindow,
			AnimationStride: DefaultAnimationStride,
			Animate:         true,
		},
		Inbits:  InbitsOptions{Active: true, Predicted: true},
		Columns: ColumnsOptions{Active: true, Predicted: true, TemporalPooling: true},
		FFSynapses: FFSynapseOptions{
			To:          SynapsesSelected,
			Permanences: true,
		},
		Distal:    DistalOptions{Enabled: true},
		KeepSteps: DefaultKeepSteps,
	}
}

func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("parse options %s: %w", path, err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func Save(path string, opts *Options) error {
	data, err := yaml.Marshal(opts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (o *Options) Validate() error {
	switch o.Drawing.Mode {
	case ModeAxis, ModeSpatial:
	default:
		return fmt.Errorf("unknown display mode %q", o.Drawing.Mode)
	}
	switch o.FFSynapses.To {
	case SynapsesAll, SynapsesSelected, SynapsesNone:
	default:
		return fmt.Errorf("unknown synapse policy %q", o.FFSynapses.To)
	}
	if o.Drawing.BitSize <= 0 || o.Drawing.ColSize <= 0 {
		return fmt.Errorf("element sizes must be positive")
	}
	if o.Drawing.DrawWindow < 1 {
		return fmt.Errorf("draw window must be at least 1, got %d", o.Drawing.DrawWindow)
	}
	if o.Drawing.AnimationStride < 1 {
		return fmt.Errorf("animation stride must be at least 1, got %d", o.Drawing.AnimationStride)
	}
	if o.KeepSteps < 2 {
		return fmt.Errorf("keep_steps must be at least 2, got %d", o.KeepSteps)
	}
	return nil
}

// LayoutHeight is the uniform layout height in pixels. A zero Height option
// fills the canvas below the top margin, which holds the timeline and labels.
func (d Drawing) LayoutHeight() float64 {
	if d.Height > 0 {
		return d.Height
	}
	h := float64(d.CanvasHeight) - d.TopMargin
	if h < 0 {
		return 0
	}
	return h
}

// Journal is the part of the options the journal needs to scope its
// answers. A viewport is re-registered only when this changes.
type Journal struct {
	Inbits     InbitsOptions
	Columns    ColumnsOptions
	FFSynapses FFSynapseOptions
	Distal     DistalOptions
}

func (o Options) Journal() Journal {
	return Journal{
		Inbits:     o.Inbits,
		Columns:    o.Columns,
		FFSynapses: o.FFSynapses,
		Distal:     o.Distal,
	}
}

// Changes summarises which option groups differ between two option values.
type Changes struct {
	Inbits   bool
	Columns  bool
	Drawing  bool
	Geometry bool
	Journal  bool
}

func (c Changes) Any() bool {
	return c.Inbits || c.Columns || c.Drawing || c.Geometry || c.Journal
}

func Diff(a, b Options) Changes {
	return Changes{
		Inbits:   a.Inbits != b.Inbits,
		Columns:  a.Columns != b.Columns,
		Drawing:  a.Drawing != b.Drawing,
		Geometry: geometry(a.Drawing) != geometry(b.Drawing),
		Journal:  a.Journal() != b.Journal(),
	}
}

type geometryKey struct {
	mode                     DisplayMode
	bit, col, height, gap    float64
	top, left, timeline      float64
	window, canvasW, canvasH int
}

func geometry(d Drawing) geometryKey {
	return geometryKey{
		mode: d.Mode, bit: d.BitSize, col: d.ColSize, height: d.LayoutHeight(), gap: d.Gap,
		top: d.TopMargin, left: d.LeftMargin, timeline: d.TimelineHeight,
		window: d.DrawWindow, canvasW: d.CanvasWidth, canvasH: d.CanvasHeight,
	}
}
