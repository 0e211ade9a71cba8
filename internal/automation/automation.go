// Package automation replays scripted viewer sessions without a terminal:
// advancing the model, issuing commands and clicks, and capturing frames.
package automation

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/htmviz/internal/config"
	"github.com/san-kum/htmviz/internal/draw"
	"github.com/san-kum/htmviz/internal/export"
	"github.com/san-kum/htmviz/internal/sim"
	"github.com/san-kum/htmviz/internal/viewer"
)

const (
	defaultSettle = 2 * time.Second
	settlePoll    = 5 * time.Millisecond
)

var ErrNotSettled = errors.New("journal data did not arrive")

// Scenario is a scripted session.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Preset      string `yaml:"preset"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	// GIF, when set, collects every captured frame into one animation.
	GIF     string   `yaml:"gif"`
	Actions []Action `yaml:"actions"`
}

// Action is one scripted step. Exactly one field is expected to be set.
type Action struct {
	Advance int    `yaml:"advance"`
	Command string `yaml:"command"`
	All     bool   `yaml:"all"`
	Click   *Click `yaml:"click"`
	Resize  *Size  `yaml:"resize"`
	Capture string `yaml:"capture"`
}

type Click struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Append bool    `yaml:"append"`
}

type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

func (s *Scenario) Validate() error {
	if s.Preset != "" && config.GetPreset(s.Preset) == nil {
		return fmt.Errorf("unknown preset %q", s.Preset)
	}
	for i, a := range s.Actions {
		set := 0
		for _, on := range []bool{a.Advance > 0, a.Command != "", a.Click != nil, a.Resize != nil, a.Capture != ""} {
			if on {
				set++
			}
		}
		if set != 1 {
			return fmt.Errorf("action %d: expected exactly one of advance, command, click, resize, capture", i+1)
		}
		if a.Command != "" {
			if _, err := viewer.ParseOp(a.Command); err != nil {
				return fmt.Errorf("action %d: %w", i+1, err)
			}
		}
	}
	return nil
}

// Options returns the scenario's starting options: its preset, or the
// defaults, sized to the scenario canvas.
func (s *Scenario) Options() config.Options {
	opts := config.DefaultOptions()
	if s.Preset != "" {
		if p := config.GetPreset(s.Preset); p != nil {
			opts = p
		}
	}
	opts.Drawing.CanvasWidth = s.Width
	opts.Drawing.CanvasHeight = s.Height
	return *opts
}

// Target is what a scenario drives. The runner's observers must feed
// the viewer, and the viewer must be running.
type Target struct {
	Viewer *viewer.Viewer
	Runner *sim.Runner
	Engine *draw.Engine
	// Dir is where captures are written.
	Dir string
	// Settle bounds the wait for journal replies before a capture.
	Settle time.Duration
	Log    zerolog.Logger
}

// Run executes every action in order and returns the files written.
func Run(ctx context.Context, s *Scenario, t Target) ([]string, error) {
	var written []string
	var rec *export.GIFRecorder
	if s.GIF != "" {
		rec = export.NewGIFRecorder(50)
	}

	for i, a := range s.Actions {
		t.Log.Debug().Int("action", i+1).Str("scenario", s.Name).Msg("running action")
		switch {
		case a.Advance > 0:
			if _, err := t.Runner.RunN(ctx, a.Advance); err != nil {
				return written, fmt.Errorf("action %d: %w", i+1, err)
			}
		case a.Command != "":
			op, _ := viewer.ParseOp(a.Command)
			t.Viewer.Do(viewer.Command{Op: op, ApplyToAll: a.All})
		case a.Click != nil:
			if err := Settle(ctx, t.Viewer, t.Settle); err != nil {
				t.Log.Warn().Err(err).Int("action", i+1).Msg("clicking on incomplete data")
			}
			t.Viewer.Click(a.Click.X, a.Click.Y, a.Click.Append)
		case a.Resize != nil:
			opts := t.Viewer.Snapshot().Options
			opts.Drawing.CanvasWidth, opts.Drawing.CanvasHeight = a.Resize.Width, a.Resize.Height
			if err := t.Viewer.SetOptions(opts); err != nil {
				return written, fmt.Errorf("action %d: %w", i+1, err)
			}
		case a.Capture != "":
			img, err := capture(ctx, t)
			if err != nil {
				return written, fmt.Errorf("action %d: %w", i+1, err)
			}
			path := filepath.Join(t.Dir, a.Capture)
			if err := export.SavePNG(path, img); err != nil {
				return written, fmt.Errorf("action %d: %w", i+1, err)
			}
			written = append(written, path)
			if rec != nil {
				rec.Capture(img)
			}
			t.Log.Info().Str("file", path).Msg("frame captured")
		}
		if err := t.Viewer.Flush(ctx); err != nil {
			return written, fmt.Errorf("action %d: %w", i+1, err)
		}
	}

	if rec != nil && rec.Len() > 0 {
		path := filepath.Join(t.Dir, s.GIF)
		if err := rec.Save(path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func capture(ctx context.Context, t Target) (image.Image, error) {
	if err := Settle(ctx, t.Viewer, t.Settle); err != nil {
		t.Log.Warn().Err(err).Msg("capturing incomplete frame")
	}
	snap := t.Viewer.Snapshot()
	w, h := snap.Options.Drawing.CanvasWidth, snap.Options.Drawing.CanvasHeight
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("canvas size unknown")
	}
	r := draw.NewRaster(w, h)
	t.Engine.Draw(r, snap)
	return r.Image(), nil
}

// Settle waits until the viewer has the data for everything it shows, or
// the timeout passes.
func Settle(ctx context.Context, v *viewer.Viewer, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultSettle
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		if err := v.Flush(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrNotSettled, err)
		}
		if Settled(v.Snapshot()) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrNotSettled, ctx.Err())
		case <-time.After(settlePoll):
		}
	}
}

// Settled reports whether a snapshot holds every retained step and, for
// a single selected column, its cell segments.
func Settled(s *viewer.Snapshot) bool {
	if len(s.History) == 0 {
		return true
	}
	if s.Data.Token == "" {
		return false
	}
	for _, id := range s.History {
		if s.Data.Steps[id] == nil {
			return false
		}
	}
	if t, ok := s.Selection.CellTarget(); ok && s.Options.Distal.Enabled {
		if s.Data.Cells == nil || s.Data.Cells.Key != t.Key() {
			return false
		}
	}
	return true
}
