package automation

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/htmviz/internal/draw"
	"github.com/san-kum/htmviz/internal/htm"
	"github.com/san-kum/htmviz/internal/journal"
	"github.com/san-kum/htmviz/internal/sim"
	"github.com/san-kum/htmviz/internal/viewer"
)

const scenarioYAML = `
name: smoke
width: 600
height: 300
gif: run.gif
actions:
  - advance: 4
  - command: sort
    all: true
  - capture: first.png
  - click: {x: 300, y: 60}
  - resize: {width: 500, height: 250}
  - capture: second.png
`

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Name != "smoke" || len(s.Actions) != 6 {
		t.Errorf("unexpected scenario %+v", s)
	}
	if s.Actions[3].Click == nil || s.Actions[3].Click.X != 300 {
		t.Errorf("expected a click action, got %+v", s.Actions[3])
	}
	opts := s.Options()
	if opts.Drawing.CanvasWidth != 600 || opts.Drawing.CanvasHeight != 300 {
		t.Errorf("expected the scenario canvas, got %dx%d", opts.Drawing.CanvasWidth, opts.Drawing.CanvasHeight)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Scenario
		wantErr bool
	}{
		{"empty", Scenario{}, false},
		{"advance", Scenario{Actions: []Action{{Advance: 2}}}, false},
		{"unknown preset", Scenario{Preset: "nope"}, true},
		{"unknown command", Scenario{Actions: []Action{{Command: "explode"}}}, true},
		{"two fields", Scenario{Actions: []Action{{Advance: 1, Capture: "x.png"}}}, true},
		{"no field", Scenario{Actions: []Action{{}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSettled(t *testing.T) {
	id := htm.StepID{ModelID: "m", Timestep: 0}
	s := &viewer.Snapshot{History: []htm.StepID{id}}
	if Settled(s) {
		t.Error("expected an unregistered viewer not to be settled")
	}
	s.Data.Token = "vp-1"
	if Settled(s) {
		t.Error("expected a missing step not to be settled")
	}
	s.Data.Steps = map[htm.StepID]*htm.Payload{id: {Step: id}}
	if !Settled(s) {
		t.Error("expected every step present to be settled")
	}
}

func TestRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	path := filepath.Join(t.TempDir(), "s.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	scenario, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}

	tmpl := htm.Template{
		Inputs: []htm.InputSpec{{ID: "in", Topology: htm.Line(16)}},
		Layers: []htm.LayerSpec{{Region: "R1", Layer: "L1", Topology: htm.Line(24), CellsPerColumn: 4}},
	}
	src := journal.NewSynthetic(tmpl, journal.DefaultSyntheticConfig())
	j := journal.NewLocal(src, zerolog.Nop())
	go func() { _ = j.Run(ctx) }()

	runner := sim.New(sim.Endless(src.Step), sim.Config{Interval: time.Hour}, zerolog.Nop())
	v := viewer.New(j, runner, scenario.Options(), zerolog.Nop())
	runner.AddObserver(sim.ObserverFunc(v.Admit))
	go func() { _ = v.Run(ctx) }()
	defer v.Close()

	dir := t.TempDir()
	written, err := Run(ctx, scenario, Target{
		Viewer: v,
		Runner: runner,
		Engine: draw.NewEngine(zerolog.Nop()),
		Dir:    dir,
		Log:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(written) != 3 {
		t.Fatalf("expected 2 frames and a gif, got %v", written)
	}

	f, err := os.Open(written[1])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 500 || b.Dy() != 250 {
		t.Errorf("expected the resized canvas, got %v", b)
	}
	if got := len(v.Snapshot().History); got != 4 {
		t.Errorf("expected 4 steps, got %d", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "run.gif")); err != nil {
		t.Errorf("expected a gif: %v", err)
	}
}
