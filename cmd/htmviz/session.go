package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/htmviz/internal/automation"
	"github.com/san-kum/htmviz/internal/config"
	"github.com/san-kum/htmviz/internal/draw"
	"github.com/san-kum/htmviz/internal/export"
	"github.com/san-kum/htmviz/internal/htm"
	"github.com/san-kum/htmviz/internal/journal"
	"github.com/san-kum/htmviz/internal/metrics"
	"github.com/san-kum/htmviz/internal/sim"
	"github.com/san-kum/htmviz/internal/storage"
	"github.com/san-kum/htmviz/internal/tui"
	"github.com/san-kum/htmviz/internal/viewer"
)

// session is a journal, a step runner and a viewer wired together and
// running until the context ends.
type session struct {
	viewer *viewer.Viewer
	runner *sim.Runner
	g      *errgroup.Group
	cancel context.CancelFunc
}

func startSession(ctx context.Context, src journal.Source, feed sim.Feed, opts config.Options, log zerolog.Logger) *session {
	ctx, cancel := context.WithCancel(ctx)
	j := journal.NewLocal(src, log)
	r := sim.New(feed, sim.Config{Interval: interval}, log)
	v := viewer.New(j, r, opts, log)
	r.AddObserver(sim.ObserverFunc(v.Admit))
	r.OnStop(v.Refresh)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return j.Run(ctx) })
	g.Go(func() error { return r.Run(ctx) })
	g.Go(func() error { return v.Run(ctx) })
	return &session{viewer: v, runner: r, g: g, cancel: cancel}
}

// stop ends the session and returns the first failure other than the
// cancellation itself.
func (s *session) stop() error {
	s.viewer.Close()
	s.cancel()
	if err := s.g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runView(cmd *cobra.Command, args []string) error {
	log, closeLog, err := newLogger(true)
	if err != nil {
		return err
	}
	defer closeLog()

	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	src, feed, title, err := openSource(cmd)
	if err != nil {
		return err
	}

	s := startSession(cmd.Context(), src, feed, opts, log)
	s.runner.Advance()
	uiErr := tui.Run(s.viewer, "htmviz · "+title, theme, log)
	if err := s.stop(); err != nil {
		return err
	}
	return uiErr
}

func runRender(cmd *cobra.Command, args []string) error {
	log, closeLog, err := newLogger(false)
	if err != nil {
		return err
	}
	defer closeLog()

	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	opts := scenario.Options()
	flags := cmd.Flags()
	if configFile != "" || flags.Changed("keep") || flags.Changed("window") || flags.Changed("mode") || flags.Changed("stride") {
		if opts, err = loadOptions(cmd); err != nil {
			return err
		}
		opts.Drawing.CanvasWidth, opts.Drawing.CanvasHeight = scenario.Width, scenario.Height
	}
	src, feed, _, err := openSource(cmd)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	s := startSession(cmd.Context(), src, feed, opts, log)
	written, runErr := automation.Run(cmd.Context(), scenario, automation.Target{
		Viewer: s.viewer,
		Runner: s.runner,
		Engine: draw.NewEngine(log),
		Dir:    outDir,
		Log:    log,
	})
	if err := s.stop(); err != nil && runErr == nil {
		runErr = err
	}
	for _, f := range written {
		fmt.Println(f)
	}
	return runErr
}

func runExportSVG(cmd *cobra.Command, args []string) error {
	log, closeLog, err := newLogger(false)
	if err != nil {
		return err
	}
	defer closeLog()

	if svgSteps <= 0 || cols <= 0 || rows <= 0 {
		return fmt.Errorf("steps, cols and rows must be positive")
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	opts.Drawing.CanvasWidth, opts.Drawing.CanvasHeight = cols*2*2, rows*4*2
	src, feed, _, err := openSource(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s := startSession(ctx, src, feed, opts, log)
	defer s.stop()
	if _, err := s.runner.RunN(ctx, svgSteps); err != nil {
		return err
	}
	if err := automation.Settle(ctx, s.viewer, 0); err != nil {
		log.Warn().Err(err).Msg("exporting incomplete frame")
	}

	b := draw.NewBraille(cols, rows, opts.Drawing.CanvasWidth, opts.Drawing.CanvasHeight)
	draw.NewEngine(log).Draw(b, s.viewer.Snapshot())
	if err := os.WriteFile(svgOut, []byte(export.BrailleToSVG(b, scale)), 0o644); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	fmt.Printf("wrote %s\n", svgOut)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	recs, err := st.LoadSteps(args[0])
	if err != nil {
		return err
	}
	if len(recs) < 2 {
		return fmt.Errorf("recording %s has too few steps to plot", args[0])
	}

	fmt.Printf("%s: %d steps, seed %d\n\n", meta.Name, len(recs), meta.Seed)
	for _, p := range meta.Template.Paths() {
		series := activity(recs, p)
		fmt.Println(asciigraph.Plot(series,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption(p.String()+" active")))
		fmt.Println(summary(meta.Template, recs, p))
		fmt.Println()

		if statsSVG != "" {
			name := fmt.Sprintf("%s-%s.svg", statsSVG, strings.NewReplacer("/", "_", ":", "_").Replace(p.String()))
			svg := export.SeriesToSVG(series, 600, 160, "#00d7af")
			if err := os.WriteFile(filepath.Clean(name), []byte(svg), 0o644); err != nil {
				return fmt.Errorf("write svg: %w", err)
			}
			fmt.Printf("wrote %s\n\n", name)
		}
	}
	return nil
}

func activity(recs []storage.StepRecord, p htm.Path) []float64 {
	out := make([]float64, len(recs))
	for i, r := range recs {
		out[i] = float64(len(r.Active[p]))
	}
	return out
}

func summary(tmpl htm.Template, recs []storage.StepRecord, p htm.Path) string {
	topo, _ := tmpl.Topology(p)
	ms := metrics.Standard(topo.Size())
	for _, r := range recs {
		for _, m := range ms {
			m.Observe(r.Active[p], r.Predicted[p])
		}
	}
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = fmt.Sprintf("%s %.3f", m.Name(), m.Value())
	}
	return strings.Join(parts, "  ")
}
