package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/htmviz/internal/config"
	"github.com/san-kum/htmviz/internal/journal"
	"github.com/san-kum/htmviz/internal/logger"
	"github.com/san-kum/htmviz/internal/sim"
	"github.com/san-kum/htmviz/internal/storage"
	"github.com/san-kum/htmviz/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	modelFile  string
	recording  string
	seed       uint64

	// option overrides
	keepSteps int
	window    int
	mode      string
	stride    int

	theme       string
	interval    time.Duration
	recordSteps int
	start       int
	outDir      string
	svgSteps    int
	svgOut      string
	statsSVG    string
	cols        int
	rows        int
	scale       float64
)

// main registers the commands and runs the root command. With no
// subcommand it opens the interactive viewer on the synthetic model.
func main() {
	rootCmd := &cobra.Command{
		Use:          "htmviz",
		Short:        "interactive visualization of HTM model activity",
		SilenceUsage: true,
		RunE:         runView,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".htmviz", "recording directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "options file (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "options preset")
	rootCmd.PersistentFlags().StringVar(&modelFile, "model", "", "synthetic model file (yaml)")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 0, "synthetic model seed")
	rootCmd.PersistentFlags().IntVar(&keepSteps, "keep", config.DefaultKeepSteps, "steps to keep")
	rootCmd.PersistentFlags().IntVar(&window, "window", config.DefaultDrawWindow, "timesteps drawn per layout")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", string(config.ModeAxis), "display mode (axis, spatial)")
	rootCmd.PersistentFlags().IntVar(&stride, "stride", config.DefaultAnimationStride, "redraw every n-th step")

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "open the interactive viewer",
		Args:  cobra.NoArgs,
		RunE:  runView,
	}
	addSourceFlags(viewCmd)
	addSourceFlags(rootCmd)
	for _, c := range []*cobra.Command{rootCmd, viewCmd} {
		c.Flags().StringVar(&theme, "theme", tui.Themes[0].Name, fmt.Sprintf("colour theme %v", tui.ThemeNames()))
	}

	renderCmd := &cobra.Command{
		Use:   "render [scenario]",
		Short: "replay a scenario headless and write its captures",
		Args:  cobra.ExactArgs(1),
		RunE:  runRender,
	}
	addSourceFlags(renderCmd)
	renderCmd.Flags().StringVar(&outDir, "out", ".", "output directory")

	recordCmd := &cobra.Command{
		Use:   "record [name]",
		Short: "record the synthetic model",
		Args:  cobra.ExactArgs(1),
		RunE:  runRecord,
	}
	recordCmd.Flags().IntVar(&recordSteps, "steps", 200, "steps to record")
	recordCmd.Flags().IntVar(&start, "start", 0, "first timestep")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recordings",
		Args:  cobra.NoArgs,
		RunE:  listRecordings,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg",
		Short: "advance the model and write the terminal frame as SVG",
		Args:  cobra.NoArgs,
		RunE:  runExportSVG,
	}
	addSourceFlags(exportSVGCmd)
	exportSVGCmd.Flags().IntVar(&svgSteps, "steps", 20, "steps to advance first")
	exportSVGCmd.Flags().IntVar(&cols, "cols", 120, "frame width in cells")
	exportSVGCmd.Flags().IntVar(&rows, "rows", 40, "frame height in cells")
	exportSVGCmd.Flags().Float64Var(&scale, "scale", 4, "svg units per dot")
	exportSVGCmd.Flags().StringVar(&svgOut, "out", "frame.svg", "output file")

	statsCmd := &cobra.Command{
		Use:   "stats [recording]",
		Short: "plot per-step activity of a recording",
		Args:  cobra.ExactArgs(1),
		RunE:  runStats,
	}
	statsCmd.Flags().StringVar(&statsSVG, "svg", "", "also write the series as svg files with this prefix")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list option presets and themes",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			fmt.Println("themes:")
			for _, t := range tui.ThemeNames() {
				fmt.Printf("  %s\n", t)
			}
		},
	}

	rootCmd.AddCommand(viewCmd, renderCmd, recordCmd, listCmd, exportSVGCmd, statsCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&recording, "recording", "", "replay a recording instead of the synthetic model")
	cmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "time between steps while running")
}

// newLogger builds the logger from the environment. The viewer owns the
// terminal, so its logs go to a file unless another output is configured.
func newLogger(interactive bool) (zerolog.Logger, func() error, error) {
	cfg, err := config.LoadLogConfig()
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	if interactive && (cfg.Output == "" || cfg.Output == "stderr" || cfg.Output == "stdout") {
		cfg.Output = "file"
	}
	return logger.New(cfg)
}

// loadOptions resolves options from the defaults, a preset, an options
// file and finally any flags given on the command line.
func loadOptions(cmd *cobra.Command) (config.Options, error) {
	opts := config.DefaultOptions()
	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return config.Options{}, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		opts = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return config.Options{}, fmt.Errorf("failed to load config: %w", err)
		}
		opts = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("keep") {
		opts.KeepSteps = keepSteps
	}
	if flags.Changed("window") {
		opts.Drawing.DrawWindow = window
	}
	if flags.Changed("mode") {
		opts.Drawing.Mode = config.DisplayMode(mode)
	}
	if flags.Changed("stride") {
		opts.Drawing.AnimationStride = stride
	}
	if err := opts.Validate(); err != nil {
		return config.Options{}, err
	}
	return *opts, nil
}

// loadModel returns the synthetic model the flags describe.
func loadModel(cmd *cobra.Command) (journal.ModelFile, error) {
	m := journal.DefaultModel()
	if modelFile != "" {
		loaded, err := journal.LoadModel(modelFile)
		if err != nil {
			return journal.ModelFile{}, err
		}
		m = loaded
	}
	if cmd.Flags().Changed("seed") {
		m.Synthetic.Seed = seed
	}
	return m, nil
}

// openSource returns the model data and its step feed: a recording when
// one is named, otherwise the synthetic model.
func openSource(cmd *cobra.Command) (journal.Source, sim.Feed, string, error) {
	if recording != "" {
		rec, err := journal.LoadRecorded(storage.New(dataDir), recording)
		if err != nil {
			return nil, nil, "", err
		}
		return rec, rec, "recording " + recording, nil
	}
	m, err := loadModel(cmd)
	if err != nil {
		return nil, nil, "", err
	}
	src := journal.NewSynthetic(m.Template, m.Synthetic)
	return src, sim.Endless(src.Step), fmt.Sprintf("synthetic (seed %d)", m.Synthetic.Seed), nil
}

func listRecordings(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	recs, err := st.List()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no recordings")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTEPS\tSEED\tPATHS\tTIME")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.Name, r.Steps, r.Seed, len(r.Template.Paths()), r.Timestamp.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runRecord(cmd *cobra.Command, args []string) error {
	log, closeLog, err := newLogger(false)
	if err != nil {
		return err
	}
	defer closeLog()

	if recordSteps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", recordSteps)
	}
	m, err := loadModel(cmd)
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	src := journal.NewSynthetic(m.Template, m.Synthetic)
	id, err := st.Save(args[0], src.Seed(), src.Template(), journal.Record(src, start, recordSteps))
	if err != nil {
		return err
	}
	log.Info().Str("id", id).Int("steps", recordSteps).Msg("recording saved")
	fmt.Printf("recorded %d steps as %s\n", recordSteps, id)
	return nil
}
