package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/latentwalk/internal/config"
	"github.com/san-kum/latentwalk/internal/logging"
	"github.com/san-kum/latentwalk/internal/pipeline"
	"github.com/san-kum/latentwalk/internal/sampler"
	"github.com/san-kum/latentwalk/internal/storage"
	"github.com/san-kum/latentwalk/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir  string
	logLevel string
	logger   *slog.Logger

	steps      int
	batchSize  int
	stepSize   float64
	seed       int64
	fps        int
	output     string
	rubberBand bool
	sheet      string
	sheetCols  int
	live       bool
	noSave     bool

	encoderKind   string
	encoderURL    string
	generatorKind string
	generatorURL  string
	numSteps      int
	guidance      float64
	imageWidth    int
	imageHeight   int

	configFile string
	preset     string
	jsonOut    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "latentwalk",
		Short:         "walk the latent space of a text-to-image model and export the frames as a GIF",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(logLevel, os.Stderr)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".latentwalk", "run data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	interpolateCmd := &cobra.Command{
		Use:   "interpolate [prompt_a] [prompt_b]",
		Short: "interpolate between two prompt encodings",
		Args:  cobra.ExactArgs(2),
		RunE:  runMode(config.ModeInterpolate),
	}
	randomCmd := &cobra.Command{
		Use:   "random [prompt]",
		Short: "random walk away from a prompt encoding",
		Args:  cobra.ExactArgs(1),
		RunE:  runMode(config.ModeRandom),
	}
	circularCmd := &cobra.Command{
		Use:   "circular [prompt]",
		Short: "circular walk through the diffusion noise for a fixed prompt",
		Args:  cobra.ExactArgs(1),
		RunE:  runMode(config.ModeCircular),
	}
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a walk from a config file or preset",
		Args:  cobra.NoArgs,
		RunE:  runConfigured,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	addWalkFlags(interpolateCmd, config.ModeInterpolate)
	addWalkFlags(randomCmd, config.ModeRandom)
	addWalkFlags(circularCmd, config.ModeCircular)
	addWalkFlags(runCmd, "")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "render every walk listed in a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the runs in the data directory")

	presetsCmd := &cobra.Command{
		Use:   "presets [mode]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot per-step norm and step length of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&jsonOut, "out", "o", "", "write to file instead of stdout")

	rootCmd.AddCommand(interpolateCmd, randomCmd, circularCmd, runCmd, scenarioCmd, presetsCmd, listCmd, plotCmd, exportJSONCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("latentwalk failed", "err", err)
		stop()
		os.Exit(1)
	}
}

// addWalkFlags registers the walk overrides. mode only sets the rubber-band
// default shown in help; an empty mode is a config-driven command.
func addWalkFlags(cmd *cobra.Command, mode string) {
	f := cmd.Flags()
	f.IntVar(&steps, "steps", config.DefaultSteps, "number of frames in the walk")
	f.IntVar(&batchSize, "batch-size", config.DefaultBatchSize, "max images per generator call")
	f.Float64Var(&stepSize, "step-size", config.DefaultStepSize, "random walk step size")
	f.Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	f.IntVar(&fps, "fps", config.DefaultFPS, "GIF frame rate")
	f.StringVarP(&output, "output", "o", config.DefaultOutput, "GIF output path")
	f.BoolVar(&rubberBand, "rubber-band", config.DefaultRubberBand(mode),
		"append the reversed interior so the GIF loops smoothly (default: on except circular)")
	f.StringVar(&sheet, "sheet", "", "also write an SVG contact sheet to this path")
	f.IntVar(&sheetCols, "sheet-columns", 0, "contact sheet columns (0 = square)")
	f.BoolVar(&live, "live", false, "show batch progress in a terminal view")
	f.BoolVar(&noSave, "no-save", false, "do not record the run in the data directory")

	f.StringVar(&encoderKind, "encoder", "hash", "text encoder (hash, remote)")
	f.StringVar(&encoderURL, "encoder-url", "", "remote encoder base url")
	f.StringVar(&generatorKind, "generator", "preview", "image generator (preview, remote)")
	f.StringVar(&generatorURL, "generator-url", "", "remote generator base url")
	f.IntVar(&numSteps, "num-steps", config.DefaultNumSteps, "diffusion steps per image")
	f.Float64Var(&guidance, "guidance-scale", 0, "unconditional guidance scale (0 = server default)")
	f.IntVar(&imageWidth, "width", 128, "preview image width")
	f.IntVar(&imageHeight, "height", 128, "preview image height")
}

// applyFlags overrides cfg with every flag the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("steps") {
		cfg.Steps = steps
	}
	if f.Changed("batch-size") {
		cfg.BatchSize = batchSize
	}
	if f.Changed("step-size") {
		cfg.StepSize = stepSize
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("fps") {
		cfg.Output.FPS = fps
	}
	if f.Changed("output") {
		cfg.Output.Path = output
	}
	if f.Changed("rubber-band") {
		cfg.Output.RubberBand = rubberBand
	}
	if f.Changed("sheet") {
		cfg.Output.Sheet = sheet
	}
	if f.Changed("sheet-columns") {
		cfg.Output.SheetColumns = sheetCols
	}
	if f.Changed("encoder") {
		cfg.Encoder.Kind = encoderKind
	}
	if f.Changed("encoder-url") {
		cfg.Encoder.URL = encoderURL
	}
	if f.Changed("generator") {
		cfg.Generator.Kind = generatorKind
	}
	if f.Changed("generator-url") {
		cfg.Generator.URL = generatorURL
	}
	if f.Changed("num-steps") {
		cfg.Generator.NumSteps = numSteps
	}
	if f.Changed("guidance-scale") {
		cfg.Generator.GuidanceScale = guidance
	}
	if f.Changed("width") {
		cfg.Generator.Width = imageWidth
	}
	if f.Changed("height") {
		cfg.Generator.Height = imageHeight
	}
}

func runMode(mode string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()
		cfg.Mode = mode
		cfg.Prompts = args
		cfg.Output.RubberBand = config.DefaultRubberBand(mode)
		applyFlags(cmd, cfg)
		return execute(cmd, cfg)
	}
}

func runConfigured(cmd *cobra.Command, args []string) error {
	var cfg *config.Config

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(""))
		}
	}

	// A config file overrides the preset.
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if cfg == nil {
		return fmt.Errorf("run needs --config or --preset")
	}

	applyFlags(cmd, cfg)
	return execute(cmd, cfg)
}

func execute(cmd *cobra.Command, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	p, err := pipeline.FromConfig(cfg)
	if err != nil {
		return err
	}
	p.WithLogger(logger)

	var res *pipeline.Result
	job := func(ctx context.Context, obs sampler.Observer) error {
		if obs != nil {
			p.AddObserver(obs)
		}
		r, err := p.Run(ctx, cfg)
		res = r
		return err
	}

	if live {
		err = viz.RunProgress(cmd.Context(), cfg.String(), cfg.Steps, job)
	} else {
		logger.Info("sampling", "mode", cfg.Mode, "steps", cfg.Steps, "batch_size", cfg.BatchSize, "generator", cfg.Generator.Kind)
		err = job(cmd.Context(), nil)
	}
	if err != nil {
		return err
	}

	rows := [][2]string{
		{"mode", cfg.Mode},
		{"prompts", strings.Join(cfg.Prompts, " → ")},
		{"frames", fmt.Sprintf("%s (%s written)", humanize.Comma(int64(len(res.Frames))), humanize.Comma(int64(res.Written)))},
		{"output", fmt.Sprintf("%s (%s)", res.Output, humanize.Bytes(uint64(res.OutputBytes)))},
		{"elapsed", res.Elapsed.Round(time.Millisecond).String()},
	}
	if res.Sheet != "" {
		rows = append(rows, [2]string{"sheet", res.Sheet})
	}

	if !noSave {
		runID, err := saveRun(cfg, res)
		if err != nil {
			return err
		}
		rows = append(rows, [2]string{"run id", runID})
	}

	fmt.Println(viz.Summary("latentwalk", rows))
	fmt.Println(viz.MetricsTable(res.Metrics))
	return nil
}

func saveRun(cfg *config.Config, res *pipeline.Result) (string, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	return st.Save(res.Metadata(cfg), res.Steps())
}

func runScenario(cmd *cobra.Command, args []string) error {
	s, err := pipeline.LoadScenario(args[0])
	if err != nil {
		return err
	}
	cfgs, err := s.Configs()
	if err != nil {
		return err
	}

	build := func(cfg *config.Config) (*pipeline.Pipeline, error) {
		p, err := pipeline.FromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return p.WithLogger(logger), nil
	}

	results, err := pipeline.RunScenario(cmd.Context(), s, build)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tMODE\tFRAMES\tSIZE\tOUTPUT\tRUN")
	for i, res := range results {
		runID := "-"
		if !noSave {
			if runID, err = saveRun(cfgs[i], res); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
			i+1, cfgs[i].Mode, res.Written, humanize.Bytes(uint64(res.OutputBytes)), res.Output, runID)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	mode := ""
	if len(args) > 0 {
		mode = args[0]
	}
	names := config.ListPresets(mode)
	if len(names) == 0 {
		fmt.Printf("no presets for mode: %s\n", mode)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODE\tSTEPS\tBATCH\tFPS\tPROMPTS")
	for _, name := range names {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			name, cfg.Mode, cfg.Steps, cfg.BatchSize, cfg.Output.FPS, strings.Join(cfg.Prompts, " → "))
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tWHEN\tSTEPS\tFRAMES\tSIZE\tOUTPUT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			run.ID,
			run.Mode,
			humanize.Time(run.Timestamp),
			run.Steps,
			run.Frames,
			humanize.Bytes(uint64(run.OutputBytes)),
			run.Output,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	records, err := st.LoadSteps(runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("mode: %s\n", meta.Mode)
	fmt.Printf("steps: %d\n\n", len(records))

	series := []struct {
		caption string
		value   func(storage.StepRecord) float64
	}{
		{"norm", func(r storage.StepRecord) float64 { return r.Norm }},
		{"step length", func(r storage.StepRecord) float64 { return r.StepLength }},
		{"distance from start", func(r storage.StepRecord) float64 { return r.FromStart }},
	}

	for _, s := range series {
		data := make([]float64, len(records))
		for i, r := range records {
			data[i] = s.value(r)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if jsonOut != "" {
		return st.ExportJSONFile(jsonOut, args[0])
	}
	return st.ExportJSON(os.Stdout, args[0])
}
