package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/logging"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/optim"
	"github.com/san-kum/rigidsim/internal/rigid"
	"github.com/san-kum/rigidsim/internal/sim"
	"github.com/san-kum/rigidsim/internal/storage"
	"github.com/san-kum/rigidsim/internal/tui"
)

var (
	dataDir       string
	logLevel      string
	logFormat     string
	dt            float64
	duration      float64
	configFile    string
	preset        string
	friction      float64
	gain          float64
	iterations    int
	kicks         []string
	recordEvery   int
	format        string
	column        string
	bodyName      string
	workers       int
	frictions     []float64
	steps         int
	gains         []float64
	iterationGrid []int
	kickOmega     float64

	logger = zap.NewNop()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "rigidsim",
		Short:         "planar rigid body and hinge constraint simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(logLevel, logFormat)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".rigidsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scenario and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	scenarioFlags(runCmd)
	runCmd.Flags().StringSliceVar(&kicks, "kick", nil, "angular velocity kick as step:body:omega (repeatable)")
	runCmd.Flags().IntVar(&recordEvery, "record-every", 1, "keep one sample every N steps")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&bodyName, "body", "", "only plot this body")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run data",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&format, "format", "json", "output format (json, csv, meta)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and swing analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&column, "column", "", "column to analyze (default: first body theta)")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "theta/omega phase portrait",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().StringVar(&bodyName, "body", "", "body to plot (default: first)")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [scenario]",
		Short: "estimate the largest lyapunov exponent",
		Args:  cobra.MaximumNArgs(1),
		RunE:  lyapunov,
	}
	scenarioFlags(lyapunovCmd)
	lyapunovCmd.Flags().StringVar(&bodyName, "body", "", "body to perturb (default: last)")

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets, or print one as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [scenario]",
		Short: "benchmark a scenario across timesteps",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScenario,
	}
	benchCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	benchCmd.Flags().IntVar(&steps, "steps", 10000, "steps per measurement")

	sweepCmd := &cobra.Command{
		Use:   "sweep [scenario]",
		Short: "run a scenario for several friction coefficients in parallel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepFriction,
	}
	scenarioFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&frictions, "coefficients", []float64{0, 0.01, 0.025, 0.05, 0.1}, "friction coefficients")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (0: one per coefficient)")

	tuneCmd := &cobra.Command{
		Use:   "tune [scenario]",
		Short: "grid search solver gain and iterations for the least constraint drift",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneSolver,
	}
	scenarioFlags(tuneCmd)
	tuneCmd.Flags().Float64SliceVar(&gains, "gains", []float64{0.05, 0.1, 0.2, 0.4}, "correction gains to try")
	tuneCmd.Flags().IntSliceVar(&iterationGrid, "iteration-grid", []int{1, 5, 10, 20}, "solver sweep counts to try")

	watchCmd := &cobra.Command{
		Use:   "watch [scenario]",
		Short: "step a scenario live in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  watchScenario,
	}
	scenarioFlags(watchCmd)
	watchCmd.Flags().Float64Var(&kickOmega, "kick-omega", 1, "angular velocity set on the last body by space")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, analyzeCmd, phaseCmd, lyapunovCmd, presetsCmd, benchCmd, sweepCmd, tuneCmd, watchCmd)

	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func scenarioFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset scenario")
	cmd.Flags().Float64Var(&friction, "friction", 0, "override every hinge friction coefficient")
	cmd.Flags().Float64Var(&gain, "gain", config.DefaultCorrectionGain, "constraint correction gain")
	cmd.Flags().IntVar(&iterations, "iterations", config.DefaultIterations, "constraint solver sweeps per step")
}

// loadScenario resolves the scenario from --config, --preset, the first
// argument, or the default, then applies any flags the user set.
func loadScenario(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	default:
		name := preset
		if name == "" && len(args) > 0 {
			name = args[0]
		}
		if name == "" {
			name = config.DefaultConfig().Name
		}
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown scenario: %s (available: %v)", name, config.ListPresets())
		}
	}
	if err := applyOverrides(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("gain") {
		cfg.Solver.CorrectionGain = gain
	}
	if flags.Changed("iterations") {
		cfg.Solver.Iterations = iterations
	}
	if flags.Changed("friction") {
		setFriction(cfg, friction)
	}
	if flags.Changed("kick") {
		parsed, err := parseKicks(kicks)
		if err != nil {
			return err
		}
		cfg.Kicks = append(cfg.Kicks, parsed...)
	}
	return nil
}

// setFriction overrides existing friction generators, or adds one to every
// hinge when the scenario has none.
func setFriction(cfg *config.Config, mu float64) {
	found := false
	for i := range cfg.Generators {
		if cfg.Generators[i].Type == config.KindFriction {
			cfg.Generators[i].Coefficient = mu
			found = true
		}
	}
	if found {
		return
	}
	for _, c := range cfg.Constraints {
		if c.Type == config.KindHinge && c.Name != "" {
			cfg.Generators = append(cfg.Generators, config.GeneratorConfig{
				Type: config.KindFriction, Body: c.Body, Constraint: c.Name, Coefficient: mu,
			})
		}
	}
}

func parseKicks(values []string) ([]config.KickConfig, error) {
	out := make([]config.KickConfig, 0, len(values))
	for _, s := range values {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid kick %q, want step:body:omega", s)
		}
		step, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid kick step %q: %w", parts[0], err)
		}
		omega, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid kick omega %q: %w", parts[2], err)
		}
		out = append(out, config.KickConfig{Step: step, Body: parts[1], AngularVelocity: omega})
	}
	return out, nil
}

// gravityOf returns the first gravity acceleration in the scenario.
func gravityOf(cfg *config.Config) mgl64.Vec2 {
	for _, g := range cfg.Generators {
		if g.Type == config.KindGravity {
			return g.Acceleration
		}
	}
	return mgl64.Vec2{0, config.DefaultGravity}
}

func newSimulator(cfg *config.Config) (*sim.Simulator, *config.Scene, error) {
	sys, scene, err := config.Build(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	s := sim.New(sys, logger)
	for _, m := range metrics.Defaults(gravityOf(cfg)) {
		s.AddMetric(m)
	}
	return s, scene, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	s, scene, err := newSimulator(cfg)
	if err != nil {
		return err
	}
	simCfg := cfg.SimConfig(scene)
	simCfg.RecordEvery = recordEvery

	fmt.Printf("running %s simulation...\n", cfg.Name)
	start := time.Now()

	result, err := s.Run(cmd.Context(), simCfg)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(storage.RunInfo{
		Scenario: cfg.Name,
		Dt:       cfg.Dt,
		Duration: cfg.Duration,
		Bodies:   scene.BodyNames,
	}, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("fingerprint: %016x\n", result.Fingerprint())
	if d := result.Diagnostics; d.DivergentSteps > 0 {
		fmt.Printf("warning: %d divergent steps (max violation %.3g)\n", d.DivergentSteps, d.MaxViolation)
	}
	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(result.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}

	return nil
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
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDURATION\tDT\tBODIES\tDIVERGENT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			len(run.Bodies),
			run.Diagnostics.DivergentSteps,
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

	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", len(states))

	for _, name := range meta.Bodies {
		if bodyName != "" && name != bodyName {
			continue
		}
		for _, field := range []string{"theta", "omega"} {
			col := name + "_" + field
			data, err := storage.Column(meta.Bodies, states, col)
			if err != nil {
				return err
			}
			graph := asciigraph.Plot(data,
				asciigraph.Height(10),
				asciigraph.Width(80),
				asciigraph.Caption(col),
			)
			fmt.Println(graph)
			fmt.Println()
		}
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	switch format {
	case "json":
		data, err := st.StoredExportData(runID)
		if err != nil {
			return err
		}
		return storage.WriteJSON(os.Stdout, data)
	case "meta":
		meta, err := st.Load(runID)
		if err != nil {
			return err
		}
		return yaml.NewEncoder(os.Stdout).Encode(meta)
	case "csv":
		meta, err := st.Load(runID)
		if err != nil {
			return err
		}
		states, times, err := st.LoadStates(runID)
		if err != nil {
			return err
		}
		w := csv.NewWriter(os.Stdout)
		if err := w.Write(storage.StateHeader(meta.Bodies)); err != nil {
			return err
		}
		for i := range states {
			row := []string{strconv.FormatFloat(times[i], 'g', -1, 64)}
			for _, val := range states[i] {
				row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		cfg := config.GetPreset(args[0])
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBODIES\tCONSTRAINTS\tGENERATORS\tITERATIONS")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			name, len(cfg.Bodies), len(cfg.Constraints), len(cfg.Generators), cfg.Solver.Iterations)
	}
	return w.Flush()
}

func benchScenario(cmd *cobra.Command, args []string) error {
	var base *config.Config
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return err
		}
		base = c
	} else {
		name := "double_pendulum"
		if len(args) > 0 {
			name = args[0]
		}
		base = config.GetPreset(name)
		if base == nil {
			return fmt.Errorf("unknown scenario: %s", name)
		}
	}

	dts := []float64{1.0 / 30, 1.0 / 60, 1.0 / 120, 1.0 / 240}

	fmt.Printf("benchmarking %s (%d steps)\n\n", base.Name, steps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DT\tSTEPS\tTIME\tSTEPS/SEC\tMAX VIOLATION\tENERGY DRIFT")

	for _, step := range dts {
		cfg := *base
		cfg.Dt = step
		cfg.Duration = float64(steps) * step

		s, scene, err := newSimulator(&cfg)
		if err != nil {
			return err
		}
		simCfg := cfg.SimConfig(scene)
		simCfg.RecordEvery = steps

		start := time.Now()
		result, err := s.Run(context.Background(), simCfg)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		fmt.Fprintf(w, "%.4fs\t%d\t%v\t%.0f\t%.3g\t%.3g\n",
			step, result.StepsTaken, elapsed,
			float64(result.StepsTaken)/elapsed.Seconds(),
			result.Diagnostics.MaxViolation,
			result.Metrics["energy_drift"],
		)
	}

	return w.Flush()
}

func sweepFriction(cmd *cobra.Command, args []string) error {
	base, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	if len(frictions) == 0 {
		return fmt.Errorf("no coefficients given")
	}

	build := func(i int) (*sim.Simulator, error) {
		cfg := *base
		cfg.Generators = append([]config.GeneratorConfig(nil), base.Generators...)
		setFriction(&cfg, frictions[i])
		s, _, err := newSimulator(&cfg)
		return s, err
	}

	// every copy shares the same layout, so kicks resolve identically
	_, scene, err := config.Build(base, nil)
	if err != nil {
		return err
	}
	simCfg := base.SimConfig(scene)
	simCfg.RecordEvery = 1

	start := time.Now()
	results, err := sim.Sweep(cmd.Context(), len(frictions), build, simCfg, workers)
	if err != nil {
		return err
	}

	fmt.Printf("friction sweep of %s: %d runs in %v\n\n", base.Name, len(results), time.Since(start))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FRICTION\tMEAN ENERGY\tENERGY DRIFT\tMAX VIOLATION\tDECAY\tFINGERPRINT")
	for i, r := range results {
		decay := swingDecay(r, 0)
		fmt.Fprintf(w, "%.4f\t%.4f\t%.3g\t%.3g\t%.4f\t%016x\n",
			frictions[i],
			r.Metrics["energy"],
			r.Metrics["energy_drift"],
			r.Diagnostics.MaxViolation,
			decay,
			r.Fingerprint(),
		)
	}
	return w.Flush()
}

func tuneSolver(cmd *cobra.Command, args []string) error {
	base, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	iters := make([]float64, len(iterationGrid))
	for i, n := range iterationGrid {
		iters[i] = float64(n)
	}
	gs := optim.NewGridSearch([]string{"gain", "iterations"}, [][]float64{gains, iters})

	build := func(params map[string]float64) (*sim.Simulator, sim.Config, error) {
		cfg := *base
		cfg.Solver.CorrectionGain = params["gain"]
		cfg.Solver.Iterations = int(params["iterations"])
		s, scene, err := newSimulator(&cfg)
		if err != nil {
			return nil, sim.Config{}, err
		}
		simCfg := cfg.SimConfig(scene)
		simCfg.RecordEvery = cfg.Steps()
		return s, simCfg, nil
	}

	best, drift, err := gs.Search(cmd.Context(), build, "constraint_drift")
	if err != nil {
		return err
	}

	fmt.Printf("scenario: %s\n", base.Name)
	fmt.Printf("best gain: %g\n", best["gain"])
	fmt.Printf("best iterations: %d\n", int(best["iterations"]))
	fmt.Printf("max constraint drift: %.3g\n", drift)
	return nil
}

func watchScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	m, err := tui.NewModel(cfg, gravityOf(cfg), logger)
	if err != nil {
		return err
	}
	m.KickOmega = kickOmega
	return tui.Run(m)
}

func lyapunov(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	_, scene, err := config.Build(cfg, nil)
	if err != nil {
		return err
	}
	body := rigid.BodyID(len(scene.BodyNames) - 1)
	if bodyName != "" {
		id, ok := scene.Bodies[bodyName]
		if !ok {
			return fmt.Errorf("unknown body: %s", bodyName)
		}
		body = id
	}

	build := func() (*rigid.System, error) {
		sys, _, err := config.Build(cfg, logger)
		return sys, err
	}
	lambda, err := estimateLyapunov(build, body, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("scenario: %s\n", cfg.Name)
	fmt.Printf("perturbed body: %s\n", scene.BodyNames[body])
	fmt.Printf("largest lyapunov exponent: %.4f 1/s\n", lambda)
	if lambda > 0.1 {
		fmt.Println("motion looks chaotic")
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
