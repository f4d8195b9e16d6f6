package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jbbrd/DES-for-YB-operations/sim"
	"github.com/jbbrd/DES-for-YB-operations/sim/experiment"
	"github.com/jbbrd/DES-for-YB-operations/sim/export"
	"github.com/jbbrd/DES-for-YB-operations/sim/observability"
	"github.com/jbbrd/DES-for-YB-operations/sim/trace"
)

var (
	// Shared flags
	logLevel     string // Log verbosity level
	scenarioPath string // Scenario YAML file (empty = reference scenario)
	outDir       string // Directory for JSONL result streams (empty = none)
	traceSpans   bool   // Export OpenTelemetry spans to stdout

	// run flags
	seed           int64   // Seed of the random stream
	runHours       float64 // Measured simulation length (hours)
	warmUpHours    float64 // Warm-up discarded before measuring (hours)
	warmStartHours float64 // Pre-run that fills the block before the run (hours)
	allocation     string  // Storage allocation strategy
	sequencer      string  // Queue sequencing policy
	arrivalRate    float64 // Exogenous container arrivals per hour
	departureRate  float64 // Exogenous container departures per hour
	recordHistory  bool    // Keep a yard snapshot at every idle transition
	metricsOut     string  // Prometheus textfile destination (empty = none)
	jsonSummary    bool    // Print the KPI summary as JSON
	traceLevel     string  // Decision trace verbosity
	counterfactual int     // Nearest empty slots recorded per allocation

	// sweep flags
	replications int     // Independent replications per sweep point
	batches      int     // Batch-means windows per replication (0 = off)
	batchHours   float64 // Length of a batch window (hours)
	resultsDB    string  // SQLite results index (empty = none)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "yard-sim",
	Short: "Discrete-event simulator for a yard crane serving a container block",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// runCmd executes one simulation of the scenario
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation and print its KPIs",
	Run: func(cmd *cobra.Command, args []string) {
		sc, err := loadScenario(cmd)
		if err != nil {
			logrus.Fatalf("Failed to load scenario: %v", err)
		}
		decisions, err := newDecisionTrace(traceLevel, counterfactual)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		shutdown := initTracing(cmd.Context())
		defer observability.ShutdownWithTimeout(context.Background(), shutdown)

		startTime := time.Now()
		summary, err := runSimulation(cmd.Context(), sc, runOptions{
			OutDir:     outDir,
			MetricsOut: metricsOut,
			Trace:      decisions,
		})
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		if err := printSummary(os.Stdout, summary, jsonSummary); err != nil {
			logrus.Fatalf("Failed to print summary: %v", err)
		}
		if decisions != nil {
			if err := printTraceSummary(os.Stdout, trace.Summarize(decisions), jsonSummary); err != nil {
				logrus.Fatalf("Failed to print trace summary: %v", err)
			}
		}
		logrus.Infof("Simulation complete in %s.", time.Since(startTime))
	},
}

// sweepCmd runs the experiment plan over every sweep point
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run replications over the scenario sweep and report confidence intervals",
	Run: func(cmd *cobra.Command, args []string) {
		sc, err := loadScenario(cmd)
		if err != nil {
			logrus.Fatalf("Failed to load scenario: %v", err)
		}
		shutdown := initTracing(cmd.Context())
		defer observability.ShutdownWithTimeout(context.Background(), shutdown)

		if err := runSweep(cmd.Context(), sc, os.Stdout, sweepOptions{OutDir: outDir, DBPath: resultsDB}); err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}
	},
}

// loadScenario reads the scenario file, if any, and applies the flags the
// user set explicitly on top of it.
func loadScenario(cmd *cobra.Command) (*Scenario, error) {
	sc := DefaultScenario()
	if scenarioPath != "" {
		loaded, err := LoadScenario(scenarioPath)
		if err != nil {
			return nil, err
		}
		sc = *loaded
	}
	applyFlags(cmd, &sc)
	if err := sc.Config.Validate(); err != nil {
		return nil, err
	}
	sc.Experiment.Scenario = sc.Config
	if err := sc.Experiment.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// applyFlags copies only the flags the user changed, so scenario file values
// survive flag defaults.
func applyFlags(cmd *cobra.Command, sc *Scenario) {
	f := cmd.Flags()
	if f.Changed("seed") {
		sc.Seed = seed
	}
	if f.Changed("hours") {
		sc.Experiment.RunHours = runHours
	}
	if f.Changed("warm-up") {
		sc.Experiment.WarmUpHours = warmUpHours
	}
	if f.Changed("warm-start") {
		sc.Experiment.WarmStartHours = warmStartHours
	}
	if f.Changed("allocation") {
		sc.Policy.Allocation = allocation
	}
	if f.Changed("sequencer") {
		sc.Policy.Sequencer = sequencer
	}
	if f.Changed("arrival-rate") {
		sc.Traffic.ArrivalRate = arrivalRate
	}
	if f.Changed("departure-rate") {
		sc.Traffic.DepartureRate = departureRate
	}
	if f.Changed("record-history") {
		sc.RecordYardHistory = recordHistory
	}
	if f.Changed("replications") {
		sc.Experiment.Replications = replications
	}
	if f.Changed("batches") {
		sc.Experiment.Batches = batches
	}
	if f.Changed("batch-hours") {
		sc.Experiment.BatchHours = batchHours
	}
}

func initTracing(ctx context.Context) func(context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled: traceSpans,
		Writer:  os.Stderr,
	})
	if err != nil {
		logrus.Fatalf("Failed to initialise tracing: %v", err)
	}
	return shutdown
}

type runOptions struct {
	OutDir     string
	MetricsOut string
	Trace      *trace.SimulationTrace // nil when decisions are not traced
}

// newDecisionTrace returns nil for the "none" level.
func newDecisionTrace(level string, k int) (*trace.SimulationTrace, error) {
	if !trace.IsValidTraceLevel(level) {
		return nil, fmt.Errorf("invalid trace level %q (none, decisions)", level)
	}
	if k < 0 {
		return nil, fmt.Errorf("counterfactual-k must be >= 0, got %d", k)
	}
	if trace.TraceLevel(level) != trace.TraceLevelDecisions {
		return nil, nil
	}
	return trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions, CounterfactualK: k}), nil
}

// runSimulation performs the optional warm start, the warm-up and the
// measured run of one scenario, and writes the requested outputs.
func runSimulation(ctx context.Context, sc *Scenario, opts runOptions) (sim.KPISummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := sc.Config
	plan := sc.Experiment
	if plan.WarmStartHours > 0 {
		yard, err := experiment.WarmStart(ctx, cfg, plan.WarmStartHours)
		if err != nil {
			return sim.KPISummary{}, fmt.Errorf("warm start: %w", err)
		}
		cfg.InitialYard = yard
	}

	reg := prometheus.NewRegistry()
	collector, err := observability.NewYardCollector(reg)
	if err != nil {
		return sim.KPISummary{}, err
	}
	simOpts := []sim.SimulatorOption{sim.WithMetricsRecorder(collector)}
	if opts.Trace != nil {
		simOpts = append(simOpts, sim.WithTrace(opts.Trace))
	}
	s, err := sim.NewSimulator(cfg, simOpts...)
	if err != nil {
		return sim.KPISummary{}, err
	}
	if plan.WarmUpHours > 0 {
		s.WarmUp(sim.HoursToTicks(plan.WarmUpHours))
	}
	s.Run(sim.HoursToTicks(plan.RunHours))
	summary := s.Metrics.Summary(s.Clock)

	if opts.OutDir != "" {
		files, err := export.WriteRun(opts.OutDir, fmt.Sprintf("seed%d", cfg.Seed), s)
		if err != nil {
			return summary, fmt.Errorf("export: %w", err)
		}
		logrus.Infof("Results written to %s", filepath.Dir(files.Archive))
	}
	if opts.MetricsOut != "" {
		if err := collector.WriteTextfile(opts.MetricsOut); err != nil {
			return summary, fmt.Errorf("metrics textfile: %w", err)
		}
	}
	return summary, nil
}

func printSummary(w io.Writer, s sim.KPISummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	s.Print(w)
	return nil
}

// printTraceSummary reports the decision trace, warm-up included.
func printTraceSummary(w io.Writer, ts *trace.TraceSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ts)
	}
	fmt.Fprintln(w, "=== Decision Trace ===")
	fmt.Fprintf(w, "Allocations          : %d (%d shared, %d new, %d failed)\n",
		ts.TotalAllocations, ts.SharedStackCount, ts.NewStackCount, ts.FailedCount)
	fmt.Fprintf(w, "Mean / Max Regret    : %.2f / %.2f s\n", ts.MeanRegret, ts.MaxRegret)
	fmt.Fprintf(w, "Sequencing Windows   : %d (%d optimized, %d fallback)\n",
		ts.Windows, ts.OptimizedWindows, ts.FallbackWindows)
	if ts.OptimizedWindows > 0 {
		fmt.Fprintf(w, "Mean Cost Saving     : %.2f s\n", ts.MeanCostSaving)
	}
	return nil
}

type sweepOptions struct {
	OutDir string
	DBPath string
}

// runSweep runs the experiment plan at every sweep point, prints one line per
// point and indexes the results when a database path is given.
func runSweep(ctx context.Context, sc *Scenario, w io.Writer, opts sweepOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var db *export.ResultsDB
	if opts.DBPath != "" {
		var err error
		if db, err = export.OpenResultsDB(opts.DBPath); err != nil {
			return err
		}
		defer db.Close()
	}

	points := sc.Points()
	fmt.Fprintf(w, "%-60s %-28s %-12s %s\n", "point", "utilization", "lead time h", "required")
	for i, pt := range points {
		plan := sc.Experiment
		plan.Scenario = pt.Config
		runner := &experiment.Runner{}
		if opts.OutDir != "" {
			dir := filepath.Join(opts.OutDir, fmt.Sprintf("point%03d", i))
			runner.OnReplication = func(r experiment.Replication, s *sim.Simulator) error {
				_, err := export.WriteRun(dir, fmt.Sprintf("rep%02d", r.Index), s)
				return err
			}
		}
		res, err := runner.Run(ctx, plan)
		if err != nil {
			return fmt.Errorf("%s: %w", pt.Name, err)
		}
		fmt.Fprintf(w, "%-60s %-28s %-12.4f %d\n", pt.Name, res.Utilization, res.LeadTime.Mean, res.Required)
		if db != nil {
			if _, err := db.RecordExperiment(ctx, pt.Name, pt.Config, res); err != nil {
				return fmt.Errorf("record %s: %w", pt.Name, err)
			}
		}
	}
	logrus.Infof("Sweep done: %d points", len(points))
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file (default: reference scenario)")
	rootCmd.PersistentFlags().StringVar(&outDir, "out", "", "Directory for zstd JSONL result streams")
	rootCmd.PersistentFlags().BoolVar(&traceSpans, "trace", false, "Export OpenTelemetry spans to stderr")

	// Scenario overrides shared by run and sweep
	for _, c := range []*cobra.Command{runCmd, sweepCmd} {
		c.Flags().Int64Var(&seed, "seed", 0, "Seed of the random stream (sweep replications use 0..R-1)")
		c.Flags().Float64Var(&runHours, "hours", 480, "Measured simulation length in hours")
		c.Flags().Float64Var(&warmUpHours, "warm-up", 48, "Warm-up length in hours")
		c.Flags().Float64Var(&warmStartHours, "warm-start", 168, "Pre-run that fills the block, in hours (0 = start from the scenario yard)")
		c.Flags().StringVar(&allocation, "allocation", "random", "Storage allocation strategy (random, incremental, decremental, shortest)")
		c.Flags().StringVar(&sequencer, "sequencer", "due-time", "Queue sequencing policy (due-time, windowed)")
		c.Flags().Float64Var(&arrivalRate, "arrival-rate", 1/0.15, "Exogenous container arrivals per hour")
		c.Flags().Float64Var(&departureRate, "departure-rate", 1/1.5, "Exogenous container departures per hour")
	}

	runCmd.Flags().BoolVar(&recordHistory, "record-history", false, "Keep a yard snapshot at every idle transition")
	runCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Write final Prometheus metrics to this textfile")
	runCmd.Flags().BoolVar(&jsonSummary, "json", false, "Print the KPI summary as JSON")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Decision trace level (none, decisions)")
	runCmd.Flags().IntVar(&counterfactual, "counterfactual-k", 0, "Nearest empty slots recorded per allocation decision")

	sweepCmd.Flags().IntVar(&replications, "replications", 10, "Independent replications per sweep point")
	sweepCmd.Flags().IntVar(&batches, "batches", 0, "Batch-means windows per replication (0 = single measured run)")
	sweepCmd.Flags().Float64Var(&batchHours, "batch-hours", 6, "Length of a batch window in hours")
	sweepCmd.Flags().StringVar(&resultsDB, "db", "", "SQLite file indexing the sweep results")

	// Attach subcommands to `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sweepCmd)
}
