package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/rdtsim/rdtsim/sim"
	"github.com/rdtsim/rdtsim/sim/protocol"
	"github.com/rdtsim/rdtsim/sim/trace"
)

var (
	// CLI flags for the run
	seed          int64   // Seed for every random draw in the run
	logLevel      string  // Log verbosity level
	horizon       float64 // Stop once the clock passes this time (0 = drain the queue)
	bidirectional bool    // Generate messages at both A and B
	arrival       string  // Inter-arrival process: uniform or poisson
	strict        bool    // Contract violations fail the run
	configPath    string  // Path to defaults.yaml

	// CLI flags for the protocol entities
	protocolName string  // saw or gbn
	windowSize   int     // go-back-N window
	timeout      float64 // Retransmission timeout
	maxBuffered  int     // Backlog bound while the window is full

	// CLI flags for output
	jsonOutput bool   // Print metrics as JSON instead of text
	traceLevel string // Trace verbosity: none or events
	traceDB    string // SQLite trace file name (without extension)
	plotPath   string // PNG/SVG/PDF file for the delay plot
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "rdtsim",
	Short: "Discrete-event emulator of an unreliable channel for reliable-data-transfer protocols",
}

// runArgs holds the four positional arguments of `rdtsim run`.
type runArgs struct {
	numMessages int
	lossProb    float64
	corruptProb float64
	interval    float64
}

func parseRunArgs(args []string) (runArgs, error) {
	var ra runArgs
	var err error
	if len(args) != 4 {
		return ra, fmt.Errorf("expected 4 arguments, got %d", len(args))
	}
	if ra.numMessages, err = strconv.Atoi(args[0]); err != nil {
		return ra, fmt.Errorf("num_sim %q: %w", args[0], err)
	}
	if ra.lossProb, err = strconv.ParseFloat(args[1], 64); err != nil {
		return ra, fmt.Errorf("prob_loss %q: %w", args[1], err)
	}
	if ra.corruptProb, err = strconv.ParseFloat(args[2], 64); err != nil {
		return ra, fmt.Errorf("prob_corrupt %q: %w", args[2], err)
	}
	if ra.interval, err = strconv.ParseFloat(args[3], 64); err != nil {
		return ra, fmt.Errorf("interval %q: %w", args[3], err)
	}
	return ra, nil
}

// validateRunArgs rejects positional arguments that do not parse, so cobra
// prints usage and the process exits non-zero.
func validateRunArgs(_ *cobra.Command, args []string) error {
	_, err := parseRunArgs(args)
	return err
}

// buildConfig merges positional arguments, presets and flags into a sim.Config.
// A flag only overrides its preset when the user set it.
func buildConfig(cmd *cobra.Command, ra runArgs, defaults Config) (sim.Config, error) {
	preset, ok := defaults.Preset(protocolName)
	if !ok {
		return sim.Config{}, fmt.Errorf("%w: %q", protocol.ErrUnknownProtocol, protocolName)
	}

	cfg := sim.Config{
		Seed:     defaults.Run.Seed,
		Horizon:  horizon,
		Strict:   strict,
		Channel:  sim.NewChannelConfig(ra.lossProb, ra.corruptProb),
		Workload: sim.NewWorkloadConfig(ra.numMessages, ra.interval),
		Protocol: sim.NewProtocolConfig(protocolName, preset.WindowSize, preset.Timeout, preset.MaxBuffered),
	}
	cfg.Workload.Bidirectional = bidirectional
	if defaults.Run.Arrival != "" {
		cfg.Workload.Arrival = defaults.Run.Arrival
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("arrival") {
		cfg.Workload.Arrival = arrival
	}
	if flags.Changed("window") {
		cfg.Protocol.WindowSize = windowSize
	}
	if flags.Changed("timeout") {
		cfg.Protocol.Timeout = timeout
	}
	if flags.Changed("max-buffered") {
		cfg.Protocol.MaxBuffered = maxBuffered
	}

	if err := cfg.Validate(); err != nil {
		return sim.Config{}, err
	}
	return cfg, nil
}

// outputOptions controls what a run writes besides the metrics report.
type outputOptions struct {
	json       bool
	traceLevel trace.TraceLevel
	traceDB    string
	plotPath   string
}

// runSimulation builds the entities, wires the recorders, runs, and writes the report to out.
func runSimulation(out io.Writer, cfg sim.Config, runID string, opts outputOptions) (*sim.Metrics, error) {
	a, b, err := protocol.NewPair(cfg.Protocol)
	if err != nil {
		return nil, err
	}

	var inMemory *trace.SimulationTrace
	if opts.traceLevel == trace.TraceLevelEvents || opts.plotPath != "" {
		inMemory = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelEvents, RunID: runID})
	}
	var db *trace.SQLiteRecorder
	if opts.traceDB != "" {
		db, err = trace.NewSQLiteRecorder(opts.traceDB, runID)
		if err != nil {
			return nil, err
		}
		defer func() {
			if cerr := db.Close(); cerr != nil {
				logrus.Errorf("closing trace database %s: %v", db.Filename(), cerr)
			}
		}()
	}

	simOpts := []sim.Option{sim.WithRunID(runID)}
	if inMemory != nil || db != nil {
		var recorders []trace.Recorder
		if inMemory != nil {
			recorders = append(recorders, inMemory)
		}
		if db != nil {
			recorders = append(recorders, db)
		}
		simOpts = append(simOpts, sim.WithRecorder(trace.Tee(recorders...)))
	}

	s, err := sim.NewSimulator(cfg, a, b, simOpts...)
	if err != nil {
		return nil, err
	}

	logrus.Infof("Starting %s run %s: %d messages, loss=%.3f, corrupt=%.3f, interval=%.3f, seed=%d",
		cfg.Protocol.Name, runID, cfg.Workload.MaxMessages, cfg.Channel.LossProb,
		cfg.Channel.CorruptProb, cfg.Workload.MeanInterarrival, cfg.Seed)
	runErr := s.Run()

	if opts.json {
		if err := s.Metrics.WriteJSON(out); err != nil {
			return s.Metrics, err
		}
	} else {
		s.Metrics.Print(out)
	}

	if inMemory != nil {
		summary := trace.Summarize(inMemory)
		logrus.Infof("Trace: %d events, %d transmissions (%d lost, %d corrupted), mean delay %.4f, max delay %.4f",
			summary.TotalEvents, summary.TotalTransmitted, summary.LostCount, summary.CorruptedCount,
			summary.MeanDelay, summary.MaxDelay)
	}
	if opts.plotPath != "" {
		err := writeDelayPlot(opts.plotPath, inMemory.Transmissions)
		switch {
		case errors.Is(err, errNothingToPlot):
			logrus.Warnf("Skipping delay plot %s: %v", opts.plotPath, err)
		case err != nil:
			return s.Metrics, fmt.Errorf("writing delay plot: %w", err)
		default:
			logrus.Infof("Delay plot written to %s", opts.plotPath)
		}
	}

	return s.Metrics, runErr
}

// runCmd executes the simulation using positional arguments and CLI flags
var runCmd = &cobra.Command{
	Use:   "run <num_sim> <prob_loss> <prob_corrupt> <interval>",
	Short: "Run the channel emulation",
	Args:  cobra.MatchAll(cobra.ExactArgs(4), validateRunArgs),
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s", traceLevel)
		}

		defaults, err := resolveDefaults(configPath, cmd.Flags().Changed("config"))
		if err != nil {
			logrus.Fatalf("Failed to load defaults: %v", err)
		}
		tl := trace.TraceLevel(traceLevel)
		if !cmd.Flags().Changed("trace-level") && defaults.Run.TraceLevel != "" {
			tl = trace.TraceLevel(defaults.Run.TraceLevel)
		}

		ra, _ := parseRunArgs(args) // validated by Args
		cfg, err := buildConfig(cmd, ra, defaults)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		_, err = runSimulation(cmd.OutOrStdout(), cfg, xid.New().String(), outputOptions{
			json:       jsonOutput,
			traceLevel: tl,
			traceDB:    traceDB,
			plotPath:   plotPath,
		})
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// init sets up CLI flags and subcommands
func init() {
	// Fatal logs must still flush trace databases.
	logrus.StandardLogger().ExitFunc = atexit.Exit

	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for every random draw in the run (overrides defaults.yaml)")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().Float64Var(&horizon, "horizon", 0, "Stop once simulation time passes this value (0 runs until no events remain)")
	runCmd.Flags().BoolVar(&bidirectional, "bidirectional", false, "Generate application messages at both A and B")
	runCmd.Flags().StringVar(&arrival, "arrival", sim.ArrivalUniform, "Inter-arrival process (uniform, poisson)")
	runCmd.Flags().BoolVar(&strict, "strict", false, "Fail the run on any protocol contract violation")
	runCmd.Flags().StringVar(&configPath, "config", "defaults.yaml", "Path to the presets file")

	// Protocol configs
	runCmd.Flags().StringVar(&protocolName, "protocol", protocol.NameStopAndWait, "Protocol entities to run (saw, gbn)")
	runCmd.Flags().IntVar(&windowSize, "window", protocol.DefaultWindowSize, "Go-back-N send window")
	runCmd.Flags().Float64Var(&timeout, "timeout", protocol.DefaultTimeout, "Retransmission timeout in simulation time units")
	runCmd.Flags().IntVar(&maxBuffered, "max-buffered", protocol.DefaultMaxBuffered, "Messages a sender may queue while its window is full")

	// Output configs
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print metrics, including the delivery log, as JSON")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", string(trace.TraceLevelNone), "Trace verbosity (none, events)")
	runCmd.Flags().StringVar(&traceDB, "trace-db", "", "Record the trace into <name>.sqlite3")
	runCmd.Flags().StringVar(&plotPath, "plot", "", "Write a send time vs one-way delay plot to this file")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
