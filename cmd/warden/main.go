package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"warden/internal/audit"
	"warden/internal/bench"
	"warden/internal/config"
	"warden/internal/decision"
	"warden/internal/docgen"
	"warden/internal/gate"
	"warden/internal/hitl"
	"warden/internal/logging"
	"warden/internal/orchestrator"
)

var (
	// Global flags
	verbose    bool
	jsonLogs   bool
	configPath string

	// Run flags
	resolverMode string
	trace        bool

	// Bench flags
	benchIterations int
	benchWorkers    int
	benchSeed       int64

	// Audit flags
	auditSealed  bool
	auditByLayer bool
	auditRecent  int
	auditRunID   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "warden - policy-gated document pipeline",
	Long: `warden runs document requests through a fixed sequence of policy gates
(meaning, consistency, relativity filter, ethics, access control) before
dispatching them to the document generator.

Every gate decision lands in an append-only audit trail. Ethics and access
control may seal a stop, which no human can override; every other pause is
handed to the configured HITL resolver.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "info"
		if verbose {
			level = "debug"
		}
		return logging.Init(level, jsonLogs)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// runCmd processes a task file through the pipeline
var runCmd = &cobra.Command{
	Use:   "run [tasks-file]",
	Short: "Run a task file through the gate pipeline",
	Long: `Loads tasks from a YAML or JSON file and walks each one through the
gates in order. Surviving tasks are dispatched to the document generator.

Example:
  warden run tasks.yaml
  warden run tasks.yaml --resolver interactive --trace`,
	Args: cobra.ExactArgs(1),
	RunE: runTasks,
}

// benchCmd stress-tests the pipeline with fault injection
var benchCmd = &cobra.Command{
	Use:   "bench [tasks-file]",
	Short: "Stress the pipeline with randomized fault injection",
	Long: `Repeats the task file through the pipeline for the configured number
of iterations, injecting faults (PII, relative language, directive conflicts,
banned terms, missing requesters) at the configured rates. Prints an
aggregate report that must reconcile: every task ends dispatched or stopped.

Example:
  warden bench tasks.yaml --iterations 500 --workers 8`,
	Args: cobra.ExactArgs(1),
	RunE: runBench,
}

// auditCmd queries the sqlite audit archive
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit archive",
	Long: `Summarizes the sqlite audit archive. By default prints counts by
decision; flags narrow the view.

Examples:
  warden audit
  warden audit --by-layer
  warden audit --sealed
  warden audit --run 4f1c...`,
	RunE: queryAudit,
}

// gatesCmd prints the pipeline order
var gatesCmd = &cobra.Command{
	Use:   "gates",
	Short: "Show the fixed gate order and sealing authority",
	RunE:  showGates,
}

// watchCmd runs the pipeline on files dropped into a directory
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and run task files dropped into it",
	Args:  cobra.ExactArgs(1),
	RunE:  watchDir,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit JSON logs instead of console")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".warden/config.yaml", "Config file path")

	runCmd.Flags().StringVar(&resolverMode, "resolver", "", "Override HITL resolver (auto, random, scripted, interactive)")
	runCmd.Flags().BoolVar(&trace, "trace", false, "Print every gate decision as it happens")

	benchCmd.Flags().IntVar(&benchIterations, "iterations", 0, "Override bench iterations")
	benchCmd.Flags().IntVar(&benchWorkers, "workers", 0, "Override bench workers")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 0, "Override bench seed")

	auditCmd.Flags().BoolVar(&auditSealed, "sealed", false, "Show sealed stops")
	auditCmd.Flags().BoolVar(&auditByLayer, "by-layer", false, "Show counts by layer and decision")
	auditCmd.Flags().IntVar(&auditRecent, "recent", 0, "Show the N most recent rows")
	auditCmd.Flags().StringVar(&auditRunID, "run", "", "Show every row of one run")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(gatesCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runTasks executes a single task file through the pipeline
func runTasks(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if resolverMode != "" {
		cfg.HITL.Mode = resolverMode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	tasks, err := orchestrator.LoadTasks(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log, store, err := openAudit(cfg)
	if err != nil {
		return err
	}
	defer log.Close()
	if store != nil {
		defer store.Close()
	}

	resolver, err := buildResolver(cfg)
	if err != nil {
		return err
	}

	bus := orchestrator.NewEventBus()
	traceDone := make(chan struct{})
	if trace {
		go printTrace(bus.Subscribe(), traceDone)
	} else {
		close(traceDone)
	}

	orch, err := orchestrator.New(orchestrator.Params{
		Gates:     gate.Pipeline(gateOptions(cfg)),
		Resolver:  resolver,
		Log:       log,
		Store:     store,
		Generator: docgen.New(cfg.Output.DocsDir),
		Bus:       bus,
	})
	if err != nil {
		return err
	}

	summary, err := orch.Run(ctx, tasks)
	bus.Close()
	<-traceDone
	if err != nil {
		return err
	}

	printSummary(summary)
	fmt.Printf("\nAudit trail: %s\n", log.Path())
	return nil
}

// runBench drives the stress runner
func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if benchIterations > 0 {
		cfg.Bench.Iterations = benchIterations
	}
	if benchWorkers > 0 {
		cfg.Bench.Workers = benchWorkers
	}
	if benchSeed != 0 {
		cfg.Bench.Seed = benchSeed
	}

	tasks, err := orchestrator.LoadTasks(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log, store, err := openAudit(cfg)
	if err != nil {
		return err
	}
	defer log.Close()
	if store != nil {
		defer store.Close()
	}

	runner, err := bench.NewRunner(bench.Options{
		Config:      cfg.Bench,
		GateOptions: gateOptions(cfg),
		ContinuePct: cfg.HITL.ContinuePct,
		Log:         log,
		Store:       store,
		DocsDir:     cfg.Output.DocsDir,
		Tasks:       tasks,
	})
	if err != nil {
		return err
	}

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println(report.Render())
	return nil
}

// queryAudit summarizes the sqlite archive
func queryAudit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	dbPath := filepath.Join(cfg.Audit.Dir, "archive.db")
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("no audit archive at %s; run the pipeline first", dbPath)
	}
	store, err := audit.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch {
	case auditRunID != "":
		rows, err := store.RowsForRun(auditRunID)
		if err != nil {
			return err
		}
		printRows(rows)

	case auditSealed:
		rows, err := store.SealedRows(50)
		if err != nil {
			return err
		}
		printRows(rows)

	case auditRecent > 0:
		rows, err := store.RecentRows(auditRecent)
		if err != nil {
			return err
		}
		printRows(rows)

	case auditByLayer:
		counts, err := store.CountsByLayer()
		if err != nil {
			return err
		}
		for _, c := range counts {
			fmt.Printf("%-12s %-15s %d\n", c.Layer, c.Decision, c.Count)
		}

	default:
		counts, err := store.CountsByDecision()
		if err != nil {
			return err
		}
		for _, d := range []decision.Decision{decision.Run, decision.PauseForHITL, decision.Stopped} {
			fmt.Printf("%-15s %d\n", d, counts[d])
		}
	}
	return nil
}

// showGates prints the fixed pipeline order
func showGates(cmd *cobra.Command, args []string) error {
	fmt.Println("Gate order (fixed):")
	for i, layer := range gate.Order() {
		authority := "may pause"
		if layer.CanSeal() {
			authority = "may seal a stop"
		}
		fmt.Printf("  %d. %-12s %s\n", i+1, layer, authority)
	}
	fmt.Println("\nSealed stops are final; no resolver is consulted.")
	return nil
}

// watchDir runs the pipeline on task files dropped into a directory
func watchDir(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log, store, err := openAudit(cfg)
	if err != nil {
		return err
	}
	defer log.Close()
	if store != nil {
		defer store.Close()
	}

	resolver, err := buildResolver(cfg)
	if err != nil {
		return err
	}

	orch, err := orchestrator.New(orchestrator.Params{
		Gates:     gate.Pipeline(gateOptions(cfg)),
		Resolver:  resolver,
		Log:       log,
		Store:     store,
		Generator: docgen.New(cfg.Output.DocsDir),
	})
	if err != nil {
		return err
	}

	watcher, err := orchestrator.NewTaskWatcher(args[0], orch)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}

	fmt.Printf("Watching %s for task files (ctrl-c to stop)\n", args[0])
	<-ctx.Done()
	watcher.Stop()

	stats := watcher.Stats()
	fmt.Printf("\nFiles seen: %d, runs: %d, errors: %d\n",
		stats.FilesSeen, stats.RunsTriggered, stats.Errors)
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// openAudit opens the trail and, if configured, the sqlite archive
func openAudit(cfg *config.Config) (*audit.Log, *audit.Store, error) {
	log, err := audit.Open(filepath.Join(cfg.Audit.Dir, "arl.jsonl"))
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Audit.ArchiveSQLite {
		return log, nil, nil
	}
	store, err := audit.NewStore(filepath.Join(cfg.Audit.Dir, "archive.db"))
	if err != nil {
		log.Close()
		return nil, nil, err
	}
	return log, store, nil
}

// gateOptions maps config onto gate tuning
func gateOptions(cfg *config.Config) gate.Options {
	return gate.Options{
		MinPromptWords: cfg.Gates.MinPromptWords,
		ExtraPhrases:   cfg.Gates.ExtraPhrases,
		ExtraBanned:    cfg.Gates.ExtraBanned,
		ExtraFlagged:   cfg.Gates.ExtraFlagged,
	}
}

// buildResolver constructs the HITL resolver selected by config
func buildResolver(cfg *config.Config) (hitl.Resolver, error) {
	switch cfg.HITL.Mode {
	case "interactive":
		return hitl.NewInteractive(os.Stdin, os.Stdout), nil

	case "random":
		return hitl.NewRandom(cfg.HITL.Seed, cfg.HITL.ContinuePct), nil

	case "scripted":
		answers := make([]decision.Resolution, 0, len(cfg.HITL.Script))
		for _, s := range cfg.HITL.Script {
			r, err := parseResolution(s)
			if err != nil {
				return nil, err
			}
			answers = append(answers, r)
		}
		return hitl.NewScripted(answers, decision.Stop), nil

	case "auto":
		policy := make(map[string]decision.Resolution, len(cfg.HITL.AutoPolicy))
		for reason, s := range cfg.HITL.AutoPolicy {
			r, err := parseResolution(s)
			if err != nil {
				return nil, err
			}
			policy[reason] = r
		}
		return hitl.NewAuto(policy), nil

	default:
		return nil, fmt.Errorf("unknown hitl mode %q", cfg.HITL.Mode)
	}
}

// parseResolution reads CONTINUE or STOP, case-insensitively
func parseResolution(s string) (decision.Resolution, error) {
	r := decision.Resolution(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid resolution %q, want CONTINUE or STOP", s)
	}
	return r, nil
}

// printTrace streams gate events until the bus closes
func printTrace(events <-chan orchestrator.GateEvent, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		sealed := ""
		if ev.Sealed {
			sealed = " [SEALED]"
		}
		fmt.Printf("  %-12s %-15s %s%s (task %s)\n",
			ev.Layer, ev.Decision, ev.ReasonCode, sealed, ev.TaskID)
	}
}

// printSummary prints the outcome of one run
func printSummary(s *orchestrator.RunSummary) {
	fmt.Printf("\nRun %s\n", s.RunID)
	for _, r := range s.Results {
		switch {
		case r.Decision == decision.Run:
			fmt.Printf("  DISPATCHED  %-20s -> %s\n", r.TaskID, r.ArtifactPath)
		case r.Sealed:
			fmt.Printf("  SEALED STOP %-20s at %s (%s)\n", r.TaskID, r.Layer, r.ReasonCode)
		default:
			fmt.Printf("  STOPPED     %-20s at %s (%s, by %s)\n", r.TaskID, r.Layer, r.ReasonCode, r.FinalDecider)
		}
	}
	fmt.Printf("\nDispatched %d, stopped %d (%d sealed), HITL pauses %d (%d continued, %d stopped)\n",
		s.Dispatched, s.Stopped, s.SealedStops, s.HITLPauses, s.HITLContinues, s.HITLStops)
}

// printRows renders archive rows one per line
func printRows(rows []audit.Row) {
	if len(rows) == 0 {
		fmt.Println("no rows")
		return
	}
	for _, r := range rows {
		sealed := ""
		if r.Sealed {
			sealed = " SEALED"
		}
		run := r.RunID
		if len(run) > 8 {
			run = run[:8]
		}
		fmt.Printf("%s #%d  %-12s %-15s %-28s%s  task=%s decider=%s\n",
			run, r.Seq, r.Layer, r.Decision, r.ReasonCode, sealed, r.TaskID, r.FinalDecider)
	}
}
