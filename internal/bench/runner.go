package bench

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"warden/internal/audit"
	"warden/internal/config"
	"warden/internal/docgen"
	"warden/internal/gate"
	"warden/internal/hitl"
	"warden/internal/logging"
	"warden/internal/orchestrator"
)

// Options configures a stress run.
type Options struct {
	Config      config.BenchConfig
	GateOptions gate.Options
	ContinuePct float64 // Chance the random resolver answers CONTINUE
	Log         *audit.Log
	Store       *audit.Store // Optional archive mirror
	DocsDir     string
	Tasks       []gate.Request // Base tasks, copied and mutated per iteration
}

// Runner executes iterations of the pipeline concurrently.
type Runner struct {
	opts Options
	gen  *docgen.Generator
}

// NewRunner validates options and builds a runner.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Log == nil {
		return nil, fmt.Errorf("bench requires an audit log")
	}
	if opts.DocsDir == "" {
		return nil, fmt.Errorf("bench requires a docs directory")
	}
	if len(opts.Tasks) == 0 {
		return nil, fmt.Errorf("bench requires at least one base task")
	}
	if opts.Config.Iterations <= 0 {
		return nil, fmt.Errorf("bench iterations must be positive")
	}
	if opts.Config.Workers <= 0 {
		opts.Config.Workers = 1
	}
	if opts.Config.Faults.Sum() > 1 {
		return nil, fmt.Errorf("fault rates sum to %.2f, must not exceed 1", opts.Config.Faults.Sum())
	}
	return &Runner{opts: opts, gen: docgen.New(opts.DocsDir)}, nil
}

// Run executes the configured iterations and aggregates a report. Every
// iteration runs under its own run ID with its own seeded injector and
// resolver, so the outcome for a given seed does not depend on worker
// scheduling.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	cfg := r.opts.Config
	log := logging.Get(logging.CategoryBench)
	log.Infow("stress run starting",
		"iterations", cfg.Iterations, "workers", cfg.Workers,
		"tasks", len(r.opts.Tasks), "seed", cfg.Seed)

	report := NewReport(cfg.Iterations)
	var mu sync.Mutex
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for iter := 0; iter < cfg.Iterations; iter++ {
		iter := iter
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			summary, faults, err := r.iteration(ctx, iter)
			if err != nil {
				return fmt.Errorf("iteration %d: %w", iter, err)
			}

			mu.Lock()
			report.absorb(summary, faults)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Elapsed = time.Since(start)
	if err := report.Reconcile(); err != nil {
		return nil, err
	}

	log.Infow("stress run finished",
		"tasks", report.Tasks, "dispatched", report.Dispatched,
		"stopped", report.Stopped, "sealed", report.SealedStops,
		"elapsed", report.Elapsed)
	return report, nil
}

// iteration runs the base task set once through a fresh orchestrator, with
// faults drawn from the iteration's own seed.
func (r *Runner) iteration(ctx context.Context, iter int) (*orchestrator.RunSummary, []Fault, error) {
	seed := r.opts.Config.Seed + int64(iter)
	injector := NewInjector(seed, r.opts.Config.Faults)
	resolver := hitl.NewRandom(seed, r.opts.ContinuePct)

	tasks := make([]gate.Request, len(r.opts.Tasks))
	faults := make([]Fault, len(r.opts.Tasks))
	for i, base := range r.opts.Tasks {
		f := injector.Draw()
		task := Apply(f, base)
		task.ID = fmt.Sprintf("i%04d-%s", iter, base.ID)
		task.Artifact.Filename = "" // Derive per-iteration filenames from the ID
		tasks[i] = task
		faults[i] = f
	}

	orch, err := orchestrator.New(orchestrator.Params{
		Gates:     gate.Pipeline(r.opts.GateOptions),
		Resolver:  resolver,
		Log:       r.opts.Log,
		Store:     r.opts.Store,
		Generator: r.gen,
	})
	if err != nil {
		return nil, nil, err
	}

	runID := "bench-" + uuid.NewString()
	summary, err := orch.RunWithID(ctx, runID, tasks)
	if err != nil {
		return nil, nil, err
	}
	return summary, faults, nil
}
