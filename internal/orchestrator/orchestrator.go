// Package orchestrator drives requests through the fixed gate sequence,
// consults the HITL resolver on overrideable pauses, appends every decision
// to the audit trail, and dispatches surviving requests to the document
// generator. Sealed stops are final here: the resolver is never consulted
// for them.
package orchestrator

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"warden/internal/audit"
	"warden/internal/decision"
	"warden/internal/docgen"
	"warden/internal/gate"
	"warden/internal/hitl"
	"warden/internal/logging"
	"warden/internal/redact"
)

// excerptLen bounds the prompt excerpt carried in audit notes and pauses.
const excerptLen = 120

// ReasonDispatched marks the dispatch row of a task that cleared every gate.
const ReasonDispatched = "DISPATCHED"

// Params collects the orchestrator's dependencies.
type Params struct {
	Gates     []gate.Gate
	Resolver  hitl.Resolver
	Log       *audit.Log
	Store     *audit.Store // Optional archive mirror
	Generator *docgen.Generator
	Bus       *EventBus // Optional
}

// Orchestrator runs tasks through the pipeline.
type Orchestrator struct {
	gates    []gate.Gate
	resolver hitl.Resolver
	log      *audit.Log
	store    *audit.Store
	gen      *docgen.Generator
	bus      *EventBus
}

// New validates dependencies and builds an orchestrator. Gates defaults to
// the fixed pipeline; resolver, audit log, and generator are required.
func New(p Params) (*Orchestrator, error) {
	if p.Resolver == nil {
		return nil, fmt.Errorf("orchestrator requires a HITL resolver")
	}
	if p.Log == nil {
		return nil, fmt.Errorf("orchestrator requires an audit log")
	}
	if p.Generator == nil {
		return nil, fmt.Errorf("orchestrator requires a document generator")
	}
	gates := p.Gates
	if gates == nil {
		gates = gate.Pipeline(gate.Options{})
	}
	return &Orchestrator{
		gates:    gates,
		resolver: p.Resolver,
		log:      p.Log,
		store:    p.Store,
		gen:      p.Generator,
		bus:      p.Bus,
	}, nil
}

// TaskResult is the final outcome of one task.
type TaskResult struct {
	TaskID       string
	Decision     decision.Decision // RUN means dispatched
	Layer        decision.Layer    // Deciding layer
	ReasonCode   string
	Sealed       bool
	FinalDecider decision.Decider
	ArtifactPath string
	Rows         int // Audit rows emitted for this task
}

// RunSummary aggregates a whole run.
type RunSummary struct {
	RunID         string
	Results       []TaskResult
	Dispatched    int
	Stopped       int
	SealedStops   int
	HITLPauses    int
	HITLContinues int
	HITLStops     int
}

// Run processes every task under a fresh run ID.
func (o *Orchestrator) Run(ctx context.Context, tasks []gate.Request) (*RunSummary, error) {
	return o.RunWithID(ctx, uuid.NewString(), tasks)
}

// RunWithID processes every task under the given run ID. Task failures abort
// the run; a broken audit trail is not worth continuing over.
func (o *Orchestrator) RunWithID(ctx context.Context, runID string, tasks []gate.Request) (*RunSummary, error) {
	summary := &RunSummary{RunID: runID}
	log := logging.Get(logging.CategoryPipeline)

	for i := range tasks {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result, err := o.runTask(ctx, runID, &tasks[i], summary)
		if err != nil {
			return summary, fmt.Errorf("task %s: %w", tasks[i].ID, err)
		}
		summary.Results = append(summary.Results, result)

		switch result.Decision {
		case decision.Run:
			summary.Dispatched++
		case decision.Stopped:
			summary.Stopped++
			if result.Sealed {
				summary.SealedStops++
			}
		}

		log.Infow("task finished",
			"run", runID, "task", result.TaskID, "decision", result.Decision,
			"layer", result.Layer, "reason", result.ReasonCode, "sealed", result.Sealed)
	}

	return summary, nil
}

// runTask walks one request through the gate sequence.
func (o *Orchestrator) runTask(ctx context.Context, runID string, req *gate.Request, summary *RunSummary) (TaskResult, error) {
	result := TaskResult{TaskID: req.ID}

	for _, g := range o.gates {
		verdict, err := g.Evaluate(ctx, req)
		if err != nil {
			return result, fmt.Errorf("gate %s: %w", g.Name(), err)
		}

		if err := o.record(runID, req, verdict, &result); err != nil {
			return result, err
		}

		switch verdict.Decision {
		case decision.Run:
			continue

		case decision.Stopped:
			result.Decision = decision.Stopped
			result.Layer = verdict.Layer
			result.ReasonCode = verdict.ReasonCode
			result.Sealed = verdict.Sealed
			result.FinalDecider = verdict.FinalDecider
			return result, nil

		case decision.PauseForHITL:
			summary.HITLPauses++
			resolved, err := o.resolvePause(ctx, runID, req, verdict)
			if err != nil {
				return result, err
			}
			if err := o.record(runID, req, resolved, &result); err != nil {
				return result, err
			}
			if resolved.Decision == decision.Stopped {
				summary.HITLStops++
				result.Decision = decision.Stopped
				result.Layer = resolved.Layer
				result.ReasonCode = resolved.ReasonCode
				result.Sealed = false
				result.FinalDecider = resolved.FinalDecider
				return result, nil
			}
			summary.HITLContinues++
		}
	}

	return o.dispatch(runID, req, result)
}

// resolvePause hands an overrideable pause to the resolver. Sealed verdicts
// never arrive here; record() has already returned them as stops.
func (o *Orchestrator) resolvePause(ctx context.Context, runID string, req *gate.Request, verdict decision.Verdict) (decision.Verdict, error) {
	pause := hitl.Pause{
		RunID:      runID,
		TaskID:     req.ID,
		Layer:      verdict.Layer,
		ReasonCode: verdict.ReasonCode,
		Excerpt:    excerpt(req.Prompt),
	}

	resolution, err := o.resolver.Resolve(ctx, pause)
	if err != nil {
		return decision.Verdict{}, fmt.Errorf("resolver on layer %s: %w", verdict.Layer, err)
	}

	logging.Get(logging.CategoryHITL).Infow("pause resolved",
		"run", runID, "task", req.ID, "layer", verdict.Layer,
		"reason", verdict.ReasonCode, "resolution", resolution)

	resolved, err := decision.ApplyResolution(verdict, resolution)
	if err != nil {
		return decision.Verdict{}, fmt.Errorf("applying resolution on layer %s: %w", verdict.Layer, err)
	}
	return resolved, nil
}

// dispatch generates the artifact and appends the dispatch row.
func (o *Orchestrator) dispatch(runID string, req *gate.Request, result TaskResult) (TaskResult, error) {
	path, err := o.gen.Generate(req)
	if err != nil {
		return result, fmt.Errorf("docgen: %w", err)
	}

	verdict, err := decision.NewVerdict(decision.LayerDispatch, decision.Run, ReasonDispatched)
	if err != nil {
		return result, err
	}
	if err := o.record(runID, req, verdict, &result); err != nil {
		return result, err
	}

	result.Decision = decision.Run
	result.Layer = decision.LayerDispatch
	result.ReasonCode = ReasonDispatched
	result.FinalDecider = decision.DeciderPolicy
	result.ArtifactPath = path
	return result, nil
}

// record appends one row to the trail, mirrors it into the archive, and
// emits the matching event.
func (o *Orchestrator) record(runID string, req *gate.Request, v decision.Verdict, result *TaskResult) error {
	note := ""
	if v.ReasonCode != gate.ReasonOK && v.ReasonCode != ReasonDispatched {
		note = excerpt(req.Prompt)
	}

	row, err := o.log.AppendVerdict(runID, req.ID, v, note)
	if err != nil {
		return fmt.Errorf("audit append: %w", err)
	}
	result.Rows++

	if o.store != nil {
		if err := o.store.InsertRow(row); err != nil {
			return fmt.Errorf("audit archive: %w", err)
		}
	}

	if o.bus != nil {
		o.bus.Emit(GateEvent{
			RunID:        runID,
			TaskID:       req.ID,
			Layer:        v.Layer,
			Decision:     v.Decision,
			ReasonCode:   v.ReasonCode,
			Sealed:       v.Sealed,
			FinalDecider: v.FinalDecider,
		})
	}
	return nil
}

// excerpt returns a redacted, bounded slice of a prompt for notes and pauses.
// The cut backs up to a rune boundary so a multi-byte character is never split.
func excerpt(s string) string {
	s = redact.Emails(s)
	if len(s) <= excerptLen {
		return s
	}
	cut := excerptLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
