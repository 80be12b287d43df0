package bench

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"warden/internal/decision"
	"warden/internal/orchestrator"
)

var (
	reportTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	reportSectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	reportSealedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// FaultOutcome counts how tasks carrying one fault kind fared.
type FaultOutcome struct {
	Injected   int
	Dispatched int
	Stopped    int
}

// Report aggregates a whole stress run.
type Report struct {
	Iterations    int
	Tasks         int
	Dispatched    int
	Stopped       int
	SealedStops   int
	HITLPauses    int
	HITLContinues int
	HITLStops     int
	ByFault       map[Fault]*FaultOutcome
	StopsByLayer  map[decision.Layer]int
	Elapsed       time.Duration
}

// NewReport returns an empty report for the given iteration count.
func NewReport(iterations int) *Report {
	byFault := make(map[Fault]*FaultOutcome, len(AllFaults))
	for _, f := range AllFaults {
		byFault[f] = &FaultOutcome{}
	}
	return &Report{
		Iterations:   iterations,
		ByFault:      byFault,
		StopsByLayer: make(map[decision.Layer]int),
	}
}

// absorb folds one iteration's summary into the report. faults is parallel to
// summary.Results; the orchestrator preserves task order.
func (r *Report) absorb(summary *orchestrator.RunSummary, faults []Fault) {
	r.Tasks += len(summary.Results)
	r.Dispatched += summary.Dispatched
	r.Stopped += summary.Stopped
	r.SealedStops += summary.SealedStops
	r.HITLPauses += summary.HITLPauses
	r.HITLContinues += summary.HITLContinues
	r.HITLStops += summary.HITLStops

	for i, result := range summary.Results {
		outcome := r.ByFault[faults[i]]
		outcome.Injected++
		switch result.Decision {
		case decision.Run:
			outcome.Dispatched++
		case decision.Stopped:
			outcome.Stopped++
			r.StopsByLayer[result.Layer]++
		}
	}
}

// Reconcile verifies the aggregate counts are internally consistent. A report
// that fails reconciliation means the pipeline lost or double-counted a task.
func (r *Report) Reconcile() error {
	if r.Tasks != r.Dispatched+r.Stopped {
		return fmt.Errorf("report does not reconcile: %d tasks but %d dispatched + %d stopped",
			r.Tasks, r.Dispatched, r.Stopped)
	}
	if r.HITLPauses != r.HITLContinues+r.HITLStops {
		return fmt.Errorf("report does not reconcile: %d pauses but %d continues + %d stops",
			r.HITLPauses, r.HITLContinues, r.HITLStops)
	}
	var layerStops int
	for _, n := range r.StopsByLayer {
		layerStops += n
	}
	if layerStops != r.Stopped {
		return fmt.Errorf("report does not reconcile: %d per-layer stops for %d stopped", layerStops, r.Stopped)
	}
	var injected int
	for _, outcome := range r.ByFault {
		if outcome.Injected != outcome.Dispatched+outcome.Stopped {
			return fmt.Errorf("report does not reconcile per fault: %+v", outcome)
		}
		injected += outcome.Injected
	}
	if injected != r.Tasks {
		return fmt.Errorf("report does not reconcile: %d fault draws for %d tasks", injected, r.Tasks)
	}
	return nil
}

// Throughput returns tasks processed per second.
func (r *Report) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Tasks) / r.Elapsed.Seconds()
}

// Render formats the report for the terminal.
func (r *Report) Render() string {
	var b strings.Builder

	b.WriteString(reportTitleStyle.Render("Stress run report"))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "  Iterations     %d\n", r.Iterations)
	fmt.Fprintf(&b, "  Tasks          %d\n", r.Tasks)
	fmt.Fprintf(&b, "  Elapsed        %s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "  Throughput     %.1f tasks/s\n", r.Throughput())
	b.WriteString("\n")

	b.WriteString(reportSectionStyle.Render("  Outcomes"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "    dispatched   %d\n", r.Dispatched)
	fmt.Fprintf(&b, "    stopped      %d\n", r.Stopped)
	fmt.Fprintf(&b, "    %s %d\n", reportSealedStyle.Render("sealed stops"), r.SealedStops)
	for _, layer := range decision.Layers() {
		if n := r.StopsByLayer[layer]; n > 0 {
			fmt.Fprintf(&b, "      at %-10s %d\n", layer, n)
		}
	}
	b.WriteString("\n")

	b.WriteString(reportSectionStyle.Render("  HITL"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "    pauses       %d\n", r.HITLPauses)
	fmt.Fprintf(&b, "    continues    %d\n", r.HITLContinues)
	fmt.Fprintf(&b, "    stops        %d\n", r.HITLStops)
	b.WriteString("\n")

	b.WriteString(reportSectionStyle.Render("  By fault"))
	b.WriteString("\n")
	for _, f := range AllFaults {
		outcome := r.ByFault[f]
		if outcome.Injected == 0 {
			continue
		}
		fmt.Fprintf(&b, "    %-26s injected %4d  dispatched %4d  stopped %4d\n",
			f, outcome.Injected, outcome.Dispatched, outcome.Stopped)
	}

	return b.String()
}
