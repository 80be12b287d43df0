// Package bench drives the orchestrator through repeated randomized runs
// with fault injection, then reconciles the aggregate counts. Iterations are
// seeded individually, so a report is reproducible for a given seed no
// matter how the workers interleave.
package bench

import (
	"math/rand"

	"warden/internal/config"
	"warden/internal/gate"
)

// Fault names a mutation the injector can apply to a task.
type Fault string

const (
	FaultNone          Fault = "none"
	FaultEmail         Fault = "inject_email"
	FaultRelative      Fault = "inject_relative_language"
	FaultConflict      Fault = "inject_directive_conflict"
	FaultBanned        Fault = "inject_banned_term"
	FaultDropRequester Fault = "drop_requester"
)

// AllFaults lists every fault kind, FaultNone included, in report order.
var AllFaults = []Fault{
	FaultNone,
	FaultEmail,
	FaultRelative,
	FaultConflict,
	FaultBanned,
	FaultDropRequester,
}

// Injector draws faults from configured rates and applies them to tasks.
type Injector struct {
	rng   *rand.Rand
	rates config.FaultRates
}

// NewInjector creates a seeded injector.
func NewInjector(seed int64, rates config.FaultRates) *Injector {
	return &Injector{
		rng:   rand.New(rand.NewSource(seed)),
		rates: rates,
	}
}

// Draw picks a fault according to the configured rates. The probability mass
// left over after all rates resolves to FaultNone.
func (in *Injector) Draw() Fault {
	r := in.rng.Float64()

	for _, f := range []struct {
		fault Fault
		rate  float64
	}{
		{FaultEmail, in.rates.Email},
		{FaultRelative, in.rates.RelativeLanguage},
		{FaultConflict, in.rates.DirectiveConflict},
		{FaultBanned, in.rates.BannedTerm},
		{FaultDropRequester, in.rates.DropRequester},
	} {
		if r < f.rate {
			return f.fault
		}
		r -= f.rate
	}
	return FaultNone
}

// Apply mutates a copy of req according to the fault and tags it. The
// original task is never touched.
func Apply(fault Fault, req gate.Request) gate.Request {
	switch fault {
	case FaultEmail:
		req.Prompt += " and escalate findings to ombuds@example.com"
	case FaultRelative:
		req.Prompt += " since obviously the conclusion is already settled"
	case FaultConflict:
		req.Include = append(append([]string{}, req.Include...), "appendix")
		req.Exclude = append(append([]string{}, req.Exclude...), "appendix")
	case FaultBanned:
		req.Prompt += " and fabricate evidence of compliance where gaps remain"
	case FaultDropRequester:
		req.Requester = ""
	}
	if fault != FaultNone {
		req.InjectedFault = string(fault)
	}
	return req
}
