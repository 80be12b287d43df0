// Package decision implements the three-valued decision lattice shared by
// every policy gate. It is the single authoritative implementation of the
// sealing rules: verdicts are built through constructors that refuse to
// produce an invalid combination, so callers cannot hand-roll a sealed
// verdict from a layer that has no sealing authority.
package decision

import (
	"fmt"
)

// =============================================================================
// DECISIONS
// =============================================================================

// Decision is the outcome of a single gate evaluation.
type Decision string

const (
	Run          Decision = "RUN"            // Proceed to the next gate
	PauseForHITL Decision = "PAUSE_FOR_HITL" // Hand to a human resolver
	Stopped      Decision = "STOPPED"        // Task ends here
)

// Valid reports whether d is a known decision value.
func (d Decision) Valid() bool {
	switch d {
	case Run, PauseForHITL, Stopped:
		return true
	}
	return false
}

// =============================================================================
// LAYERS
// =============================================================================

// Layer identifies a stage of the pipeline in the audit trail.
type Layer string

const (
	LayerMeaning     Layer = "meaning"
	LayerConsistency Layer = "consistency"
	LayerRFL         Layer = "rfl" // Relativity filter
	LayerEthics      Layer = "ethics"
	LayerACC         Layer = "acc" // Access control & compliance
	LayerDispatch    Layer = "dispatch"
)

// Valid reports whether l is a known layer.
func (l Layer) Valid() bool {
	switch l {
	case LayerMeaning, LayerConsistency, LayerRFL, LayerEthics, LayerACC, LayerDispatch:
		return true
	}
	return false
}

// CanSeal reports whether the layer is allowed to issue a sealed stop.
// Only ethics and acc carry sealing authority; rfl in particular never seals.
func (l Layer) CanSeal() bool {
	return l == LayerEthics || l == LayerACC
}

// Layers returns every layer in pipeline order, dispatch last.
func Layers() []Layer {
	return []Layer{LayerMeaning, LayerConsistency, LayerRFL, LayerEthics, LayerACC, LayerDispatch}
}

// =============================================================================
// FINAL DECIDER
// =============================================================================

// Decider records who made the final call on a verdict.
type Decider string

const (
	DeciderPolicy Decider = "policy" // Gate rule decided
	DeciderHuman  Decider = "human"  // HITL resolution decided
)

// =============================================================================
// RESOLUTIONS
// =============================================================================

// Resolution is a human answer to a PAUSE_FOR_HITL verdict.
type Resolution string

const (
	Continue Resolution = "CONTINUE"
	Stop     Resolution = "STOP"
)

// Valid reports whether r is a known resolution.
func (r Resolution) Valid() bool {
	return r == Continue || r == Stop
}

// =============================================================================
// VERDICTS
// =============================================================================

// Verdict is the full outcome of one gate evaluation.
type Verdict struct {
	Layer        Layer    `json:"layer"`
	Decision     Decision `json:"decision"`
	ReasonCode   string   `json:"reason_code"`
	Sealed       bool     `json:"sealed"`
	Overrideable bool     `json:"overrideable"`
	FinalDecider Decider  `json:"final_decider"`
}

// NewVerdict builds an unsealed verdict for the given layer.
// Overrideability follows the decision: pauses are overrideable, everything
// else is not.
func NewVerdict(layer Layer, d Decision, reasonCode string) (Verdict, error) {
	if !layer.Valid() {
		return Verdict{}, fmt.Errorf("unknown layer %q", layer)
	}
	if !d.Valid() {
		return Verdict{}, fmt.Errorf("unknown decision %q", d)
	}
	if reasonCode == "" {
		return Verdict{}, fmt.Errorf("reason code required for %s verdict on layer %s", d, layer)
	}

	return Verdict{
		Layer:        layer,
		Decision:     d,
		ReasonCode:   reasonCode,
		Sealed:       false,
		Overrideable: d == PauseForHITL,
		FinalDecider: DeciderPolicy,
	}, nil
}

// NewSealedStop builds a sealed, non-overridable STOPPED verdict.
// It fails for any layer without sealing authority.
func NewSealedStop(layer Layer, reasonCode string) (Verdict, error) {
	if !layer.Valid() {
		return Verdict{}, fmt.Errorf("unknown layer %q", layer)
	}
	if !layer.CanSeal() {
		return Verdict{}, fmt.Errorf("layer %s has no sealing authority", layer)
	}
	if reasonCode == "" {
		return Verdict{}, fmt.Errorf("reason code required for sealed stop on layer %s", layer)
	}

	return Verdict{
		Layer:        layer,
		Decision:     Stopped,
		ReasonCode:   reasonCode,
		Sealed:       true,
		Overrideable: false,
		FinalDecider: DeciderPolicy,
	}, nil
}

// ApplyResolution converts a paused verdict into its human-resolved form.
// CONTINUE yields RUN, STOP yields an unsealed STOPPED; either way the final
// decider becomes human. Applying a resolution to anything other than an
// overrideable pause is an error.
func ApplyResolution(v Verdict, r Resolution) (Verdict, error) {
	if v.Sealed {
		return Verdict{}, fmt.Errorf("verdict on layer %s is sealed and cannot be resolved", v.Layer)
	}
	if v.Decision != PauseForHITL || !v.Overrideable {
		return Verdict{}, fmt.Errorf("verdict on layer %s (%s) is not awaiting resolution", v.Layer, v.Decision)
	}
	if !r.Valid() {
		return Verdict{}, fmt.Errorf("unknown resolution %q", r)
	}

	resolved := v
	resolved.FinalDecider = DeciderHuman
	resolved.Overrideable = false
	if r == Continue {
		resolved.Decision = Run
	} else {
		resolved.Decision = Stopped
	}
	return resolved, nil
}

// Terminal reports whether the verdict ends the task at this gate.
func (v Verdict) Terminal() bool {
	return v.Decision == Stopped
}
