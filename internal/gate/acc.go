package gate

import (
	"context"

	"warden/internal/decision"
)

// ACC is the access control and compliance gate, the second of the two with
// sealing authority. A requester asking for an artifact above their clearance
// is sealed out; an anonymous request or an unknown clearance or sensitivity
// label merely pauses, a human can vouch for those.
type ACC struct{}

// NewACC creates the ACC gate.
func NewACC() *ACC { return &ACC{} }

// Name implements Gate.
func (g *ACC) Name() decision.Layer { return decision.LayerACC }

// Evaluate implements Gate.
func (g *ACC) Evaluate(_ context.Context, req *Request) (decision.Verdict, error) {
	if req.Requester == "" {
		return decision.NewVerdict(decision.LayerACC, decision.PauseForHITL, ReasonACCNoRequester)
	}

	clearance := req.Clearance
	if clearance == "" {
		clearance = SensitivityPublic
	}
	if clearance.Rank() == 0 {
		return decision.NewVerdict(decision.LayerACC, decision.PauseForHITL, ReasonACCUnknownClearance)
	}

	sensitivity := req.Artifact.Sensitivity
	if sensitivity == "" {
		sensitivity = SensitivityInternal
	}
	// An unrecognized label ranks 0, which would slip under every clearance.
	if sensitivity.Rank() == 0 {
		return decision.NewVerdict(decision.LayerACC, decision.PauseForHITL, ReasonACCUnknownSensitivity)
	}
	if sensitivity.Rank() > clearance.Rank() {
		return decision.NewSealedStop(decision.LayerACC, ReasonACCClearanceSealed)
	}

	return decision.NewVerdict(decision.LayerACC, decision.Run, ReasonOK)
}
