package gate

import (
	"context"

	"warden/internal/decision"
	"warden/internal/redact"
)

// defaultBannedTerms trigger a sealed stop. These are the hard lines.
var defaultBannedTerms = []string{
	"deceive the auditor",
	"falsify",
	"fabricate evidence",
	"blackmail",
	"launder",
}

// defaultFlaggedTerms trigger a human review pause rather than a stop.
var defaultFlaggedTerms = []string{
	"layoff",
	"surveillance",
	"disciplinary action",
}

// Ethics is one of the two gates with sealing authority. PII (an email-like
// substring) or a banned term seals the stop; softer flags pause for review.
type Ethics struct {
	banned  []string
	flagged []string
}

// NewEthics creates the Ethics gate with stock term lists plus extras.
func NewEthics(extraBanned, extraFlagged []string) *Ethics {
	g := &Ethics{
		banned:  append([]string{}, defaultBannedTerms...),
		flagged: append([]string{}, defaultFlaggedTerms...),
	}
	for _, t := range extraBanned {
		if t != "" {
			g.banned = append(g.banned, t)
		}
	}
	for _, t := range extraFlagged {
		if t != "" {
			g.flagged = append(g.flagged, t)
		}
	}
	return g
}

// Name implements Gate.
func (g *Ethics) Name() decision.Layer { return decision.LayerEthics }

// Evaluate implements Gate.
func (g *Ethics) Evaluate(_ context.Context, req *Request) (decision.Verdict, error) {
	if redact.HasEmail(req.Prompt) || redact.HasEmail(req.Title) {
		return decision.NewSealedStop(decision.LayerEthics, ReasonEthicsPIISealed)
	}
	for _, term := range g.banned {
		if containsFold(req.Prompt, term) || containsFold(req.Title, term) {
			return decision.NewSealedStop(decision.LayerEthics, ReasonEthicsHarmSealed)
		}
	}
	for _, term := range g.flagged {
		if containsFold(req.Prompt, term) || containsFold(req.Title, term) {
			return decision.NewVerdict(decision.LayerEthics, decision.PauseForHITL, ReasonEthicsReview)
		}
	}
	return decision.NewVerdict(decision.LayerEthics, decision.Run, ReasonOK)
}
