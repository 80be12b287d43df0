package gate

import (
	"context"

	"warden/internal/decision"
)

// defaultRelativePhrases are the stock relativity markers. Matches are
// case-insensitive substring hits; multi-word phrases keep false positives
// down for common words like "best".
var defaultRelativePhrases = []string{
	"obviously",
	"everyone knows",
	"it goes without saying",
	"clearly superior",
	"the best",
	"the worst",
	"any reasonable person",
	"common sense",
	"self-evident",
}

// RFL is the relativity filter: it pauses requests whose prompts lean on
// subjective or relative language that a generator cannot ground. RFL has no
// sealing authority and can only answer RUN or PAUSE_FOR_HITL.
type RFL struct {
	phrases []string
}

// NewRFL creates the RFL gate with the stock phrase list plus extras.
func NewRFL(extra []string) *RFL {
	phrases := make([]string, 0, len(defaultRelativePhrases)+len(extra))
	phrases = append(phrases, defaultRelativePhrases...)
	for _, p := range extra {
		if p != "" {
			phrases = append(phrases, p)
		}
	}
	return &RFL{phrases: phrases}
}

// Name implements Gate.
func (g *RFL) Name() decision.Layer { return decision.LayerRFL }

// Evaluate implements Gate.
func (g *RFL) Evaluate(_ context.Context, req *Request) (decision.Verdict, error) {
	for _, phrase := range g.phrases {
		if containsFold(req.Prompt, phrase) || containsFold(req.Title, phrase) {
			return decision.NewVerdict(decision.LayerRFL, decision.PauseForHITL, ReasonRFLRelativeLanguage)
		}
	}
	return decision.NewVerdict(decision.LayerRFL, decision.Run, ReasonOK)
}
