package gate

import (
	"context"
	"strings"

	"warden/internal/decision"
)

// DefaultMinPromptWords is the Meaning gate's floor for a usable prompt.
const DefaultMinPromptWords = 3

// Meaning checks that a request is intelligible enough to act on: the prompt
// says something and the artifact kind is one the generator knows.
type Meaning struct {
	minWords int
}

// NewMeaning creates the Meaning gate. minWords <= 0 uses the default.
func NewMeaning(minWords int) *Meaning {
	if minWords <= 0 {
		minWords = DefaultMinPromptWords
	}
	return &Meaning{minWords: minWords}
}

// Name implements Gate.
func (g *Meaning) Name() decision.Layer { return decision.LayerMeaning }

// Evaluate implements Gate.
func (g *Meaning) Evaluate(_ context.Context, req *Request) (decision.Verdict, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return decision.NewVerdict(decision.LayerMeaning, decision.Stopped, ReasonMeaningEmptyPrompt)
	}
	if len(strings.Fields(prompt)) < g.minWords {
		return decision.NewVerdict(decision.LayerMeaning, decision.PauseForHITL, ReasonMeaningTooThin)
	}
	if !req.Artifact.Kind.Valid() {
		return decision.NewVerdict(decision.LayerMeaning, decision.PauseForHITL, ReasonMeaningUnknownArtifact)
	}
	return decision.NewVerdict(decision.LayerMeaning, decision.Run, ReasonOK)
}
