package gate

import (
	"context"
	"path/filepath"
	"strings"

	"warden/internal/decision"
)

// Consistency detects requests that contradict themselves: a directive both
// included and excluded, or an artifact filename whose extension disagrees
// with the declared kind.
type Consistency struct{}

// NewConsistency creates the Consistency gate.
func NewConsistency() *Consistency { return &Consistency{} }

// Name implements Gate.
func (g *Consistency) Name() decision.Layer { return decision.LayerConsistency }

// Evaluate implements Gate.
func (g *Consistency) Evaluate(_ context.Context, req *Request) (decision.Verdict, error) {
	excluded := make(map[string]bool, len(req.Exclude))
	for _, d := range req.Exclude {
		excluded[strings.ToLower(strings.TrimSpace(d))] = true
	}
	for _, d := range req.Include {
		if excluded[strings.ToLower(strings.TrimSpace(d))] {
			return decision.NewVerdict(decision.LayerConsistency, decision.PauseForHITL, ReasonConsistencyDirectiveConflict)
		}
	}

	if req.Artifact.Filename != "" {
		ext := strings.TrimPrefix(filepath.Ext(req.Artifact.Filename), ".")
		if ext != "" && !strings.EqualFold(ext, string(req.Artifact.Kind)) {
			return decision.NewVerdict(decision.LayerConsistency, decision.PauseForHITL, ReasonConsistencyExtensionMismatch)
		}
	}

	return decision.NewVerdict(decision.LayerConsistency, decision.Run, ReasonOK)
}
