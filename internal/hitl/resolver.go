// Package hitl provides the pluggable human-in-the-loop resolvers that turn
// a PAUSE_FOR_HITL verdict into CONTINUE or STOP. The orchestrator never
// consults a resolver for sealed stops; resolvers only ever see overrideable
// pauses.
package hitl

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"warden/internal/decision"
)

// Pause describes an overrideable pause awaiting a human answer. The excerpt
// is already redacted by the caller.
type Pause struct {
	RunID      string
	TaskID     string
	Layer      decision.Layer
	ReasonCode string
	Excerpt    string
}

// Resolver converts a pause into a resolution.
type Resolver interface {
	Resolve(ctx context.Context, p Pause) (decision.Resolution, error)
}

// =============================================================================
// SCRIPTED RESOLVER
// =============================================================================

// Scripted answers from a fixed sequence, then falls back to a default. It
// records every pause it sees, which makes orchestrator tests deterministic.
type Scripted struct {
	mu       sync.Mutex
	answers  []decision.Resolution
	next     int
	fallback decision.Resolution
	seen     []Pause
}

// NewScripted creates a scripted resolver. An invalid fallback becomes STOP.
func NewScripted(answers []decision.Resolution, fallback decision.Resolution) *Scripted {
	if !fallback.Valid() {
		fallback = decision.Stop
	}
	return &Scripted{answers: answers, fallback: fallback}
}

// Resolve implements Resolver.
func (s *Scripted) Resolve(_ context.Context, p Pause) (decision.Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen = append(s.seen, p)
	if s.next < len(s.answers) {
		answer := s.answers[s.next]
		s.next++
		if !answer.Valid() {
			return "", fmt.Errorf("scripted answer %d is invalid: %q", s.next, answer)
		}
		return answer, nil
	}
	return s.fallback, nil
}

// Seen returns a copy of every pause the resolver has been asked about.
func (s *Scripted) Seen() []Pause {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Pause, len(s.seen))
	copy(out, s.seen)
	return out
}

// =============================================================================
// RANDOM RESOLVER
// =============================================================================

// Random answers CONTINUE with a fixed probability from a seeded source.
// Used by the stress runner, where determinism per seed matters more than
// realism.
type Random struct {
	mu          sync.Mutex
	rng         *rand.Rand
	continuePct float64
}

// NewRandom creates a random resolver. continuePct is clamped to [0, 1].
func NewRandom(seed int64, continuePct float64) *Random {
	if continuePct < 0 {
		continuePct = 0
	}
	if continuePct > 1 {
		continuePct = 1
	}
	return &Random{
		rng:         rand.New(rand.NewSource(seed)),
		continuePct: continuePct,
	}
}

// Resolve implements Resolver.
func (r *Random) Resolve(_ context.Context, _ Pause) (decision.Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rng.Float64() < r.continuePct {
		return decision.Continue, nil
	}
	return decision.Stop, nil
}

// =============================================================================
// AUTO RESOLVER
// =============================================================================

// Auto resolves by reason code from a fixed policy map, defaulting to STOP.
// The safe default means an unmapped reason can never silently continue.
type Auto struct {
	policy map[string]decision.Resolution
}

// NewAuto creates an auto resolver from a reason-code policy map.
func NewAuto(policy map[string]decision.Resolution) *Auto {
	cloned := make(map[string]decision.Resolution, len(policy))
	for code, res := range policy {
		if res.Valid() {
			cloned[code] = res
		}
	}
	return &Auto{policy: cloned}
}

// Resolve implements Resolver.
func (a *Auto) Resolve(_ context.Context, p Pause) (decision.Resolution, error) {
	if res, ok := a.policy[p.ReasonCode]; ok {
		return res, nil
	}
	return decision.Stop, nil
}
