package hitl

import (
	"context"
	"strings"
	"testing"

	"warden/internal/decision"
)

func pauseFor(reason string) Pause {
	return Pause{
		RunID:      "run-1",
		TaskID:     "task-1",
		Layer:      decision.LayerRFL,
		ReasonCode: reason,
	}
}

// =============================================================================
// SCRIPTED
// =============================================================================

func TestScripted_PlaysAnswersThenFallback(t *testing.T) {
	t.Parallel()

	r := NewScripted([]decision.Resolution{decision.Continue, decision.Stop}, decision.Continue)
	ctx := context.Background()

	want := []decision.Resolution{decision.Continue, decision.Stop, decision.Continue, decision.Continue}
	for i, w := range want {
		got, err := r.Resolve(ctx, pauseFor("RFL_RELATIVE_LANGUAGE"))
		if err != nil {
			t.Fatalf("Resolve %d error: %v", i, err)
		}
		if got != w {
			t.Errorf("Resolve %d = %q, want %q", i, got, w)
		}
	}

	if len(r.Seen()) != 4 {
		t.Errorf("Seen() = %d pauses, want 4", len(r.Seen()))
	}
}

func TestScripted_InvalidFallbackBecomesStop(t *testing.T) {
	t.Parallel()

	r := NewScripted(nil, decision.Resolution("WHATEVER"))
	got, err := r.Resolve(context.Background(), pauseFor("ETHICS_REVIEW"))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got != decision.Stop {
		t.Errorf("Resolve = %q, want STOP", got)
	}
}

func TestScripted_InvalidScriptedAnswerErrors(t *testing.T) {
	t.Parallel()

	r := NewScripted([]decision.Resolution{"NONSENSE"}, decision.Stop)
	if _, err := r.Resolve(context.Background(), pauseFor("ETHICS_REVIEW")); err == nil {
		t.Error("expected error for invalid scripted answer")
	}
}

// =============================================================================
// RANDOM
// =============================================================================

func TestRandom_DeterministicPerSeed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a := NewRandom(42, 0.5)
	b := NewRandom(42, 0.5)

	for i := 0; i < 50; i++ {
		ra, _ := a.Resolve(ctx, pauseFor("X"))
		rb, _ := b.Resolve(ctx, pauseFor("X"))
		if ra != rb {
			t.Fatalf("seeded resolvers diverged at call %d: %q vs %q", i, ra, rb)
		}
	}
}

func TestRandom_ProbabilityExtremes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	always := NewRandom(1, 1.0)
	never := NewRandom(1, 0.0)
	for i := 0; i < 20; i++ {
		if got, _ := always.Resolve(ctx, pauseFor("X")); got != decision.Continue {
			t.Fatal("continuePct=1.0 must always continue")
		}
		if got, _ := never.Resolve(ctx, pauseFor("X")); got != decision.Stop {
			t.Fatal("continuePct=0.0 must always stop")
		}
	}
}

func TestRandom_ClampsProbability(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewRandom(7, 3.5)
	if got, _ := r.Resolve(ctx, pauseFor("X")); got != decision.Continue {
		t.Error("clamped continuePct > 1 must behave as 1.0")
	}
}

// =============================================================================
// AUTO
// =============================================================================

func TestAuto_PolicyMapWithStopDefault(t *testing.T) {
	t.Parallel()

	r := NewAuto(map[string]decision.Resolution{
		"RFL_RELATIVE_LANGUAGE": decision.Continue,
		"ETHICS_REVIEW":         decision.Stop,
		"BROKEN":                "NOT_A_RESOLUTION", // Dropped at construction
	})
	ctx := context.Background()

	tests := []struct {
		reason string
		want   decision.Resolution
	}{
		{"RFL_RELATIVE_LANGUAGE", decision.Continue},
		{"ETHICS_REVIEW", decision.Stop},
		{"ACC_NO_REQUESTER", decision.Stop}, // Unmapped defaults to stop
		{"BROKEN", decision.Stop},           // Invalid mapping defaults to stop
	}

	for _, tt := range tests {
		got, err := r.Resolve(ctx, pauseFor(tt.reason))
		if err != nil {
			t.Fatalf("Resolve(%s) error: %v", tt.reason, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%s) = %q, want %q", tt.reason, got, tt.want)
		}
	}
}

// =============================================================================
// INTERACTIVE
// =============================================================================

func TestInteractive_ReadsAnswers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  decision.Resolution
	}{
		{"yes", "y\n", decision.Continue},
		{"continue word", "continue\n", decision.Continue},
		{"no", "n\n", decision.Stop},
		{"stop word", "stop\n", decision.Stop},
		{"garbage then answer", "eh\nmaybe\nyes\n", decision.Continue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			r := NewInteractive(strings.NewReader(tt.input), &out)

			got, err := r.Resolve(context.Background(), Pause{
				TaskID:     "task-1",
				Layer:      decision.LayerEthics,
				ReasonCode: "ETHICS_REVIEW",
				Excerpt:    "draft the announcement",
			})
			if err != nil {
				t.Fatalf("Resolve error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve = %q, want %q", got, tt.want)
			}
			if !strings.Contains(out.String(), "ETHICS_REVIEW") {
				t.Error("prompt output missing reason code")
			}
		})
	}
}

func TestInteractive_EOFIsError(t *testing.T) {
	t.Parallel()

	var out strings.Builder
	r := NewInteractive(strings.NewReader(""), &out)
	if _, err := r.Resolve(context.Background(), pauseFor("ETHICS_REVIEW")); err == nil {
		t.Error("expected error on EOF")
	}
}

func TestInteractive_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out strings.Builder
	r := NewInteractive(strings.NewReader("y\n"), &out)
	if _, err := r.Resolve(ctx, pauseFor("ETHICS_REVIEW")); err == nil {
		t.Error("expected context cancellation error")
	}
}
