package gate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/internal/decision"
)

// goodRequest returns a request that passes every gate.
func goodRequest() *Request {
	return &Request{
		ID:     "task-001",
		Title:  "Quarterly revenue summary",
		Prompt: "Summarize quarterly revenue by region for the finance review",
		Artifact: Artifact{
			Kind:        ArtifactSpreadsheet,
			Filename:    "q3_revenue.xlsx",
			Sensitivity: SensitivityInternal,
		},
		Requester: "fin-ops",
		Clearance: SensitivityInternal,
		Include:   []string{"emea", "apac"},
		Exclude:   []string{"draft figures"},
	}
}

func evaluate(t *testing.T, g Gate, req *Request) decision.Verdict {
	t.Helper()
	v, err := g.Evaluate(context.Background(), req)
	require.NoError(t, err)
	return v
}

// =============================================================================
// PIPELINE ORDER
// =============================================================================

func TestPipeline_FixedOrder(t *testing.T) {
	t.Parallel()

	gates := Pipeline(Options{})
	require.Len(t, gates, 5)

	want := []decision.Layer{
		decision.LayerMeaning,
		decision.LayerConsistency,
		decision.LayerRFL,
		decision.LayerEthics,
		decision.LayerACC,
	}
	for i, g := range gates {
		assert.Equal(t, want[i], g.Name(), "gate %d", i)
	}
	assert.Equal(t, want, Order())
}

func TestPipeline_CleanRequestRunsEverywhere(t *testing.T) {
	t.Parallel()

	req := goodRequest()
	for _, g := range Pipeline(Options{}) {
		v := evaluate(t, g, req)
		assert.Equal(t, decision.Run, v.Decision, "layer %s reason %s", g.Name(), v.ReasonCode)
	}
}

// =============================================================================
// MEANING
// =============================================================================

func TestMeaning(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mutate     func(*Request)
		wantDec    decision.Decision
		wantReason string
	}{
		{"clean", func(r *Request) {}, decision.Run, ReasonOK},
		{"empty prompt", func(r *Request) { r.Prompt = "" }, decision.Stopped, ReasonMeaningEmptyPrompt},
		{"whitespace prompt", func(r *Request) { r.Prompt = "   \n\t " }, decision.Stopped, ReasonMeaningEmptyPrompt},
		{"too thin", func(r *Request) { r.Prompt = "revenue now" }, decision.PauseForHITL, ReasonMeaningTooThin},
		{"unknown artifact", func(r *Request) { r.Artifact.Kind = "csv" }, decision.PauseForHITL, ReasonMeaningUnknownArtifact},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := goodRequest()
			tt.mutate(req)
			v := evaluate(t, NewMeaning(0), req)
			assert.Equal(t, tt.wantDec, v.Decision)
			assert.Equal(t, tt.wantReason, v.ReasonCode)
			assert.False(t, v.Sealed, "meaning must never seal")
		})
	}
}

func TestMeaning_CustomMinWords(t *testing.T) {
	t.Parallel()

	req := goodRequest()
	req.Prompt = "five words are not enough apparently"

	v := evaluate(t, NewMeaning(10), req)
	assert.Equal(t, decision.PauseForHITL, v.Decision)
	assert.Equal(t, ReasonMeaningTooThin, v.ReasonCode)
}

// =============================================================================
// CONSISTENCY
// =============================================================================

func TestConsistency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mutate     func(*Request)
		wantDec    decision.Decision
		wantReason string
	}{
		{"clean", func(r *Request) {}, decision.Run, ReasonOK},
		{
			"directive conflict",
			func(r *Request) { r.Include = []string{"emea"}; r.Exclude = []string{"EMEA"} },
			decision.PauseForHITL, ReasonConsistencyDirectiveConflict,
		},
		{
			"extension mismatch",
			func(r *Request) { r.Artifact.Filename = "q3_revenue.docx" },
			decision.PauseForHITL, ReasonConsistencyExtensionMismatch,
		},
		{
			"no filename is fine",
			func(r *Request) { r.Artifact.Filename = "" },
			decision.Run, ReasonOK,
		},
		{
			"extensionless filename is fine",
			func(r *Request) { r.Artifact.Filename = "q3_revenue" },
			decision.Run, ReasonOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := goodRequest()
			tt.mutate(req)
			v := evaluate(t, NewConsistency(), req)
			assert.Equal(t, tt.wantDec, v.Decision)
			assert.Equal(t, tt.wantReason, v.ReasonCode)
		})
	}
}

// =============================================================================
// RFL
// =============================================================================

func TestRFL_PausesOnRelativeLanguage(t *testing.T) {
	t.Parallel()

	prompts := []string{
		"Obviously the numbers speak for themselves, write it up",
		"Everyone knows APAC is carrying the quarter, summarize accordingly",
		"Make us look like the best vendor in the comparison deck",
		"It goes without saying that this plan is right, document it",
	}

	g := NewRFL(nil)
	for _, p := range prompts {
		req := goodRequest()
		req.Prompt = p
		v := evaluate(t, g, req)
		assert.Equal(t, decision.PauseForHITL, v.Decision, "prompt %q", p)
		assert.Equal(t, ReasonRFLRelativeLanguage, v.ReasonCode)
		assert.True(t, v.Overrideable)
	}
}

func TestRFL_ExtraPhrases(t *testing.T) {
	t.Parallel()

	req := goodRequest()
	req.Prompt = "Describe the frobnication posture of the team this quarter"

	assert.Equal(t, decision.Run, evaluate(t, NewRFL(nil), req).Decision)

	v := evaluate(t, NewRFL([]string{"frobnication posture"}), req)
	assert.Equal(t, decision.PauseForHITL, v.Decision)
}

func TestRFL_NeverSeals(t *testing.T) {
	t.Parallel()

	// Even a prompt saturated with trigger phrases can only pause.
	req := goodRequest()
	req.Prompt = "Obviously everyone knows the best option is self-evident common sense"
	req.Title = "The worst quarter, clearly superior narrative needed"

	v := evaluate(t, NewRFL(nil), req)
	assert.Equal(t, decision.PauseForHITL, v.Decision)
	assert.False(t, v.Sealed)
	assert.True(t, v.Overrideable)
}

// =============================================================================
// ETHICS
// =============================================================================

func TestEthics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mutate     func(*Request)
		wantDec    decision.Decision
		wantReason string
		wantSealed bool
	}{
		{"clean", func(r *Request) {}, decision.Run, ReasonOK, false},
		{
			"email in prompt",
			func(r *Request) { r.Prompt = "Summarize complaints sent to hr-intake@example.com this quarter" },
			decision.Stopped, ReasonEthicsPIISealed, true,
		},
		{
			"email in title",
			func(r *Request) { r.Title = "Escalations for cfo@example.org" },
			decision.Stopped, ReasonEthicsPIISealed, true,
		},
		{
			"banned term",
			func(r *Request) { r.Prompt = "Prepare a memo on how to fabricate evidence of compliance" },
			decision.Stopped, ReasonEthicsHarmSealed, true,
		},
		{
			"flagged term pauses",
			func(r *Request) { r.Prompt = "Draft the announcement for the upcoming layoff round" },
			decision.PauseForHITL, ReasonEthicsReview, false,
		},
	}

	g := NewEthics(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := goodRequest()
			tt.mutate(req)
			v := evaluate(t, g, req)
			assert.Equal(t, tt.wantDec, v.Decision)
			assert.Equal(t, tt.wantReason, v.ReasonCode)
			assert.Equal(t, tt.wantSealed, v.Sealed)
			if tt.wantSealed {
				assert.False(t, v.Overrideable, "sealed stop must not be overrideable")
			}
		})
	}
}

func TestEthics_ExtraTerms(t *testing.T) {
	t.Parallel()

	req := goodRequest()
	req.Prompt = "Write the plan for project nightshade rollout in detail"

	assert.Equal(t, decision.Run, evaluate(t, NewEthics(nil, nil), req).Decision)

	v := evaluate(t, NewEthics([]string{"project nightshade"}, nil), req)
	assert.Equal(t, decision.Stopped, v.Decision)
	assert.True(t, v.Sealed)

	v = evaluate(t, NewEthics(nil, []string{"project nightshade"}), req)
	assert.Equal(t, decision.PauseForHITL, v.Decision)
}

// =============================================================================
// ACC
// =============================================================================

func TestACC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mutate     func(*Request)
		wantDec    decision.Decision
		wantReason string
		wantSealed bool
	}{
		{"clean", func(r *Request) {}, decision.Run, ReasonOK, false},
		{
			"no requester",
			func(r *Request) { r.Requester = "" },
			decision.PauseForHITL, ReasonACCNoRequester, false,
		},
		{
			"clearance below sensitivity",
			func(r *Request) {
				r.Clearance = SensitivityPublic
				r.Artifact.Sensitivity = SensitivityRestricted
			},
			decision.Stopped, ReasonACCClearanceSealed, true,
		},
		{
			"unknown clearance label",
			func(r *Request) { r.Clearance = "cosmic" },
			decision.PauseForHITL, ReasonACCUnknownClearance, false,
		},
		{
			"empty clearance defaults to public",
			func(r *Request) {
				r.Clearance = ""
				r.Artifact.Sensitivity = SensitivityInternal
			},
			decision.Stopped, ReasonACCClearanceSealed, true,
		},
		{
			"unknown sensitivity label never slips under the seal",
			func(r *Request) {
				r.Clearance = SensitivityPublic
				r.Artifact.Sensitivity = "restrictedd"
			},
			decision.PauseForHITL, ReasonACCUnknownSensitivity, false,
		},
		{
			"empty sensitivity defaults to internal",
			func(r *Request) {
				r.Clearance = SensitivityInternal
				r.Artifact.Sensitivity = ""
			},
			decision.Run, ReasonOK, false,
		},
	}

	g := NewACC()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := goodRequest()
			tt.mutate(req)
			v := evaluate(t, g, req)
			assert.Equal(t, tt.wantDec, v.Decision)
			assert.Equal(t, tt.wantReason, v.ReasonCode)
			assert.Equal(t, tt.wantSealed, v.Sealed)
		})
	}
}

// =============================================================================
// PURITY
// =============================================================================

func TestGates_DoNotMutateRequest(t *testing.T) {
	t.Parallel()

	req := goodRequest()
	before := *req

	for _, g := range Pipeline(Options{}) {
		evaluate(t, g, req)
	}

	assert.Equal(t, before.Prompt, req.Prompt)
	assert.Equal(t, before.Title, req.Title)
	assert.Equal(t, before.Include, req.Include)
	assert.Equal(t, before.Exclude, req.Exclude)
	assert.Equal(t, before.Artifact, req.Artifact)
}
