// Package gate implements the five policy gates and their fixed evaluation
// order: Meaning -> Consistency -> RFL -> Ethics -> ACC. Gates are pure
// predicates over an in-memory request; they perform no I/O and never mutate
// the request. Sealing authority lives in the decision package, so a gate
// cannot issue a sealed stop unless its layer is allowed to.
package gate

import (
	"context"
	"strings"

	"warden/internal/decision"
)

// =============================================================================
// REASON CODES
// =============================================================================

const (
	ReasonOK = "OK"

	ReasonMeaningEmptyPrompt     = "MEANING_EMPTY_PROMPT"
	ReasonMeaningTooThin         = "MEANING_TOO_THIN"
	ReasonMeaningUnknownArtifact = "MEANING_UNKNOWN_ARTIFACT"

	ReasonConsistencyDirectiveConflict = "CONSISTENCY_DIRECTIVE_CONFLICT"
	ReasonConsistencyExtensionMismatch = "CONSISTENCY_EXTENSION_MISMATCH"

	ReasonRFLRelativeLanguage = "RFL_RELATIVE_LANGUAGE"

	ReasonEthicsPIISealed  = "ETHICS_PII_SEALED"
	ReasonEthicsHarmSealed = "ETHICS_HARM_SEALED"
	ReasonEthicsReview     = "ETHICS_REVIEW"

	ReasonACCNoRequester        = "ACC_NO_REQUESTER"
	ReasonACCClearanceSealed    = "ACC_CLEARANCE_SEALED"
	ReasonACCUnknownClearance   = "ACC_UNKNOWN_CLEARANCE"
	ReasonACCUnknownSensitivity = "ACC_UNKNOWN_SENSITIVITY"
)

// =============================================================================
// REQUEST MODEL
// =============================================================================

// ArtifactKind names a pretend document format.
type ArtifactKind string

const (
	ArtifactSpreadsheet  ArtifactKind = "xlsx"
	ArtifactDocument     ArtifactKind = "docx"
	ArtifactPresentation ArtifactKind = "pptx"
	ArtifactPlainText    ArtifactKind = "txt"
)

// Valid reports whether k is a known artifact kind.
func (k ArtifactKind) Valid() bool {
	switch k {
	case ArtifactSpreadsheet, ArtifactDocument, ArtifactPresentation, ArtifactPlainText:
		return true
	}
	return false
}

// Sensitivity classifies how restricted an artifact is.
type Sensitivity string

const (
	SensitivityPublic     Sensitivity = "public"
	SensitivityInternal   Sensitivity = "internal"
	SensitivityRestricted Sensitivity = "restricted"
)

// Rank orders sensitivity levels; unknown levels rank below public.
func (s Sensitivity) Rank() int {
	switch s {
	case SensitivityPublic:
		return 1
	case SensitivityInternal:
		return 2
	case SensitivityRestricted:
		return 3
	}
	return 0
}

// Artifact describes the document a request wants generated.
type Artifact struct {
	Kind        ArtifactKind `yaml:"kind" json:"kind"`
	Filename    string       `yaml:"filename" json:"filename"`
	Sensitivity Sensitivity  `yaml:"sensitivity" json:"sensitivity"`
}

// Request is the unit of work evaluated by the pipeline.
type Request struct {
	ID        string      `yaml:"id" json:"id"`
	Title     string      `yaml:"title" json:"title"`
	Prompt    string      `yaml:"prompt" json:"prompt"`
	Artifact  Artifact    `yaml:"artifact" json:"artifact"`
	Requester string      `yaml:"requester" json:"requester"`
	Clearance Sensitivity `yaml:"clearance" json:"clearance"`
	Include   []string    `yaml:"include" json:"include,omitempty"`
	Exclude   []string    `yaml:"exclude" json:"exclude,omitempty"`

	// InjectedFault tags requests mutated by the stress runner so reports
	// can correlate injected faults with outcomes. Gates ignore it.
	InjectedFault string `yaml:"-" json:"injected_fault,omitempty"`
}

// =============================================================================
// GATE INTERFACE AND FIXED ORDER
// =============================================================================

// Gate is a single named policy check.
type Gate interface {
	Name() decision.Layer
	Evaluate(ctx context.Context, req *Request) (decision.Verdict, error)
}

// Options carries per-gate tuning. Zero value means defaults.
type Options struct {
	MinPromptWords int      // Meaning: below this word count the prompt is too thin
	ExtraPhrases   []string // RFL: additional relative-language phrases
	ExtraBanned    []string // Ethics: additional sealed-stop terms
	ExtraFlagged   []string // Ethics: additional review terms
}

// Pipeline returns the gates in their fixed evaluation order. The order is
// not configurable; reordering the sequence is a correctness bug, not a
// tuning knob.
func Pipeline(opts Options) []Gate {
	return []Gate{
		NewMeaning(opts.MinPromptWords),
		NewConsistency(),
		NewRFL(opts.ExtraPhrases),
		NewEthics(opts.ExtraBanned, opts.ExtraFlagged),
		NewACC(),
	}
}

// Order returns the layer sequence of the fixed pipeline.
func Order() []decision.Layer {
	return []decision.Layer{
		decision.LayerMeaning,
		decision.LayerConsistency,
		decision.LayerRFL,
		decision.LayerEthics,
		decision.LayerACC,
	}
}

// containsFold reports whether text contains needle, case-insensitively.
func containsFold(text, needle string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(needle))
}
