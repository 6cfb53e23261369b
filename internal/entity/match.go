package entity

import (
	"github.com/joseph-ayodele/form-filler/constants"
)

// CandidateMatch is one raw value found in source text for a field, before arbitration.
type CandidateMatch struct {
	FieldID        string             `json:"field_id"`
	SourceID       string             `json:"source_id,omitempty"`
	Strategy       constants.Strategy `json:"strategy"`
	Value          string             `json:"value"`
	BaseConfidence float64            `json:"base_confidence"`
	ContextScore   float64            `json:"context_score"`
	FinalScore     float64            `json:"final_score"`
	Position       int                `json:"position"`
	Context        string             `json:"context,omitempty"`
}

// FieldMapping binds a target field to the value chosen for it.
type FieldMapping struct {
	FieldID    string             `json:"field_id"`
	SourceID   string             `json:"source_id"`
	Value      string             `json:"value"`
	Confidence float64            `json:"confidence"`
	Method     constants.Strategy `json:"method"`
	Reasoning  string             `json:"reasoning,omitempty"`
}

type OutcomeKind int

const (
	OutcomeNotFound OutcomeKind = iota
	OutcomeFound
	OutcomeCollaboratorError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFound:
		return "found"
	case OutcomeCollaboratorError:
		return "collaborator_error"
	}
	return "not_found"
}

// MatchOutcome is the result of matching one field. Exactly one of the kinds holds.
type MatchOutcome struct {
	Kind    OutcomeKind
	Mapping FieldMapping
	Reason  string
}

func Found(m FieldMapping) MatchOutcome {
	m.Confidence = ClampConfidence(m.Confidence)
	return MatchOutcome{Kind: OutcomeFound, Mapping: m}
}

func NotFound() MatchOutcome { return MatchOutcome{Kind: OutcomeNotFound} }

func CollaboratorError(reason string) MatchOutcome {
	return MatchOutcome{Kind: OutcomeCollaboratorError, Reason: reason}
}

func (o MatchOutcome) IsFound() bool { return o.Kind == OutcomeFound }

// ClampConfidence keeps a confidence inside [0, 1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// FieldHint is correction guidance for one field carried into the next matching pass.
type FieldHint struct {
	SourceKey string   `json:"source_key,omitempty"`
	Avoid     []string `json:"avoid,omitempty"`
	Note      string   `json:"note,omitempty"`
}
