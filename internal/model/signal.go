package model

// Signal is a weighted candidate value for a categorical field, produced by
// an upstream enrichment pass. The engine only consumes signals; it never
// creates them.
type Signal struct {
	SubjectID string  `json:"subject_id"`
	Field     string  `json:"field"`
	Value     string  `json:"value"`
	SourceID  string  `json:"source_id"`
	Weight    float64 `json:"weight"`
}

// Candidate is a grouped view of all signals proposing the same value.
type Candidate struct {
	Value   string   `json:"value"`
	Weight  float64  `json:"weight"`
	Sources []string `json:"sources"`
}

// AmbiguityReason codes why a classification was rejected.
type AmbiguityReason string

// Rejection reason constants.
const (
	ReasonNoSignals        AmbiguityReason = "no_signals"
	ReasonBelowThreshold   AmbiguityReason = "below_consensus_threshold"
	ReasonMarginTooNarrow  AmbiguityReason = "margin_too_narrow"
	ReasonContributorsWeak AmbiguityReason = "contributors_too_weak"
)

// ClassificationOutcome is the result of evaluating one categorical field.
// Value is nil whenever the evidence was insufficient; rejected evaluations
// keep the full candidate table for audit.
type ClassificationOutcome struct {
	Field               string          `json:"field"`
	Value               *string         `json:"value"`
	Tier                ConfidenceTier  `json:"confidence_tier"`
	Ambiguous           bool            `json:"ambiguous"`
	AmbiguityReason     AmbiguityReason `json:"ambiguity_reason,omitempty"`
	Candidates          []Candidate     `json:"candidates,omitempty"`
	ContributingSources []string        `json:"contributing_sources,omitempty"`
}

// Accepted reports whether the deriver settled on a value.
func (o ClassificationOutcome) Accepted() bool {
	return o.Value != nil && o.Tier != TierNone
}

// FieldUpdate is a proposed write of a categorical field, tagged with the
// confidence tier so the update policy guard can compare it against the
// currently persisted tier.
type FieldUpdate struct {
	Field string         `json:"field"`
	Value *string        `json:"value"`
	Tier  ConfidenceTier `json:"tier"`
}
