package model

import "time"

// RiskCategory is the three-tier suitability classification.
type RiskCategory string

const (
	RiskConservative RiskCategory = "conservative"
	RiskModerate     RiskCategory = "moderate"
	RiskAggressive   RiskCategory = "aggressive"
)

// Rank orders categories from most to least conservative. Unknown categories
// rank below Conservative.
func (c RiskCategory) Rank() int {
	switch c {
	case RiskConservative:
		return 1
	case RiskModerate:
		return 2
	case RiskAggressive:
		return 3
	default:
		return 0
	}
}

// Valid reports whether c is one of the three known categories.
func (c RiskCategory) Valid() bool {
	return c.Rank() > 0
}

// ScoreResult is the deterministic output of the scoring engine.
type ScoreResult struct {
	Raw        float64 `json:"raw_score"`
	Max        float64 `json:"max_score"`
	Normalized float64 `json:"normalized_score"`
}

// SuitabilityResult is the classification of a scored response set. The
// computed Category is immutable; an advisor override is recorded separately
// and never mutates it.
type SuitabilityResult struct {
	Category          RiskCategory `json:"risk_category"`
	WillingnessScore  float64      `json:"willingness_score"`
	AbilityScore      float64      `json:"ability_score"`
	KnockoutTriggered bool         `json:"knockout_triggered"`

	OverrideCategory RiskCategory `json:"override_category,omitempty"`
	OverrideReason   string       `json:"override_reason,omitempty"`
}

// Effective returns the advisor override when present, otherwise the computed
// category. Downstream consumers must use this, never Category directly.
func (s SuitabilityResult) Effective() RiskCategory {
	if s.OverrideCategory != "" {
		return s.OverrideCategory
	}
	return s.Category
}

// BehaviorAnalysis is the payload returned by the external behavioral-analysis
// collaborator. Consistency and Stability are display-only sub-metrics.
type BehaviorAnalysis struct {
	Reliability int    `json:"reliability"`
	Consistency int    `json:"consistency"`
	Stability   int    `json:"stability"`
	Summary     string `json:"summary"`
}

// ConfidenceResult blends the boundary-distance heuristic with the external
// reliability signal. All scores are on the canonical 0-100 scale.
// FallbackUsed distinguishes a neutral substitute from a genuine analysis.
type ConfidenceResult struct {
	BoundaryDistance    float64 `json:"boundary_distance"`
	ExternalReliability float64 `json:"external_reliability"`
	Consistency         float64 `json:"consistency"`
	Stability           float64 `json:"stability"`
	FinalConfidence     float64 `json:"final_confidence"`
	FallbackUsed        bool    `json:"fallback_used"`
	Summary             string  `json:"summary,omitempty"`
}

// AssessmentStatus tracks the append-only lifecycle of a submission.
type AssessmentStatus string

const (
	AssessmentScored    AssessmentStatus = "scored"
	AssessmentFinalized AssessmentStatus = "finalized"
	AssessmentRejected  AssessmentStatus = "rejected"
)

// Assessment is one questionnaire submission with its computed results.
// Rejected assessments are marked, never deleted; a fresh submission creates
// a new record.
type Assessment struct {
	ID              string            `json:"id"`
	ClientName      string            `json:"client_name"`
	QuestionnaireID string            `json:"questionnaire_id"`
	Responses       ResponseSet       `json:"responses"`
	Score           ScoreResult       `json:"score"`
	Suitability     SuitabilityResult `json:"suitability"`
	Confidence      ConfidenceResult  `json:"confidence"`
	Status          AssessmentStatus  `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Finalized reports whether an advisor has signed off on the assessment.
func (a *Assessment) Finalized() bool {
	return a.Status == AssessmentFinalized
}
