package scoring

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
)

// EligibilityThreshold is the minimum final confidence (0-100) for an
// assessment to be eligible for IPS generation.
const EligibilityThreshold = 65.0

// fallbackScore is the neutral substitute used when the behavioral-analysis
// collaborator is unavailable.
const fallbackScore = 50

var errNoAnalyzer = eris.New("scoring: no behavior analyzer configured")

// AnalysisInput carries everything the behavioral-analysis collaborator
// needs. Model selects the external model variant explicitly; there is no
// ambient model setting.
type AnalysisInput struct {
	Category      model.RiskCategory
	Questions     []model.Question
	Responses     model.ResponseSet
	ClientContext string
	Model         string
}

// BehaviorAnalyzer is the external behavioral-analysis collaborator.
type BehaviorAnalyzer interface {
	Analyze(ctx context.Context, in AnalysisInput) (*model.BehaviorAnalysis, error)
}

// BoundaryDistance scores how far inside its category a normalized score
// sits, on a 0-100 scale. Scores near a classification boundary earn low
// distance; scores deep inside a category earn high distance.
func BoundaryDistance(normalized float64) float64 {
	var d float64
	switch {
	case normalized <= conservativeBoundary:
		d = (conservativeBoundary - normalized) / conservativeBoundary * 100
	case normalized <= aggressiveBoundary:
		band := (aggressiveBoundary - conservativeBoundary) / 2
		d = min(normalized-conservativeBoundary, aggressiveBoundary-normalized) / band * 100
	default:
		d = (normalized - aggressiveBoundary) / (1 - aggressiveBoundary) * 100
	}
	return clamp(d, 0, 100)
}

// AggregateConfidence combines the boundary-distance heuristic with the
// external reliability signal. A collaborator failure never blocks the
// pipeline: the neutral fallback is substituted and recorded as such.
func AggregateConfidence(ctx context.Context, analyzer BehaviorAnalyzer, score model.ScoreResult, in AnalysisInput) model.ConfidenceResult {
	result := model.ConfidenceResult{
		BoundaryDistance: BoundaryDistance(score.Normalized),
	}

	var analysis *model.BehaviorAnalysis
	err := errNoAnalyzer
	if analyzer != nil {
		analysis, err = analyzer.Analyze(ctx, in)
	}
	if err != nil {
		zap.L().Warn("scoring: behavioral analysis unavailable, using neutral fallback",
			zap.String("category", string(in.Category)),
			zap.Error(err),
		)
		result.ExternalReliability = fallbackScore
		result.Consistency = fallbackScore
		result.Stability = fallbackScore
		result.FinalConfidence = fallbackScore
		result.FallbackUsed = true
		return result
	}

	result.ExternalReliability = clamp(float64(analysis.Reliability), 0, 100)
	result.Consistency = clamp(float64(analysis.Consistency), 0, 100)
	result.Stability = clamp(float64(analysis.Stability), 0, 100)
	result.FinalConfidence = result.ExternalReliability
	result.Summary = analysis.Summary
	return result
}

// NormalizeScore converts a possibly 0-1 scaled score to the canonical 0-100
// scale. Persisted values are canonical already; this exists for legacy reads
// and defensive comparison at the eligibility gate.
func NormalizeScore(v float64) float64 {
	if v <= 1 {
		return v * 100
	}
	return v
}

// Eligible reports whether an assessment may generate an IPS: finalized by an
// advisor and sufficiently confident.
func Eligible(finalizedByAdvisor bool, finalConfidence float64) bool {
	return finalizedByAdvisor && NormalizeScore(finalConfidence) >= EligibilityThreshold
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
