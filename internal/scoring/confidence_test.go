package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
)

type fakeAnalyzer struct {
	analysis *model.BehaviorAnalysis
	err      error
	gotInput AnalysisInput
}

func (f *fakeAnalyzer) Analyze(_ context.Context, in AnalysisInput) (*model.BehaviorAnalysis, error) {
	f.gotInput = in
	return f.analysis, f.err
}

func TestBoundaryDistance(t *testing.T) {
	tests := []struct {
		name       string
		normalized float64
		want       float64
	}{
		{"zero is deep conservative", 0, 100},
		{"quarter", 0.25, 28.57},
		{"at conservative boundary", 0.35, 0},
		{"mid moderate band", 0.5, 100},
		{"at aggressive boundary", 0.65, 0},
		{"deep aggressive", 0.875, 64.29},
		{"full score", 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BoundaryDistance(tt.normalized)
			assert.InDelta(t, tt.want, got, 0.01)
		})
	}
}

func TestBoundaryDistanceBounds(t *testing.T) {
	for _, v := range []float64{-0.5, 0, 0.1, 0.35, 0.42, 0.65, 0.9, 1, 1.5} {
		got := BoundaryDistance(v)
		assert.GreaterOrEqual(t, got, 0.0, "normalized=%g", v)
		assert.LessOrEqual(t, got, 100.0, "normalized=%g", v)
	}
}

func TestAggregateConfidence(t *testing.T) {
	score := model.ScoreResult{Raw: 5, Max: 20, Normalized: 0.25}
	in := AnalysisInput{Category: model.RiskConservative, Model: "claude-sonnet-4-5-20250929"}

	t.Run("uses external reliability as final confidence", func(t *testing.T) {
		analyzer := &fakeAnalyzer{analysis: &model.BehaviorAnalysis{
			Reliability: 82, Consistency: 74, Stability: 69, Summary: "consistent answers",
		}}
		got := AggregateConfidence(context.Background(), analyzer, score, in)
		assert.InDelta(t, 82, got.FinalConfidence, 1e-9)
		assert.InDelta(t, 82, got.ExternalReliability, 1e-9)
		assert.InDelta(t, 74, got.Consistency, 1e-9)
		assert.InDelta(t, 69, got.Stability, 1e-9)
		assert.InDelta(t, 28.57, got.BoundaryDistance, 0.01)
		assert.False(t, got.FallbackUsed)
		assert.Equal(t, "consistent answers", got.Summary)
		assert.Equal(t, in.Model, analyzer.gotInput.Model)
	})

	t.Run("collaborator failure falls back to neutral", func(t *testing.T) {
		analyzer := &fakeAnalyzer{err: errors.New("overloaded")}
		got := AggregateConfidence(context.Background(), analyzer, score, in)
		assert.True(t, got.FallbackUsed)
		assert.InDelta(t, 50, got.FinalConfidence, 1e-9)
		assert.InDelta(t, 50, got.ExternalReliability, 1e-9)
		assert.InDelta(t, 50, got.Consistency, 1e-9)
		assert.InDelta(t, 50, got.Stability, 1e-9)
		// Heuristic still computed; only the external signal is substituted.
		assert.InDelta(t, 28.57, got.BoundaryDistance, 0.01)
	})

	t.Run("nil analyzer falls back to neutral", func(t *testing.T) {
		got := AggregateConfidence(context.Background(), nil, score, in)
		assert.True(t, got.FallbackUsed)
		assert.InDelta(t, 50, got.FinalConfidence, 1e-9)
	})

	t.Run("out of range analysis is clamped", func(t *testing.T) {
		analyzer := &fakeAnalyzer{analysis: &model.BehaviorAnalysis{
			Reliability: 140, Consistency: -10, Stability: 101,
		}}
		got := AggregateConfidence(context.Background(), analyzer, score, in)
		assert.InDelta(t, 100, got.FinalConfidence, 1e-9)
		assert.InDelta(t, 0, got.Consistency, 1e-9)
		assert.InDelta(t, 100, got.Stability, 1e-9)
		assert.False(t, got.FallbackUsed)
	})
}

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"legacy fraction", 0.72, 72},
		{"legacy full", 1, 100},
		{"canonical", 72, 72},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NormalizeScore(tt.in), 1e-9)
		})
	}
}

func TestEligible(t *testing.T) {
	tests := []struct {
		name       string
		finalized  bool
		confidence float64
		want       bool
	}{
		{"finalized and confident", true, 80, true},
		{"at threshold", true, 65, true},
		{"below threshold", true, 64.9, false},
		{"not finalized", false, 90, false},
		{"legacy fraction scale", true, 0.7, true},
		{"neutral fallback blocks", true, 50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Eligible(tt.finalized, tt.confidence))
		})
	}
}

func TestEligibleRequiresBoth(t *testing.T) {
	require.False(t, Eligible(false, 0))
}
