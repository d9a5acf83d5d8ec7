package allocation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
)

type fakeGenerator struct {
	generated *Generated
	err       error
	gotInput  GenerationInput
}

func (f *fakeGenerator) GenerateAllocation(_ context.Context, in GenerationInput) (*Generated, error) {
	f.gotInput = in
	return f.generated, f.err
}

func TestBaseline(t *testing.T) {
	tests := []struct {
		category    model.RiskCategory
		wantEquity  float64
		wantDebt    float64
		wantAlts    float64
		wantCadence string
	}{
		{model.RiskConservative, 20, 60, 20, "annually"},
		{model.RiskModerate, 50, 35, 15, "semi-annually"},
		{model.RiskAggressive, 75, 15, 10, "quarterly"},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			got, err := Baseline(tt.category)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCadence, got.RebalanceCadence)
			assert.False(t, got.Perturbed)
			assert.InDelta(t, 100, got.TargetSum(), 1e-9)

			byClass := map[model.AssetClass]model.TargetAllocation{}
			for _, target := range got.Targets {
				byClass[target.AssetClass] = target
			}
			assert.InDelta(t, tt.wantEquity, byClass[model.AssetEquity].TargetPercent, 1e-9)
			assert.InDelta(t, tt.wantDebt, byClass[model.AssetDebt].TargetPercent, 1e-9)
			assert.InDelta(t, tt.wantAlts, byClass[model.AssetAlternatives].TargetPercent, 1e-9)
		})
	}
}

func TestBaselineUnknownCategory(t *testing.T) {
	_, err := Baseline("balanced")
	require.Error(t, err)
}

func TestBaselineAppliesDefaultBands(t *testing.T) {
	got, err := Baseline(model.RiskConservative)
	require.NoError(t, err)
	for _, target := range got.Targets {
		assert.InDelta(t, target.TargetPercent-DefaultBandWidth, target.LowerBand, 1e-9, "%s lower", target.AssetClass)
		assert.InDelta(t, target.TargetPercent+DefaultBandWidth, target.UpperBand, 1e-9, "%s upper", target.AssetClass)
	}
}

func TestBaselineReturnsCopy(t *testing.T) {
	first, err := Baseline(model.RiskModerate)
	require.NoError(t, err)
	first.Targets[0].TargetPercent = 99

	second, err := Baseline(model.RiskModerate)
	require.NoError(t, err)
	assert.InDelta(t, 50, second.Targets[0].TargetPercent, 1e-9)
}

func TestBuildWithoutGenerator(t *testing.T) {
	b := NewBuilder(nil)
	got, err := b.Build(context.Background(), GenerationInput{Category: model.RiskModerate})
	require.NoError(t, err)
	assert.False(t, got.Perturbed)
	assert.InDelta(t, 100, got.TargetSum(), 1e-9)
}

func TestBuildUsesValidGeneratedTargets(t *testing.T) {
	gen := &fakeGenerator{generated: &Generated{
		Targets: []model.TargetAllocation{
			{AssetClass: model.AssetEquity, TargetPercent: 48},
			{AssetClass: model.AssetDebt, TargetPercent: 37},
			{AssetClass: model.AssetAlternatives, TargetPercent: 15},
		},
		RebalanceCadence: "quarterly",
		Narrative:        "tilted toward debt for the stated liquidity needs",
	}}
	b := NewBuilder(gen)

	got, err := b.Build(context.Background(), GenerationInput{
		Category:     model.RiskModerate,
		HorizonYears: 8,
		Model:        "claude-sonnet-4-5-20250929",
	})
	require.NoError(t, err)
	assert.True(t, got.Perturbed)
	assert.Equal(t, "quarterly", got.RebalanceCadence)
	assert.InDelta(t, 100, got.TargetSum(), 1e-9)
	assert.Equal(t, "tilted toward debt for the stated liquidity needs", got.Narrative)

	// The baseline and universe are passed through to the generator.
	assert.Len(t, gen.gotInput.Baseline, 3)
	assert.Len(t, gen.gotInput.AllowedAssets, 3)
	assert.Equal(t, "claude-sonnet-4-5-20250929", gen.gotInput.Model)
}

func TestBuildFallsBackToBaseline(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{
			name: "generator error",
			gen:  &fakeGenerator{err: errors.New("overloaded")},
		},
		{
			name: "targets off by more than tolerance",
			gen: &fakeGenerator{generated: &Generated{
				Targets: []model.TargetAllocation{
					{AssetClass: model.AssetEquity, TargetPercent: 50},
					{AssetClass: model.AssetDebt, TargetPercent: 35},
					{AssetClass: model.AssetAlternatives, TargetPercent: 20},
				},
			}},
		},
		{
			name: "asset class outside universe",
			gen: &fakeGenerator{generated: &Generated{
				Targets: []model.TargetAllocation{
					{AssetClass: "crypto", TargetPercent: 50},
					{AssetClass: model.AssetDebt, TargetPercent: 50},
				},
			}},
		},
		{
			name: "empty target set",
			gen:  &fakeGenerator{generated: &Generated{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(tt.gen)
			got, err := b.Build(context.Background(), GenerationInput{Category: model.RiskConservative})
			require.NoError(t, err)
			assert.False(t, got.Perturbed)
			assert.Equal(t, "annually", got.RebalanceCadence)
			assert.InDelta(t, 100, got.TargetSum(), 1e-9)
		})
	}
}

func TestValidateTargets(t *testing.T) {
	allowed := []model.AssetClass{model.AssetEquity, model.AssetDebt, model.AssetAlternatives}

	tests := []struct {
		name    string
		targets []model.TargetAllocation
		wantErr bool
	}{
		{
			name: "exact sum",
			targets: []model.TargetAllocation{
				{AssetClass: model.AssetEquity, TargetPercent: 60},
				{AssetClass: model.AssetDebt, TargetPercent: 40},
			},
		},
		{
			name: "within tolerance",
			targets: []model.TargetAllocation{
				{AssetClass: model.AssetEquity, TargetPercent: 60.3},
				{AssetClass: model.AssetDebt, TargetPercent: 40},
			},
		},
		{
			name: "beyond tolerance",
			targets: []model.TargetAllocation{
				{AssetClass: model.AssetEquity, TargetPercent: 61},
				{AssetClass: model.AssetDebt, TargetPercent: 40},
			},
			wantErr: true,
		},
		{
			name: "negative target",
			targets: []model.TargetAllocation{
				{AssetClass: model.AssetEquity, TargetPercent: -10},
				{AssetClass: model.AssetDebt, TargetPercent: 110},
			},
			wantErr: true,
		},
		{
			name:    "empty",
			targets: nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTargets(tt.targets, allowed)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyDefaultBandsClamps(t *testing.T) {
	targets := []model.TargetAllocation{
		{AssetClass: model.AssetEquity, TargetPercent: 2},
		{AssetClass: model.AssetDebt, TargetPercent: 98},
	}
	applyDefaultBands(targets)
	assert.InDelta(t, 0, targets[0].LowerBand, 1e-9)
	assert.InDelta(t, 7, targets[0].UpperBand, 1e-9)
	assert.InDelta(t, 93, targets[1].LowerBand, 1e-9)
	assert.InDelta(t, 100, targets[1].UpperBand, 1e-9)
}
