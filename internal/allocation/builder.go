// Package allocation builds target asset allocations from a risk category,
// optionally perturbed by the external generation collaborator, and validates
// every candidate set before it can be persisted.
package allocation

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
)

// SumTolerance is how far a target set may deviate from 100 before it is
// rejected.
const SumTolerance = 0.5

// DefaultBandWidth is the drift band applied around each target when no
// explicit bands are supplied.
const DefaultBandWidth = 5.0

// baseline maps each risk category to its fixed target triple and rebalance
// cadence.
var baseline = map[model.RiskCategory]model.AllocationModel{
	model.RiskConservative: {
		Category:         model.RiskConservative,
		RebalanceCadence: "annually",
		Targets: []model.TargetAllocation{
			{AssetClass: model.AssetEquity, TargetPercent: 20},
			{AssetClass: model.AssetDebt, TargetPercent: 60},
			{AssetClass: model.AssetAlternatives, TargetPercent: 20},
		},
	},
	model.RiskModerate: {
		Category:         model.RiskModerate,
		RebalanceCadence: "semi-annually",
		Targets: []model.TargetAllocation{
			{AssetClass: model.AssetEquity, TargetPercent: 50},
			{AssetClass: model.AssetDebt, TargetPercent: 35},
			{AssetClass: model.AssetAlternatives, TargetPercent: 15},
		},
	},
	model.RiskAggressive: {
		Category:         model.RiskAggressive,
		RebalanceCadence: "quarterly",
		Targets: []model.TargetAllocation{
			{AssetClass: model.AssetEquity, TargetPercent: 75},
			{AssetClass: model.AssetDebt, TargetPercent: 15},
			{AssetClass: model.AssetAlternatives, TargetPercent: 10},
		},
	},
}

// Baseline returns the fixed allocation model for a category, with default
// drift bands applied.
func Baseline(category model.RiskCategory) (model.AllocationModel, error) {
	m, ok := baseline[category]
	if !ok {
		return model.AllocationModel{}, eris.New(fmt.Sprintf("allocation: unknown risk category %q", category))
	}
	out := m
	out.Targets = make([]model.TargetAllocation, len(m.Targets))
	copy(out.Targets, m.Targets)
	applyDefaultBands(out.Targets)
	return out, nil
}

// GenerationInput carries the client context the external generator uses to
// perturb the baseline. Model selects the external model variant explicitly.
type GenerationInput struct {
	Category      model.RiskCategory
	HorizonYears  int
	Liquidity     string
	TaxBracket    string
	Baseline      []model.TargetAllocation
	AllowedAssets []model.AssetClass
	Model         string
}

// Generated is the collaborator's proposed allocation set.
type Generated struct {
	Targets          []model.TargetAllocation
	RebalanceCadence string
	Narrative        string
}

// Generator is the external allocation-perturbation collaborator.
type Generator interface {
	GenerateAllocation(ctx context.Context, in GenerationInput) (*Generated, error)
}

// Builder produces validated allocation models. A nil Generator means
// baseline-only operation.
type Builder struct {
	gen Generator
}

// NewBuilder creates a Builder using the given generator.
func NewBuilder(gen Generator) *Builder {
	return &Builder{gen: gen}
}

// Build returns the allocation model for the input. When a generator is
// configured its perturbed set is used if and only if it validates (sums to
// 100 within tolerance and uses only allowed asset classes); otherwise the
// baseline is used. Build never returns a non-summing set.
func (b *Builder) Build(ctx context.Context, in GenerationInput) (model.AllocationModel, error) {
	base, err := Baseline(in.Category)
	if err != nil {
		return model.AllocationModel{}, err
	}

	if b.gen == nil {
		return base, nil
	}

	if len(in.Baseline) == 0 {
		in.Baseline = base.Targets
	}
	if len(in.AllowedAssets) == 0 {
		in.AllowedAssets = []model.AssetClass{model.AssetEquity, model.AssetDebt, model.AssetAlternatives}
	}

	gen, err := b.gen.GenerateAllocation(ctx, in)
	if err != nil {
		zap.L().Warn("allocation: generator unavailable, using baseline",
			zap.String("category", string(in.Category)),
			zap.Error(err),
		)
		return base, nil
	}

	if err := ValidateTargets(gen.Targets, in.AllowedAssets); err != nil {
		zap.L().Warn("allocation: generated targets rejected, using baseline",
			zap.String("category", string(in.Category)),
			zap.Error(err),
		)
		return base, nil
	}

	out := model.AllocationModel{
		Category:         in.Category,
		Targets:          gen.Targets,
		RebalanceCadence: gen.RebalanceCadence,
		Narrative:        gen.Narrative,
		Perturbed:        true,
	}
	if out.RebalanceCadence == "" {
		out.RebalanceCadence = base.RebalanceCadence
	}
	applyDefaultBands(out.Targets)
	return out, nil
}

// ValidateTargets checks that targets sum to 100 within tolerance, stay
// within [0,100], and use only allowed asset classes.
func ValidateTargets(targets []model.TargetAllocation, allowed []model.AssetClass) error {
	if len(targets) == 0 {
		return eris.New("allocation: empty target set")
	}
	allowedSet := make(map[model.AssetClass]bool, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = true
	}
	sum := 0.0
	for _, t := range targets {
		if len(allowed) > 0 && !allowedSet[t.AssetClass] {
			return eris.New(fmt.Sprintf("allocation: asset class %q not in investable universe", t.AssetClass))
		}
		if t.TargetPercent < 0 || t.TargetPercent > 100 {
			return eris.New(fmt.Sprintf("allocation: target %g out of range for %s", t.TargetPercent, t.AssetClass))
		}
		sum += t.TargetPercent
	}
	if sum < 100-SumTolerance || sum > 100+SumTolerance {
		return eris.New(fmt.Sprintf("allocation: targets sum to %g, want 100±%g", sum, SumTolerance))
	}
	return nil
}

// applyDefaultBands fills empty bands with target ± DefaultBandWidth, clamped
// to [0,100]. Explicitly supplied bands are kept.
func applyDefaultBands(targets []model.TargetAllocation) {
	for i := range targets {
		t := &targets[i]
		if t.LowerBand == 0 && t.UpperBand == 0 {
			t.LowerBand = t.TargetPercent - DefaultBandWidth
			t.UpperBand = t.TargetPercent + DefaultBandWidth
		}
		if t.LowerBand < 0 {
			t.LowerBand = 0
		}
		if t.UpperBand > 100 {
			t.UpperBand = 100
		}
	}
}
