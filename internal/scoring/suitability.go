package scoring

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
)

// Classification boundaries on the min(willingness, ability) scale.
// suitability <= conservativeBoundary -> Conservative;
// <= aggressiveBoundary -> Moderate; above -> Aggressive.
const (
	conservativeBoundary = 0.35
	aggressiveBoundary   = 0.65
)

// knockoutMaxScore is the highest option score that still counts as a
// disqualifying (very short horizon) answer on a knockout question.
const knockoutMaxScore = 1

// Classify partitions questions by their authored category, scores each
// partition, and maps the weaker dimension to a risk category. A knockout
// question answered at the lowest tier forces Conservative regardless of
// everything else: no amount of stated willingness can override a hard
// suitability constraint.
func Classify(questions []model.Question, responses model.ResponseSet) (model.SuitabilityResult, error) {
	// Full-coverage check up front so partition scores never see partial sets.
	if _, err := Score(questions, responses); err != nil {
		return model.SuitabilityResult{}, err
	}

	var willingness, ability []model.Question
	knockout := false
	for _, q := range questions {
		switch q.Category {
		case model.CategoryAbility:
			ability = append(ability, q)
		default:
			willingness = append(willingness, q)
		}
		if q.Knockout && q.Category == model.CategoryAbility {
			opt, _ := q.OptionByID(responses[q.ID])
			if opt.Score <= knockoutMaxScore {
				knockout = true
			}
		}
	}

	willingnessScore := partitionPercent(willingness, responses)
	abilityScore := partitionPercent(ability, responses)

	result := model.SuitabilityResult{
		WillingnessScore:  willingnessScore,
		AbilityScore:      abilityScore,
		KnockoutTriggered: knockout,
	}

	if knockout {
		result.Category = model.RiskConservative
		return result, nil
	}

	suitability := min(willingnessScore, abilityScore) / 100
	switch {
	case suitability <= conservativeBoundary:
		result.Category = model.RiskConservative
	case suitability <= aggressiveBoundary:
		result.Category = model.RiskModerate
	default:
		result.Category = model.RiskAggressive
	}
	return result, nil
}

// partitionPercent scores one partition as a 0-100 percentage. Empty
// partitions and zero max weights score 0.
func partitionPercent(questions []model.Question, responses model.ResponseSet) float64 {
	raw, max := 0.0, 0.0
	for _, q := range questions {
		opt, ok := q.OptionByID(responses[q.ID])
		if !ok {
			continue
		}
		raw += q.Weight * float64(opt.Score)
		max += q.Weight * float64(q.MaxOptionScore())
	}
	if max <= 0 {
		return 0
	}
	return raw / max * 100
}

// ApplyOverride records an advisor override on the result. The computed
// category is never mutated; a non-empty reason is mandatory.
func ApplyOverride(result *model.SuitabilityResult, category model.RiskCategory, reason string) error {
	if !category.Valid() {
		return eris.New(fmt.Sprintf("scoring: invalid override category %q", category))
	}
	if reason == "" {
		return eris.New("scoring: override reason is required")
	}
	result.OverrideCategory = category
	result.OverrideReason = reason
	return nil
}
