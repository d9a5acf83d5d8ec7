// Package scoring implements the suitability classification pipeline:
// deterministic questionnaire scoring, the willingness/ability split with the
// conservative knock-out, and the confidence aggregation that gates IPS
// generation.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
)

// IncompleteResponseError reports questions that were not answered, or whose
// selected option does not exist. Partial response sets are rejected, never
// silently scored.
type IncompleteResponseError struct {
	Missing []string
}

func (e *IncompleteResponseError) Error() string {
	return fmt.Sprintf("scoring: incomplete responses for questions: %s", strings.Join(e.Missing, ", "))
}

// Score converts a response set into raw, max and normalized scores.
// raw = sum(weight * selected option score); max = sum(weight * best option
// score per question); normalized = raw/max, 0 when max is 0. Pure and
// order-invariant.
func Score(questions []model.Question, responses model.ResponseSet) (model.ScoreResult, error) {
	var missing []string
	raw, max := 0.0, 0.0

	for _, q := range questions {
		optID, ok := responses[q.ID]
		if !ok {
			missing = append(missing, q.ID)
			continue
		}
		opt, ok := q.OptionByID(optID)
		if !ok {
			missing = append(missing, q.ID)
			continue
		}
		raw += q.Weight * float64(opt.Score)
		max += q.Weight * float64(q.MaxOptionScore())
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return model.ScoreResult{}, &IncompleteResponseError{Missing: missing}
	}

	normalized := 0.0
	if max > 0 {
		normalized = raw / max
	}

	return model.ScoreResult{Raw: raw, Max: max, Normalized: normalized}, nil
}
