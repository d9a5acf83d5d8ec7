package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
)

func fourOptions() []model.Option {
	return []model.Option{
		{ID: "a", Text: "lowest", Score: 1},
		{ID: "b", Text: "low", Score: 2},
		{ID: "c", Text: "high", Score: 3},
		{ID: "d", Text: "highest", Score: 4},
	}
}

// testQuestions is a four-question fixture: two willingness, two ability, one
// of them a knockout time-horizon question.
func testQuestions() []model.Question {
	return []model.Question{
		{ID: "q1", Text: "How would you react to a 20% loss?", Weight: 1, Category: model.CategoryWillingness, Options: fourOptions()},
		{ID: "q2", Text: "What is your investment time horizon?", Weight: 2, Category: model.CategoryAbility, Knockout: true, Options: fourOptions()},
		{ID: "q3", Text: "How much risk do you want to take?", Weight: 1, Category: model.CategoryWillingness, Options: fourOptions()},
		{ID: "q4", Text: "How stable is your income?", Weight: 1, Category: model.CategoryAbility, Options: fourOptions()},
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name           string
		responses      model.ResponseSet
		wantRaw        float64
		wantMax        float64
		wantNormalized float64
	}{
		{
			name:           "all lowest",
			responses:      model.ResponseSet{"q1": "a", "q2": "a", "q3": "a", "q4": "a"},
			wantRaw:        5,
			wantMax:        20,
			wantNormalized: 0.25,
		},
		{
			name:           "all highest",
			responses:      model.ResponseSet{"q1": "d", "q2": "d", "q3": "d", "q4": "d"},
			wantRaw:        20,
			wantMax:        20,
			wantNormalized: 1,
		},
		{
			name:           "mixed",
			responses:      model.ResponseSet{"q1": "b", "q2": "c", "q3": "a", "q4": "d"},
			wantRaw:        13,
			wantMax:        20,
			wantNormalized: 0.65,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Score(testQuestions(), tt.responses)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantRaw, got.Raw, 1e-9)
			assert.InDelta(t, tt.wantMax, got.Max, 1e-9)
			assert.InDelta(t, tt.wantNormalized, got.Normalized, 1e-9)
		})
	}
}

func TestScoreTwoQuestionExample(t *testing.T) {
	questions := []model.Question{
		{ID: "q1", Weight: 1, Category: model.CategoryWillingness, Options: fourOptions()},
		{ID: "q2", Weight: 1, Category: model.CategoryAbility, Options: fourOptions()},
	}
	got, err := Score(questions, model.ResponseSet{"q1": "a", "q2": "a"})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got.Raw, 1e-9)
	assert.InDelta(t, 8.0, got.Max, 1e-9)
	assert.InDelta(t, 0.25, got.Normalized, 1e-9)
}

func TestScoreIncompleteResponses(t *testing.T) {
	tests := []struct {
		name        string
		responses   model.ResponseSet
		wantMissing []string
	}{
		{
			name:        "missing answers",
			responses:   model.ResponseSet{"q1": "a", "q3": "b"},
			wantMissing: []string{"q2", "q4"},
		},
		{
			name:        "unknown option counts as missing",
			responses:   model.ResponseSet{"q1": "a", "q2": "zz", "q3": "b", "q4": "c"},
			wantMissing: []string{"q2"},
		},
		{
			name:        "empty set",
			responses:   model.ResponseSet{},
			wantMissing: []string{"q1", "q2", "q3", "q4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Score(testQuestions(), tt.responses)
			require.Error(t, err)
			var incomplete *IncompleteResponseError
			require.ErrorAs(t, err, &incomplete)
			assert.Equal(t, tt.wantMissing, incomplete.Missing)
		})
	}
}

func TestScoreZeroMax(t *testing.T) {
	questions := []model.Question{
		{ID: "q1", Weight: 1, Category: model.CategoryWillingness, Options: []model.Option{{ID: "a", Score: 0}}},
	}
	got, err := Score(questions, model.ResponseSet{"q1": "a"})
	require.NoError(t, err)
	assert.Zero(t, got.Normalized)
}

func TestScoreOrderInvariant(t *testing.T) {
	questions := testQuestions()
	responses := model.ResponseSet{"q1": "b", "q2": "c", "q3": "a", "q4": "d"}

	forward, err := Score(questions, responses)
	require.NoError(t, err)

	reversed := make([]model.Question, len(questions))
	for i, q := range questions {
		reversed[len(questions)-1-i] = q
	}
	backward, err := Score(reversed, responses)
	require.NoError(t, err)

	assert.Equal(t, forward, backward)
}

func TestScoreMonotonic(t *testing.T) {
	// Upgrading a single answer never lowers the normalized score.
	questions := testQuestions()
	base := model.ResponseSet{"q1": "b", "q2": "b", "q3": "b", "q4": "b"}
	baseResult, err := Score(questions, base)
	require.NoError(t, err)

	for _, id := range []string{"q1", "q2", "q3", "q4"} {
		upgraded := model.ResponseSet{}
		for k, v := range base {
			upgraded[k] = v
		}
		upgraded[id] = "c"
		got, err := Score(questions, upgraded)
		require.NoError(t, err)
		assert.Greater(t, got.Normalized, baseResult.Normalized, "upgrading %s", id)
	}
}
