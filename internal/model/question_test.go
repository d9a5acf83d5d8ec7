package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuestionnaire() Questionnaire {
	return Questionnaire{
		ID:   "standard-v1",
		Name: "Standard Risk Profile",
		Questions: []Question{
			{
				ID: "q1", Text: "How would you react to a 20% loss?", Weight: 2,
				Category: CategoryWillingness,
				Options: []Option{
					{ID: "a", Text: "Sell everything", Score: 1},
					{ID: "b", Text: "Hold", Score: 2},
				},
			},
			{
				ID: "q2", Text: "What is your investment time horizon?", Weight: 1,
				Category: CategoryAbility, Knockout: true,
				Options: []Option{
					{ID: "a", Text: "Under 2 years", Score: 1},
					{ID: "b", Text: "Over 10 years", Score: 4},
				},
			},
		},
	}
}

func TestDefaultCategory(t *testing.T) {
	tests := []struct {
		name string
		text string
		want QuestionCategory
	}{
		{"horizon keyword", "What is your investment horizon?", CategoryAbility},
		{"time keyword", "How much time until you need the money?", CategoryAbility},
		{"withdraw keyword", "When do you plan to withdraw funds?", CategoryAbility},
		{"income keyword", "How stable is your income?", CategoryAbility},
		{"years keyword", "In how many years will you retire?", CategoryAbility},
		{"case insensitive", "WHAT IS YOUR INVESTMENT HORIZON?", CategoryAbility},
		{"no keyword", "How would you react to a 20% loss?", CategoryWillingness},
		{"empty text", "", CategoryWillingness},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultCategory(tt.text))
		})
	}
}

func TestDefaultKnockout(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"horizon keyword", "What is your investment horizon?", true},
		{"time keyword", "How much time until retirement?", true},
		{"case insensitive", "INVESTMENT TIME HORIZON?", true},
		{"income is not a knockout cue", "How stable is your income?", false},
		{"years is not a knockout cue", "In how many years will you retire?", false},
		{"no keyword", "How would you react to a 20% loss?", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultKnockout(tt.text))
		})
	}
}

func TestApplyDefaultsFillsUntaggedQuestions(t *testing.T) {
	qn := Questionnaire{
		ID: "legacy-v1",
		Questions: []Question{
			{ID: "q1", Text: "What is your investment time horizon?", Weight: 1,
				Options: []Option{{ID: "a", Score: 1}}},
			{ID: "q2", Text: "How stable is your income?", Weight: 1,
				Options: []Option{{ID: "a", Score: 1}}},
			{ID: "q3", Text: "How would you react to a 20% loss?", Weight: 1,
				Options: []Option{{ID: "a", Score: 1}}},
		},
	}

	qn.ApplyDefaults()

	assert.Equal(t, CategoryAbility, qn.Questions[0].Category)
	assert.True(t, qn.Questions[0].Knockout, "time-horizon ability questions default to knockout")

	assert.Equal(t, CategoryAbility, qn.Questions[1].Category)
	assert.False(t, qn.Questions[1].Knockout, "income questions are ability but not knockout")

	assert.Equal(t, CategoryWillingness, qn.Questions[2].Category)
	assert.False(t, qn.Questions[2].Knockout)
}

func TestApplyDefaultsPreservesExplicitTags(t *testing.T) {
	qn := Questionnaire{
		ID: "tagged-v1",
		Questions: []Question{
			// Authored tags win over what the text would imply.
			{ID: "q1", Text: "What is your investment time horizon?", Weight: 1,
				Category: CategoryWillingness,
				Options:  []Option{{ID: "a", Score: 1}}},
			{ID: "q2", Text: "How would you react to a 20% loss?", Weight: 1,
				Category: CategoryAbility, Knockout: true,
				Options: []Option{{ID: "a", Score: 1}}},
		},
	}

	qn.ApplyDefaults()

	assert.Equal(t, CategoryWillingness, qn.Questions[0].Category)
	assert.False(t, qn.Questions[0].Knockout,
		"knockout defaulting applies only to ability questions")
	assert.Equal(t, CategoryAbility, qn.Questions[1].Category)
	assert.True(t, qn.Questions[1].Knockout)
}

func TestValidateAcceptsWellFormedQuestionnaire(t *testing.T) {
	qn := validQuestionnaire()
	require.NoError(t, qn.Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Questionnaire)
		wantMsg string
	}{
		{"missing questionnaire id", func(qn *Questionnaire) { qn.ID = "" }, "missing id"},
		{"no questions", func(qn *Questionnaire) { qn.Questions = nil }, "no questions"},
		{"empty question id", func(qn *Questionnaire) { qn.Questions[0].ID = "" }, "empty id"},
		{"duplicate question id", func(qn *Questionnaire) { qn.Questions[1].ID = "q1" }, "duplicate question id"},
		{"zero weight", func(qn *Questionnaire) { qn.Questions[0].Weight = 0 }, "weight must be positive"},
		{"negative weight", func(qn *Questionnaire) { qn.Questions[0].Weight = -1 }, "weight must be positive"},
		{"invalid category", func(qn *Questionnaire) { qn.Questions[0].Category = "balanced" }, "invalid category"},
		{"empty category", func(qn *Questionnaire) { qn.Questions[0].Category = "" }, "invalid category"},
		{"no options", func(qn *Questionnaire) { qn.Questions[0].Options = nil }, "no options"},
		{"empty option id", func(qn *Questionnaire) { qn.Questions[0].Options[0].ID = "" }, "option with empty id"},
		{"duplicate option id", func(qn *Questionnaire) { qn.Questions[0].Options[1].ID = "a" }, "duplicate option id"},
		{"negative option score", func(qn *Questionnaire) { qn.Questions[0].Options[0].Score = -1 }, "negative score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qn := validQuestionnaire()
			tt.mutate(&qn)
			err := qn.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestMaxOptionScore(t *testing.T) {
	q := validQuestionnaire().Questions[1]
	assert.Equal(t, 4, q.MaxOptionScore())
	assert.Zero(t, Question{}.MaxOptionScore())
}

func TestOptionByID(t *testing.T) {
	q := validQuestionnaire().Questions[0]

	opt, ok := q.OptionByID("b")
	require.True(t, ok)
	assert.Equal(t, "Hold", opt.Text)

	_, ok = q.OptionByID("zz")
	assert.False(t, ok)
}
