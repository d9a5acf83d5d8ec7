package model

import (
	"fmt"
	"strings"
)

// QuestionCategory splits the questionnaire into the two suitability
// dimensions: willingness (stated risk appetite) and ability (capacity to
// bear risk, e.g. time horizon or income stability).
type QuestionCategory string

const (
	CategoryWillingness QuestionCategory = "willingness"
	CategoryAbility     QuestionCategory = "ability"
)

// Option is one selectable answer for a question.
type Option struct {
	ID    string `json:"id" yaml:"id"`
	Text  string `json:"text" yaml:"text"`
	Score int    `json:"score" yaml:"score"`
}

// Question is a single risk-questionnaire question. Category and Knockout are
// authored on the question itself; the keyword heuristics below are applied
// only as load-time defaults for questionnaires that predate the explicit tags.
type Question struct {
	ID       string           `json:"id" yaml:"id"`
	Text     string           `json:"text" yaml:"text"`
	Weight   float64          `json:"weight" yaml:"weight"`
	Category QuestionCategory `json:"category" yaml:"category"`
	Knockout bool             `json:"knockout" yaml:"knockout"`
	Options  []Option         `json:"options" yaml:"options"`
}

// MaxOptionScore returns the highest option score for the question.
func (q Question) MaxOptionScore() int {
	max := 0
	for _, o := range q.Options {
		if o.Score > max {
			max = o.Score
		}
	}
	return max
}

// OptionByID looks up an option by its identifier.
func (q Question) OptionByID(id string) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// abilityKeywords is the legacy keyword set used to default a question's
// category when the authored tag is absent.
var abilityKeywords = []string{"horizon", "time", "withdraw", "income", "years"}

// knockoutKeywords marks time-horizon questions, whose lowest-tier answers
// trigger the conservative knock-out.
var knockoutKeywords = []string{"horizon", "time"}

// DefaultCategory returns the category implied by the question text. Used only
// when loading questionnaires authored without an explicit category tag.
func DefaultCategory(text string) QuestionCategory {
	lower := strings.ToLower(text)
	for _, kw := range abilityKeywords {
		if strings.Contains(lower, kw) {
			return CategoryAbility
		}
	}
	return CategoryWillingness
}

// DefaultKnockout reports whether the question text implies a time-horizon
// question. Load-time default only, like DefaultCategory.
func DefaultKnockout(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range knockoutKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Questionnaire is an ordered set of questions identified by a stable ID.
type Questionnaire struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// ApplyDefaults fills in Category and Knockout for questions that were
// authored without explicit tags.
func (qn *Questionnaire) ApplyDefaults() {
	for i := range qn.Questions {
		q := &qn.Questions[i]
		if q.Category == "" {
			q.Category = DefaultCategory(q.Text)
		}
		if !q.Knockout && q.Category == CategoryAbility && DefaultKnockout(q.Text) {
			q.Knockout = true
		}
	}
}

// Validate checks structural invariants: every question has a positive weight,
// at least one option, a valid category, and unique question/option IDs.
func (qn *Questionnaire) Validate() error {
	if qn.ID == "" {
		return fmt.Errorf("questionnaire: missing id")
	}
	if len(qn.Questions) == 0 {
		return fmt.Errorf("questionnaire %s: no questions", qn.ID)
	}
	seen := make(map[string]bool, len(qn.Questions))
	for _, q := range qn.Questions {
		if q.ID == "" {
			return fmt.Errorf("questionnaire %s: question with empty id", qn.ID)
		}
		if seen[q.ID] {
			return fmt.Errorf("questionnaire %s: duplicate question id %s", qn.ID, q.ID)
		}
		seen[q.ID] = true
		if q.Weight <= 0 {
			return fmt.Errorf("question %s: weight must be positive, got %g", q.ID, q.Weight)
		}
		if q.Category != CategoryWillingness && q.Category != CategoryAbility {
			return fmt.Errorf("question %s: invalid category %q", q.ID, q.Category)
		}
		if len(q.Options) == 0 {
			return fmt.Errorf("question %s: no options", q.ID)
		}
		optSeen := make(map[string]bool, len(q.Options))
		for _, o := range q.Options {
			if o.ID == "" {
				return fmt.Errorf("question %s: option with empty id", q.ID)
			}
			if optSeen[o.ID] {
				return fmt.Errorf("question %s: duplicate option id %s", q.ID, o.ID)
			}
			optSeen[o.ID] = true
			if o.Score < 0 {
				return fmt.Errorf("question %s option %s: negative score", q.ID, o.ID)
			}
		}
	}
	return nil
}

// ResponseSet maps question IDs to the chosen option ID.
type ResponseSet map[string]string
