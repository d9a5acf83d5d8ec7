package analysis

import (
	"fmt"
	"strings"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/allocation"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/scoring"
)

const analysisSystemPrompt = `You are a behavioral analyst reviewing a retail investor's risk questionnaire transcript.
Assess how reliable the stated answers are as a predictor of actual investment behavior.
Respond with a single JSON object:
{"reliability": <0-100>, "consistency": <0-100>, "stability": <0-100>, "summary": "<one paragraph>"}
reliability is your holistic confidence in the classification; consistency measures internal
agreement between answers; stability measures how likely the answers are to hold over time.
Respond with JSON only, no prose outside the object.`

const allocationSystemPrompt = `You are an investment policy assistant. Given a baseline asset allocation for a risk
category, adjust each target by at most 10 percentage points to account for the client's
time horizon, liquidity needs and tax bracket. Use only the allowed asset classes and make
the targets sum to exactly 100. Respond with a single JSON object:
{"target_allocations": [{"asset_class": "...", "target_percent": <number>}, ...],
 "rebalancing_cadence": "<quarterly|semi-annually|annually>",
 "narrative_text": "<short rationale>"}
Respond with JSON only, no prose outside the object.`

// buildAnalysisPrompt renders the category, the full response transcript and
// the client context for the behavioral analyst.
func buildAnalysisPrompt(in scoring.AnalysisInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Computed risk category: %s\n\n", in.Category)
	if in.ClientContext != "" {
		fmt.Fprintf(&b, "Client financial context: %s\n\n", in.ClientContext)
	}
	b.WriteString("Questionnaire transcript:\n")
	for _, q := range in.Questions {
		optID := in.Responses[q.ID]
		opt, ok := q.OptionByID(optID)
		answer := optID
		if ok {
			answer = fmt.Sprintf("%s (score %d of %d)", opt.Text, opt.Score, q.MaxOptionScore())
		}
		fmt.Fprintf(&b, "- Q: %s\n  A: %s\n", q.Text, answer)
	}
	return b.String()
}

// buildAllocationPrompt renders the baseline targets and client constraints
// for the allocation collaborator.
func buildAllocationPrompt(in allocation.GenerationInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Risk category: %s\n", in.Category)
	fmt.Fprintf(&b, "Time horizon: %d years\n", in.HorizonYears)
	if in.Liquidity != "" {
		fmt.Fprintf(&b, "Liquidity needs: %s\n", in.Liquidity)
	}
	if in.TaxBracket != "" {
		fmt.Fprintf(&b, "Tax bracket: %s\n", in.TaxBracket)
	}
	b.WriteString("\nBaseline allocation:\n")
	for _, t := range in.Baseline {
		fmt.Fprintf(&b, "- %s: %.1f%%\n", t.AssetClass, t.TargetPercent)
	}
	b.WriteString("\nAllowed asset classes: ")
	classes := make([]string, len(in.AllowedAssets))
	for i, a := range in.AllowedAssets {
		classes[i] = string(a)
	}
	b.WriteString(strings.Join(classes, ", "))
	b.WriteString("\n")
	return b.String()
}
