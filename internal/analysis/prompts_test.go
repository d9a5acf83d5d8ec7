package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/allocation"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
)

func TestBuildAnalysisPrompt(t *testing.T) {
	got := buildAnalysisPrompt(analysisInput())

	assert.Contains(t, got, "Computed risk category: moderate")
	assert.Contains(t, got, "Client financial context: stable salaried income")
	assert.Contains(t, got, "Q: What is your investment time horizon?")
	assert.Contains(t, got, "A: over 10 years (score 4 of 4)")
}

func TestBuildAnalysisPromptUnknownOption(t *testing.T) {
	in := analysisInput()
	in.Responses = model.ResponseSet{"q1": "zz"}
	in.ClientContext = ""

	got := buildAnalysisPrompt(in)
	assert.Contains(t, got, "A: zz", "unanswered options fall back to the raw id")
	assert.NotContains(t, got, "Client financial context")
}

func TestBuildAllocationPrompt(t *testing.T) {
	got := buildAllocationPrompt(allocation.GenerationInput{
		Category:     model.RiskAggressive,
		HorizonYears: 12,
		Liquidity:    "low",
		TaxBracket:   "30%",
		Baseline: []model.TargetAllocation{
			{AssetClass: model.AssetEquity, TargetPercent: 75},
			{AssetClass: model.AssetDebt, TargetPercent: 15},
			{AssetClass: model.AssetAlternatives, TargetPercent: 10},
		},
		AllowedAssets: []model.AssetClass{model.AssetEquity, model.AssetDebt, model.AssetAlternatives},
	})

	assert.Contains(t, got, "Risk category: aggressive")
	assert.Contains(t, got, "Time horizon: 12 years")
	assert.Contains(t, got, "Liquidity needs: low")
	assert.Contains(t, got, "Tax bracket: 30%")
	assert.Contains(t, got, "- equity: 75.0%")
	assert.Contains(t, got, "Allowed asset classes: equity, debt, alternatives")
}
