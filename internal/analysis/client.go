// Package analysis implements the external collaborator calls: behavioral
// reliability analysis for the confidence aggregator and allocation
// perturbation for the allocation builder. Payloads coming back from the
// model are loosely typed; everything is schema-validated here at the
// boundary before it can enter the core, and a validation failure is treated
// as a transient external-service error, never a crash.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/allocation"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/resilience"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/scoring"
	"github.com/akhilrasineni/Risk-Profiling-System/pkg/anthropic"
)

// Config tunes collaborator calls.
type Config struct {
	Model            string  `yaml:"model" mapstructure:"model"`
	MaxTokens        int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSec   float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	CircuitFailures  int     `yaml:"circuit_failures" mapstructure:"circuit_failures"`
	CircuitResetSecs int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// Collaborator operation names. Each gets its own circuit breaker so a
// misbehaving allocation collaborator does not block behavioral analysis.
const (
	opBehavior   = "behavior_analysis"
	opAllocation = "allocation_generation"
)

// Client calls the external collaborators over the Anthropic API. It
// implements scoring.BehaviorAnalyzer and allocation.Generator.
type Client struct {
	llm      anthropic.Client
	cfg      Config
	limiter  *rate.Limiter
	breakers *resilience.ServiceBreakers
	retry    resilience.RetryConfig
	validate *validator.Validate
}

// NewClient creates a collaborator client.
func NewClient(llm anthropic.Client, cfg Config) *Client {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 2
	}
	retry := resilience.FromRetryConfig(cfg.MaxAttempts, cfg.InitialBackoffMs, cfg.MaxBackoffMs, 0, -1)

	return &Client{
		llm:      llm,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		breakers: resilience.NewServiceBreakers(resilience.FromCircuitConfig(cfg.CircuitFailures, cfg.CircuitResetSecs)),
		retry:    retry,
		validate: validator.New(),
	}
}

// behaviorPayload is the collaborator's analysis response shape.
type behaviorPayload struct {
	Reliability int    `json:"reliability" validate:"gte=0,lte=100"`
	Consistency int    `json:"consistency" validate:"gte=0,lte=100"`
	Stability   int    `json:"stability" validate:"gte=0,lte=100"`
	Summary     string `json:"summary"`
}

// Analyze asks the collaborator for a behavioral reliability assessment of
// the full response transcript. The caller (the confidence aggregator)
// substitutes the neutral fallback on error.
func (c *Client) Analyze(ctx context.Context, in scoring.AnalysisInput) (*model.BehaviorAnalysis, error) {
	prompt := buildAnalysisPrompt(in)
	mdl := c.model(in.Model)

	payload, err := callJSON[behaviorPayload](ctx, c, opBehavior, mdl, analysisSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	return &model.BehaviorAnalysis{
		Reliability: payload.Reliability,
		Consistency: payload.Consistency,
		Stability:   payload.Stability,
		Summary:     payload.Summary,
	}, nil
}

// allocationPayload is the collaborator's allocation response shape.
type allocationPayload struct {
	Targets []struct {
		AssetClass    string  `json:"asset_class" validate:"required"`
		TargetPercent float64 `json:"target_percent" validate:"gte=0,lte=100"`
	} `json:"target_allocations" validate:"required,min=1,dive"`
	RebalancingCadence string `json:"rebalancing_cadence"`
	Narrative          string `json:"narrative_text"`
}

// GenerateAllocation asks the collaborator to perturb the baseline targets
// for the client's horizon, liquidity needs and tax bracket. The allocation
// builder validates the returned set again and falls back to the baseline if
// it does not hold up.
func (c *Client) GenerateAllocation(ctx context.Context, in allocation.GenerationInput) (*allocation.Generated, error) {
	prompt := buildAllocationPrompt(in)
	mdl := c.model(in.Model)

	payload, err := callJSON[allocationPayload](ctx, c, opAllocation, mdl, allocationSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	out := &allocation.Generated{
		RebalanceCadence: payload.RebalancingCadence,
		Narrative:        payload.Narrative,
	}
	for _, t := range payload.Targets {
		out.Targets = append(out.Targets, model.TargetAllocation{
			AssetClass:    model.AssetClass(strings.ToLower(t.AssetClass)),
			TargetPercent: t.TargetPercent,
		})
	}
	return out, nil
}

// model resolves the explicit model parameter, falling back to the configured
// default. Model choice is always threaded through the call, never ambient.
func (c *Client) model(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return c.cfg.Model
}

// callJSON runs one rate-limited, circuit-broken, retried collaborator call
// and decodes + schema-validates the JSON payload.
func callJSON[T any](ctx context.Context, c *Client, op, mdl, system, prompt string) (*T, error) {
	retry := c.retry
	retry.OnRetry = resilience.RetryLogger("anthropic", op)
	breaker := c.breakers.Get(op)

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*T, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "analysis: rate limit wait")
		}

		return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (*T, error) {
			resp, err := c.llm.CreateMessage(ctx, anthropic.MessageRequest{
				Model:     mdl,
				MaxTokens: c.cfg.MaxTokens,
				System:    system,
				Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
			})
			if err != nil {
				return nil, classifyErr(err)
			}
			resp.Usage.LogCost(mdl, op)

			var payload T
			cleaned := cleanJSON(resp.Text())
			if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
				return nil, resilience.NewTransientError(eris.Wrap(err, "analysis: decode payload"), 0)
			}
			if err := c.validate.Struct(&payload); err != nil {
				return nil, resilience.NewTransientError(eris.Wrap(err, "analysis: payload failed schema validation"), 0)
			}
			return &payload, nil
		})
	})
}

// classifyErr marks retryable SDK failures as transient so the retry loop
// and circuit breaker treat them correctly.
func classifyErr(err error) error {
	if resilience.IsTransient(err) {
		return err
	}
	msg := err.Error()
	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		if strings.Contains(msg, fmt.Sprintf("%d", code)) && resilience.IsTransientHTTPStatus(code) {
			return resilience.NewTransientError(err, code)
		}
	}
	return err
}

// cleanJSON extracts a JSON object from text that may contain markdown code
// fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
