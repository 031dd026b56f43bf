package classify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/wisbric/routeguard/internal/telemetry"
)

const complexitySystemPrompt = `You are a query complexity scorer for a data analytics platform.
Score the cognitive complexity of the user's query on a continuous scale from 0 to 1:
- 0.0-0.35: simple, a single lookup or trivial aggregation
- 0.35-0.65: medium, a small amount of reasoning or a few joined steps
- 0.65-0.85: complex, multi-step reasoning, comparisons across dimensions
- 0.85-1.0: expert, open-ended analysis, modeling, or deep causal reasoning

Respond with a single JSON object: {"score": <0..1>, "level": "<simple|medium|complex|expert>", "factors": ["<short factor>", ...]}`

// complexKeywords and mediumKeywords drive the heuristic fallback score.
var complexKeywords = []string{
	"root cause", "causal", "why does", "multi-step", "optimi", "trade-off",
	"simulate", "forecast", "predict", "correlation", "regression",
	"statistically significant", "hypothesis", "confound", "counterfactual",
	"sensitivity analysis",
}

var mediumKeywords = []string{
	"compare", "trend", "group by", "join", "aggregate", "breakdown",
	"month over month", "year over year", "top 10", "rank", "distribution",
	"segment", "cohort", "outlier",
}

// ruleBasedComplexityScore is the deterministic fallback: a baseline plus
// bonuses for complex/medium reasoning keywords and query length.
func ruleBasedComplexityScore(query string) float64 {
	lower := strings.ToLower(query)
	score := 0.20

	for _, kw := range complexKeywords {
		if strings.Contains(lower, kw) {
			score += 0.08
		}
	}
	for _, kw := range mediumKeywords {
		if strings.Contains(lower, kw) {
			score += 0.04
		}
	}

	words := len(strings.Fields(query))
	switch {
	case words >= 50:
		score += 0.10
	case words >= 25:
		score += 0.05
	}

	if score > 1 {
		score = 1
	}
	return score
}

func ruleBasedComplexityClassify(query string, simpleMax, mediumMax, complexMax float64) ComplexityResult {
	score := ruleBasedComplexityScore(query)
	return ComplexityResult{
		Score:      score,
		Level:      BucketComplexity(score, simpleMax, mediumMax, complexMax),
		Confidence: 0.65,
	}
}

type complexityReply struct {
	Score   float64  `json:"score"`
	Level   string   `json:"level"`
	Factors []string `json:"factors"`
}

// OllamaComplexityScorer is the SLM-backed complexity scorer, falling back to
// the heuristic scorer on any transport or parse failure. An out-of-range
// score from the backend is clamped to [0,1].
type OllamaComplexityScorer struct {
	client     *ollamaClient
	model      string
	simpleMax  float64
	mediumMax  float64
	complexMax float64
	logger     *slog.Logger
}

// NewOllamaComplexityScorer creates an SLM-backed complexity scorer. The
// bucket thresholds must match the ones used elsewhere in the system so a
// score and its level always agree.
func NewOllamaComplexityScorer(baseURL, model string, timeout time.Duration, simpleMax, mediumMax, complexMax float64, logger *slog.Logger) *OllamaComplexityScorer {
	return &OllamaComplexityScorer{
		client:     newOllamaClient(baseURL, timeout),
		model:      model,
		simpleMax:  simpleMax,
		mediumMax:  mediumMax,
		complexMax: complexMax,
		logger:     logger,
	}
}

func (c *OllamaComplexityScorer) fallback(query string) ComplexityResult {
	telemetry.ClassifierFallbacksTotal.WithLabelValues("complexity").Inc()
	return ruleBasedComplexityClassify(query, c.simpleMax, c.mediumMax, c.complexMax)
}

// Score implements ComplexityScorer.
func (c *OllamaComplexityScorer) Score(ctx context.Context, query string) (ComplexityResult, error) {
	truncated := query
	if len(truncated) > 2000 {
		truncated = truncated[:2000]
	}

	raw, err := c.client.chat(ctx, c.model, complexitySystemPrompt, truncated)
	if err != nil {
		c.logger.Warn("complexity scorer backend failed, using heuristic fallback", "error", err)
		return c.fallback(query), nil
	}

	obj, ok := firstJSONObject(raw)
	if !ok {
		c.logger.Warn("complexity scorer returned no JSON object, using heuristic fallback")
		return c.fallback(query), nil
	}

	var reply complexityReply
	if err := json.Unmarshal([]byte(obj), &reply); err != nil {
		c.logger.Warn("complexity scorer returned unparsable JSON, using heuristic fallback", "error", err)
		return c.fallback(query), nil
	}

	score := reply.Score
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}

	return ComplexityResult{
		Score:      score,
		Level:      BucketComplexity(score, c.simpleMax, c.mediumMax, c.complexMax),
		Confidence: 0.82,
	}, nil
}
