// Package router implements the decision tree and orchestration that map a
// classified query to an inference tier: the hot path of the system.
package router

import "github.com/wisbric/routeguard/pkg/classify"

// Tier is an inference execution tier.
type Tier string

const (
	TierEdge  Tier = "edge"
	TierSLM   Tier = "slm"
	TierCloud Tier = "cloud"
	TierRLM   Tier = "rlm"
)

// TierModelMap resolves an intent to a model name within one tier, with a
// default fallback for intents it doesn't name explicitly. The decision tree
// never inspects these contents; only ModelConfig.ResolveModel does.
type TierModelMap map[classify.Intent]string

// ModelConfig is the full per-tier model and latency-budget configuration.
// It is an opaque configuration object from the decision tree's perspective.
type ModelConfig struct {
	Models          map[Tier]TierModelMap
	LatencyBudgetMS map[Tier]int
}

// DefaultModelConfig builds a ModelConfig from the flat config fields the
// process is started with.
func DefaultModelConfig(cloudDefault, cloudSQL, cloudAnalysis, rlmModel, edgeModel, slmModel string, latencyEdge, latencySLM, latencyCloud, latencyRLM int) ModelConfig {
	return ModelConfig{
		Models: map[Tier]TierModelMap{
			TierEdge: {
				"default": edgeModel,
			},
			TierSLM: {
				"default": slmModel,
			},
			TierCloud: {
				"default":            cloudDefault,
				classify.IntentSQL:  cloudSQL,
				classify.IntentEDA:  cloudAnalysis,
				classify.IntentCode: cloudSQL,
			},
			TierRLM: {
				"default": rlmModel,
			},
		},
		LatencyBudgetMS: map[Tier]int{
			TierEdge:  latencyEdge,
			TierSLM:   latencySLM,
			TierCloud: latencyCloud,
			TierRLM:   latencyRLM,
		},
	}
}

// ResolveModel looks up the model name for a tier/intent pair, falling back
// to the tier's default entry.
func (m ModelConfig) ResolveModel(tier Tier, intent classify.Intent) string {
	tierMap := m.Models[tier]
	if name, ok := tierMap[intent]; ok {
		return name
	}
	return tierMap["default"]
}

// LatencyBudget returns the configured latency budget in milliseconds for a
// tier.
func (m ModelConfig) LatencyBudget(tier Tier) int {
	return m.LatencyBudgetMS[tier]
}

// Classification is the combined output of the three classifiers for one
// query.
type Classification struct {
	Intent           classify.Intent           `json:"intent"`
	IntentConfidence float64                   `json:"intent_confidence"`
	Complexity       classify.ComplexityLevel  `json:"complexity"`
	ComplexityScore  float64                   `json:"complexity_score"`
	ComplexityConf   float64                   `json:"complexity_confidence"`
	Sensitivity      classify.SensitivityLevel `json:"sensitivity"`
	SensitivityConf  float64                   `json:"sensitivity_confidence"`
}

// Confidence is the overall confidence of a Classification: the minimum of
// the three individual confidences.
func (c Classification) Confidence() float64 {
	min := c.IntentConfidence
	if c.ComplexityConf < min {
		min = c.ComplexityConf
	}
	if c.SensitivityConf < min {
		min = c.SensitivityConf
	}
	return min
}

// RouteDecision is the outcome of routing one query.
type RouteDecision struct {
	Tier            Tier                 `json:"tier"`
	Model           string               `json:"model"`
	LatencyBudgetMS int                  `json:"latency_budget_ms"`
	Reason          string               `json:"reason"`
	Intent          classify.Intent      `json:"intent"`
	IntentConf      float64              `json:"intent_confidence"`
	Complexity      classify.ComplexityLevel `json:"complexity"`
	ComplexityScore float64              `json:"complexity_score"`
	Sensitivity     classify.SensitivityLevel `json:"sensitivity"`
	Confidence      float64              `json:"confidence"`
	Cached          bool                 `json:"cached"`
}

// Query is the input to a routing or classification call.
type Query struct {
	Text          string
	ContextTokens int
	ForceTier     Tier
	Metadata      map[string]any
}
