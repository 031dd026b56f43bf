package router

import (
	"fmt"

	"github.com/wisbric/routeguard/pkg/classify"
)

// decide is the pure decision tree for classified queries; forceTier and
// Degraded build the only other decisions. Rules are evaluated top-down,
// first match wins. The safety gate is
// absolute — nothing upstream of this function (forced tier, cache, low
// confidence) can override it.
func decide(c Classification, confidenceThreshold float64) (Tier, string) {
	if c.Sensitivity == classify.SensitivityRestricted || c.Sensitivity == classify.SensitivityConfidential {
		if c.Complexity == classify.ComplexityExpert {
			return TierRLM, fmt.Sprintf("safety gate: sensitivity=%s complexity=expert", c.Sensitivity)
		}
		return TierSLM, fmt.Sprintf("safety gate: sensitivity=%s", c.Sensitivity)
	}

	if c.IntentConfidence < confidenceThreshold {
		return TierCloud, fmt.Sprintf("low intent confidence: %.2f < %.2f", c.IntentConfidence, confidenceThreshold)
	}

	if c.Complexity == classify.ComplexitySimple && c.ComplexityScore <= 0.35 {
		return TierEdge, "simple query, high confidence"
	}

	switch c.Complexity {
	case classify.ComplexitySimple, classify.ComplexityMedium:
		return TierCloud, fmt.Sprintf("complexity=%s", c.Complexity)
	case classify.ComplexityComplex:
		return TierCloud, "complexity=complex"
	case classify.ComplexityExpert:
		return TierRLM, "complexity=expert, unregulated data"
	}

	return TierCloud, "unmatched rule, defaulting to cloud"
}

// forceTier synthesizes a decision for an explicit tier override, unless the
// safety gate would apply to this classification — in which case the safety
// gate wins and the override is ignored.
func forceTier(c Classification, tier Tier, models ModelConfig) (RouteDecision, bool) {
	if c.Sensitivity == classify.SensitivityRestricted || c.Sensitivity == classify.SensitivityConfidential {
		return RouteDecision{}, false
	}

	return RouteDecision{
		Tier:            tier,
		Model:           models.ResolveModel(tier, classify.IntentGeneral),
		LatencyBudgetMS: models.LatencyBudget(tier),
		Reason:          "forced",
		Intent:          classify.IntentGeneral,
		IntentConf:      1.0,
		Complexity:      c.Complexity,
		ComplexityScore: c.ComplexityScore,
		Sensitivity:     c.Sensitivity,
		Confidence:      1.0,
	}, true
}
