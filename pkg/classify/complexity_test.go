package classify

import "testing"

func TestRuleBasedComplexityScore_Baseline(t *testing.T) {
	score := ruleBasedComplexityScore("hi")
	if score != 0.20 {
		t.Errorf("score = %f, want 0.20", score)
	}
}

func TestRuleBasedComplexityScore_ComplexKeywordBonus(t *testing.T) {
	score := ruleBasedComplexityScore("what is the root cause of this regression")
	if score <= 0.20 {
		t.Errorf("score = %f, expected bonus above baseline", score)
	}
}

func TestRuleBasedComplexityScore_LengthBonus(t *testing.T) {
	words := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		words = append(words, "word")
	}
	long := ""
	for i, w := range words {
		if i > 0 {
			long += " "
		}
		long += w
	}
	score := ruleBasedComplexityScore(long)
	if score < 0.30 {
		t.Errorf("score = %f, expected length bonus applied", score)
	}
}

func TestRuleBasedComplexityScore_ClampedToOne(t *testing.T) {
	query := "root cause causal why does multi-step optimi trade-off simulate forecast predict correlation regression statistically significant hypothesis confound counterfactual sensitivity analysis"
	score := ruleBasedComplexityScore(query)
	if score > 1 {
		t.Errorf("score = %f, must be clamped to 1", score)
	}
}

func TestRuleBasedComplexityClassify_BucketAgreesWithScore(t *testing.T) {
	result := ruleBasedComplexityClassify("hi", 0.35, 0.65, 0.85)
	if result.Level != ComplexitySimple {
		t.Errorf("level = %s, want simple for baseline score", result.Level)
	}
	if result.Confidence != 0.65 {
		t.Errorf("confidence = %f, want 0.65 on fallback", result.Confidence)
	}
}

func TestBucketComplexity(t *testing.T) {
	tests := []struct {
		score float64
		want  ComplexityLevel
	}{
		{0.0, ComplexitySimple},
		{0.35, ComplexitySimple},
		{0.36, ComplexityMedium},
		{0.65, ComplexityMedium},
		{0.66, ComplexityComplex},
		{0.85, ComplexityComplex},
		{0.86, ComplexityExpert},
		{1.0, ComplexityExpert},
	}
	for _, tt := range tests {
		got := BucketComplexity(tt.score, 0.35, 0.65, 0.85)
		if got != tt.want {
			t.Errorf("BucketComplexity(%f) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
