package classify

import (
	"regexp"
	"strings"
)

// piiPatterns catch structured PII that should never leave the tenant's
// on-premises tier regardless of surrounding keyword context.
var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),                // email
	regexp.MustCompile(`\b(?:\+?1[-. ]?)?\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}\b`),            // NANP phone
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                                           // US SSN
	regexp.MustCompile(`\b(?:4\d{3}|5[1-5]\d{2}|3[47]\d{2}|6011)[- ]?\d{4}[- ]?\d{4}[- ]?\d{1,4}\b`), // major-brand card
	regexp.MustCompile(`\b[A-PR-WYa-pr-wy][1-9]\d\s?\d{4}[1-9]\b`),                        // passport-like
}

var restrictedKeywords = []string{
	"ssn", "social security", "medical", "diagnosis", "prescription",
	"salary", "passport", "health record", "patient",
}

var confidentialKeywords = []string{
	"hr", "human resources", "revenue", "pii", "ip address", "compensation",
	"performance review", "termination", "acquisition", "merger",
}

var internalKeywords = []string{
	"internal", "confidential", "roadmap", "headcount", "budget",
	"forecast", "strategy",
}

// RuleBasedSensitivityDetector is the only SensitivityDetector implementation:
// there is no primary backend to fall back from, since routing regulated
// data through an external model would defeat the purpose of classifying it.
type RuleBasedSensitivityDetector struct{}

// NewRuleBasedSensitivityDetector creates a sensitivity detector.
func NewRuleBasedSensitivityDetector() *RuleBasedSensitivityDetector {
	return &RuleBasedSensitivityDetector{}
}

// Detect implements SensitivityDetector. It never performs I/O.
func (d *RuleBasedSensitivityDetector) Detect(query string) SensitivityResult {
	for _, pattern := range piiPatterns {
		if pattern.MatchString(query) {
			return SensitivityResult{Level: SensitivityRestricted, Confidence: 0.98}
		}
	}

	lower := strings.ToLower(query)

	for _, kw := range restrictedKeywords {
		if strings.Contains(lower, kw) {
			return SensitivityResult{Level: SensitivityRestricted, Confidence: 0.90}
		}
	}
	for _, kw := range confidentialKeywords {
		if strings.Contains(lower, kw) {
			return SensitivityResult{Level: SensitivityConfidential, Confidence: 0.82}
		}
	}
	for _, kw := range internalKeywords {
		if strings.Contains(lower, kw) {
			return SensitivityResult{Level: SensitivityInternal, Confidence: 0.75}
		}
	}

	return SensitivityResult{Level: SensitivityPublic, Confidence: 0.88}
}
