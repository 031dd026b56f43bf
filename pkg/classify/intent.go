package classify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/wisbric/routeguard/internal/telemetry"
)

const intentSystemPrompt = `You are a query intent classifier for a data analytics platform.
Classify the user's query into exactly one of these intents:
- EDA: exploratory data analysis, summary statistics, distributions
- SQL: a request that is itself (or trivially becomes) a SQL query
- FORECAST: predicting future values, trend projection
- ANOMALY: outlier or anomaly detection
- REPORT: generating a formatted report or summary document
- VISUALISE: requesting a chart, plot, or dashboard
- CLEAN: data cleaning, deduplication, normalization
- MODEL: building or evaluating a machine learning model
- EXPLAIN: asking why something happened, causal explanation
- SEARCH: looking up or retrieving specific records
- CODE: asking for source code or a script
- GENERAL: anything that does not fit the above

Respond with a single JSON object: {"intent": "<LABEL>", "confidence": <0..1>, "reasoning": "<short reason>"}`

// intentKeywordRules mirrors the rule-based fallback: first matching rule
// wins, in priority order.
var intentKeywordRules = []struct {
	label    Intent
	keywords []string
}{
	{IntentForecast, []string{"forecast", "predict", "projection", "next quarter", "next month", "trend line"}},
	{IntentAnomaly, []string{"anomaly", "outlier", "unusual", "spike", "deviation"}},
	{IntentReport, []string{"report", "summary document", "executive summary"}},
	{IntentVisualise, []string{"chart", "plot", "graph", "visualis", "visualiz", "dashboard"}},
	{IntentClean, []string{"clean", "dedupe", "deduplicate", "normalize", "normalise", "missing values"}},
	{IntentModel, []string{"train a model", "machine learning", "classifier", "regression model", "predict using"}},
	{IntentExplain, []string{"why did", "explain why", "root cause", "what caused"}},
	{IntentSearch, []string{"find the record", "look up", "search for", "where is"}},
	{IntentSQL, []string{"select ", "sql query", "write a query", "join "}},
	{IntentEDA, []string{"summary statistics", "distribution of", "explore the data", "describe the data"}},
	{IntentCode, []string{"write a script", "write code", "python function", "implement a"}},
}

// ruleBasedIntentClassify is the deterministic fallback used whenever the
// primary backend fails or returns an unusable response.
func ruleBasedIntentClassify(query string) IntentResult {
	lower := strings.ToLower(query)
	for _, rule := range intentKeywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return IntentResult{Label: rule.label, Confidence: 0.70}
			}
		}
	}
	return IntentResult{Label: IntentGeneral, Confidence: 0.60}
}

var validIntents = map[Intent]struct{}{
	IntentEDA: {}, IntentSQL: {}, IntentForecast: {}, IntentAnomaly: {},
	IntentReport: {}, IntentVisualise: {}, IntentClean: {}, IntentModel: {},
	IntentExplain: {}, IntentSearch: {}, IntentCode: {}, IntentGeneral: {},
}

// OllamaIntentClassifier is the SLM-backed intent classifier, falling back to
// the rule-based classifier on any transport, parse, or validation failure.
type OllamaIntentClassifier struct {
	client *ollamaClient
	model  string
	logger *slog.Logger
}

// NewOllamaIntentClassifier creates an SLM-backed intent classifier.
func NewOllamaIntentClassifier(baseURL, model string, timeout time.Duration, logger *slog.Logger) *OllamaIntentClassifier {
	return &OllamaIntentClassifier{
		client: newOllamaClient(baseURL, timeout),
		model:  model,
		logger: logger,
	}
}

type intentReply struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Classify implements IntentClassifier.
func (c *OllamaIntentClassifier) Classify(ctx context.Context, query string) (IntentResult, error) {
	truncated := query
	if len(truncated) > 2000 {
		truncated = truncated[:2000]
	}

	raw, err := c.client.chat(ctx, c.model, intentSystemPrompt, truncated)
	if err != nil {
		c.logger.Warn("intent classifier backend failed, using rule-based fallback", "error", err)
		telemetry.ClassifierFallbacksTotal.WithLabelValues("intent").Inc()
		return ruleBasedIntentClassify(query), nil
	}

	obj, ok := firstJSONObject(raw)
	if !ok {
		c.logger.Warn("intent classifier returned no JSON object, using rule-based fallback")
		telemetry.ClassifierFallbacksTotal.WithLabelValues("intent").Inc()
		return ruleBasedIntentClassify(query), nil
	}

	var reply intentReply
	if err := json.Unmarshal([]byte(obj), &reply); err != nil {
		c.logger.Warn("intent classifier returned unparsable JSON, using rule-based fallback", "error", err)
		telemetry.ClassifierFallbacksTotal.WithLabelValues("intent").Inc()
		return ruleBasedIntentClassify(query), nil
	}

	label := Intent(strings.ToUpper(strings.TrimSpace(reply.Intent)))
	if _, ok := validIntents[label]; !ok {
		c.logger.Warn("intent classifier returned unknown label, using rule-based fallback", "label", reply.Intent)
		telemetry.ClassifierFallbacksTotal.WithLabelValues("intent").Inc()
		return ruleBasedIntentClassify(query), nil
	}

	confidence := reply.Confidence
	if confidence < 0 || confidence > 1 {
		c.logger.Warn("intent classifier returned out-of-range confidence, using rule-based fallback", "confidence", confidence)
		telemetry.ClassifierFallbacksTotal.WithLabelValues("intent").Inc()
		return ruleBasedIntentClassify(query), nil
	}

	return IntentResult{Label: label, Confidence: confidence}, nil
}
