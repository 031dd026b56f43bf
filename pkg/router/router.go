package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wisbric/routeguard/internal/audit"
	"github.com/wisbric/routeguard/internal/telemetry"
	"github.com/wisbric/routeguard/pkg/classify"
)

// Config is the Router's runtime configuration: thresholds the decision tree
// and classifiers are built around.
type Config struct {
	ConfidenceThreshold float64
	SimpleMax           float64
	MediumMax           float64
	ComplexMax          float64
	CacheTTL            time.Duration
}

// Router orchestrates classification, the decision tree, and the decision
// cache. It is the runtime hot path of the service.
type Router struct {
	intent      classify.IntentClassifier
	complexity  classify.ComplexityScorer
	sensitivity classify.SensitivityDetector
	models      ModelConfig
	cache       *decisionCache
	audit       *audit.Writer
	logger      *slog.Logger
	cfg         Config
}

// New creates a Router.
func New(intent classify.IntentClassifier, complexity classify.ComplexityScorer, sensitivity classify.SensitivityDetector, models ModelConfig, rdb *redis.Client, auditWriter *audit.Writer, logger *slog.Logger, cfg Config) *Router {
	return &Router{
		intent:      intent,
		complexity:  complexity,
		sensitivity: sensitivity,
		models:      models,
		cache:       newDecisionCache(rdb, cfg.CacheTTL, logger),
		audit:       auditWriter,
		logger:      logger,
		cfg:         cfg,
	}
}

// Classify runs all three classifiers and returns the combined result. It is
// always fresh: Classify never consults or writes the decision cache.
func (r *Router) Classify(ctx context.Context, query string) Classification {
	var (
		wg           sync.WaitGroup
		intentRes    classify.IntentResult
		complexRes   classify.ComplexityResult
		intentPanic  any
		complexPanic any
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer func() { intentPanic = recover() }()
		res, err := r.intent.Classify(ctx, query)
		if err != nil {
			r.logger.Warn("intent classifier returned an error", "error", err)
			res = classify.IntentResult{Label: classify.IntentGeneral, Confidence: 0.60}
		}
		intentRes = res
	}()
	go func() {
		defer wg.Done()
		defer func() { complexPanic = recover() }()
		res, err := r.complexity.Score(ctx, query)
		if err != nil {
			r.logger.Warn("complexity scorer returned an error", "error", err)
			res = classify.ComplexityResult{Score: 0.5, Level: classify.ComplexityMedium, Confidence: 0.65}
		}
		complexRes = res
	}()

	// Sensitivity is synchronous and performs no I/O; it never blocks.
	sensitivityRes := r.sensitivity.Detect(query)

	wg.Wait()

	// Re-raise a classifier panic on the calling goroutine, where Route's
	// recover turns it into the degraded decision.
	if intentPanic != nil {
		panic(intentPanic)
	}
	if complexPanic != nil {
		panic(complexPanic)
	}

	return Classification{
		Intent:           intentRes.Label,
		IntentConfidence: intentRes.Confidence,
		Complexity:       complexRes.Level,
		ComplexityScore:  complexRes.Score,
		ComplexityConf:   complexRes.Confidence,
		Sensitivity:      sensitivityRes.Level,
		SensitivityConf:  sensitivityRes.Confidence,
	}
}

// Route resolves a RouteDecision for the query, consulting the cache first
// and writing it back on a fresh decision. It never returns an error: any
// internal failure degrades to a safe cloud-tier default.
func (r *Router) Route(ctx context.Context, tenantID uuid.UUID, q Query) RouteDecision {
	start := time.Now()
	defer func() {
		telemetry.RouteDecisionDuration.Observe(time.Since(start).Seconds())
	}()

	decision := r.route(ctx, tenantID, q)

	cachedLabel := "false"
	if decision.Cached {
		cachedLabel = "true"
	}
	telemetry.RouteDecisionsTotal.WithLabelValues(string(decision.Tier), cachedLabel).Inc()

	return decision
}

func (r *Router) route(ctx context.Context, tenantID uuid.UUID, q Query) (decision RouteDecision) {
	ctx, span := telemetry.Tracer("router").Start(ctx, "route")
	span.SetAttributes(attribute.String("tenant.id", tenantID.String()))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("router orchestration panicked, returning degraded decision", "panic", rec)
			telemetry.RouteFallbacksTotal.Inc()
			decision = Degraded("orchestration panic")
		}
	}()

	if cached, ok := r.cache.get(ctx, q.Text); ok {
		return cached
	}

	classification := r.Classify(ctx, q.Text)

	if q.ForceTier != "" {
		if decision, ok := forceTier(classification, q.ForceTier, r.models); ok {
			r.writeAudit(tenantID, q.Text, decision)
			return decision
		}
	}

	tier, reason := decide(classification, r.cfg.ConfidenceThreshold)
	decision = RouteDecision{
		Tier:            tier,
		Model:           r.models.ResolveModel(tier, classification.Intent),
		LatencyBudgetMS: r.models.LatencyBudget(tier),
		Reason:          reason,
		Intent:          classification.Intent,
		IntentConf:      classification.IntentConfidence,
		Complexity:      classification.Complexity,
		ComplexityScore: classification.ComplexityScore,
		Sensitivity:     classification.Sensitivity,
		Confidence:      classification.Confidence(),
	}

	r.cache.set(ctx, q.Text, decision)
	r.writeAudit(tenantID, q.Text, decision)
	r.logger.Info("route decision",
		"tier", decision.Tier, "model", decision.Model, "intent", decision.Intent,
		"complexity", decision.Complexity, "sensitivity", decision.Sensitivity,
		"confidence", decision.Confidence)

	return decision
}

// Degraded is the safe-default decision returned when orchestration itself
// fails: a classifier crash, a malformed response escaping its own parser, or
// a cache driver exhausted. It guarantees Route is total.
func Degraded(reason string) RouteDecision {
	return RouteDecision{
		Tier:            TierCloud,
		Model:           "cloud_default",
		LatencyBudgetMS: 5000,
		Reason:          "Fallback: " + reason,
		Intent:          classify.IntentGeneral,
		Complexity:      classify.ComplexityMedium,
		Sensitivity:     classify.SensitivityInternal,
		Confidence:      0.5,
	}
}

func (r *Router) writeAudit(tenantID uuid.UUID, query string, decision RouteDecision) {
	if r.audit == nil {
		return
	}
	detail, err := json.Marshal(struct {
		Tier   Tier   `json:"tier"`
		Model  string `json:"model"`
		Reason string `json:"reason"`
	}{decision.Tier, decision.Model, decision.Reason})
	if err != nil {
		r.logger.Warn("failed to marshal audit detail for route decision", "error", err)
		return
	}
	r.audit.Log(audit.Entry{
		TenantID: tenantID,
		Kind:     audit.KindRoute,
		Subject:  fingerprint(query),
		Detail:   detail,
	})
}
