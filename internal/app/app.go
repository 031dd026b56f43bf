package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wisbric/routeguard/internal/audit"
	"github.com/wisbric/routeguard/internal/auth"
	"github.com/wisbric/routeguard/internal/config"
	"github.com/wisbric/routeguard/internal/httpserver"
	"github.com/wisbric/routeguard/internal/platform"
	"github.com/wisbric/routeguard/internal/telemetry"
	"github.com/wisbric/routeguard/internal/version"
	"github.com/wisbric/routeguard/pkg/classify"
	"github.com/wisbric/routeguard/pkg/router"
)

// Run is the application entry point: it wires infrastructure, the three
// components (Router, Token Authority, ABAC — the latter needs no
// construction, being a pure function), and starts the HTTP server.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting routeguard", "listen", cfg.ListenAddr(), "env", cfg.Env)

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName, version.Version)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("shutting down tracer", "error", err)
		}
	}()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("decision audit log disabled: connecting to database failed", "error", err)
	} else {
		defer db.Close()
		if err := platform.RunAuditMigrations(cfg.DatabaseURL, cfg.AuditMigrationsDir); err != nil {
			return fmt.Errorf("running audit migrations: %w", err)
		}
		logger.Info("audit migrations applied")
	}

	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)

	auditWriter := audit.NewWriter(db, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	sessionSecret := cfg.SessionSecret
	if sessionSecret == "" {
		sessionSecret = auth.GenerateDevSecret()
		logger.Info("token authority: using auto-generated dev secret (set ROUTEGUARD_SESSION_SECRET in production)")
	}
	revocations := auth.NewRedisRevocationStore(rdb)
	authority, err := auth.NewAuthority(sessionSecret, "routeguard-2026", cfg.MaxTokenLifetime, revocations)
	if err != nil {
		return fmt.Errorf("creating token authority: %w", err)
	}

	rateLimiter := auth.NewRateLimiter(rdb, cfg.LoginRateLimitMaxAttempts, cfg.LoginRateLimitWindow)
	authHandler := auth.NewHandler(authority, rateLimiter, auditWriter, cfg.IsDevelopment(), cfg.DefaultTokenLifetime)

	intentClassifier := classify.NewOllamaIntentClassifier(cfg.OllamaURL, cfg.IntentModel, cfg.ClassifierTimeout, logger)
	complexityScorer := classify.NewOllamaComplexityScorer(cfg.OllamaURL, cfg.ComplexityModel, cfg.ClassifierTimeout, cfg.ComplexitySimpleMax, cfg.ComplexityMediumMax, cfg.ComplexityComplexMax, logger)
	sensitivityDetector := classify.NewRuleBasedSensitivityDetector()

	models := router.DefaultModelConfig(
		cfg.CloudDefaultModel, cfg.CloudSQLModel, cfg.CloudAnalysisModel, cfg.RLMModel, cfg.EdgeModel, cfg.SLMModel,
		cfg.LatencyEdgeMS, cfg.LatencySLMMS, cfg.LatencyCloudMS, cfg.LatencyRLMMS,
	)
	routerCfg := router.Config{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		SimpleMax:           cfg.ComplexitySimpleMax,
		MediumMax:           cfg.ComplexityMediumMax,
		ComplexMax:          cfg.ComplexityComplexMax,
		CacheTTL:            time.Duration(cfg.CacheTTLSeconds) * time.Second,
	}
	rt := router.New(intentClassifier, complexityScorer, sensitivityDetector, models, rdb, auditWriter, logger, routerCfg)
	routerHandler := router.NewHandler(rt, logger)

	srv := httpserver.NewServer(cfg, logger, rdb, metricsReg, routerHandler, authHandler, authority)

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
