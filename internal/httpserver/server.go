package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wisbric/routeguard/internal/auth"
	"github.com/wisbric/routeguard/internal/config"
	"github.com/wisbric/routeguard/internal/version"
	"github.com/wisbric/routeguard/pkg/httpkit"
	"github.com/wisbric/routeguard/pkg/router"
	"github.com/wisbric/routeguard/pkg/tenant"
)

// Server holds the HTTP server dependencies.
type Server struct {
	Mux       *chi.Mux
	Logger    *slog.Logger
	Redis     *redis.Client
	Metrics   *prometheus.Registry
	startedAt time.Time
}

// NewServer creates an HTTP server with middleware and the full routing/auth
// surface mounted: /route, /classify, /auth/*, health, and metrics.
func NewServer(cfg *config.Config, logger *slog.Logger, rdb *redis.Client, metricsReg *prometheus.Registry, routerHandler *router.Handler, authHandler *auth.Handler, authority *auth.Authority) *Server {
	s := &Server{
		Mux:       chi.NewRouter(),
		Logger:    logger,
		Redis:     rdb,
		Metrics:   metricsReg,
		startedAt: time.Now(),
	}

	s.Mux.Use(RequestID)
	s.Mux.Use(Logger(logger))
	s.Mux.Use(Metrics)
	s.Mux.Use(middleware.Recoverer)
	s.Mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Tenant-ID", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Tenant resolution runs on every non-public path; it is what makes
	// X-Tenant-ID available to the router handlers below. Health, metrics,
	// and the two pre-auth endpoints are in tenant.PublicPaths and bypass it.
	s.Mux.Use(tenant.Middleware(cfg.IsDevelopment(), logger))

	s.Mux.Get("/health/liveness", s.handleLiveness)
	s.Mux.Get("/health/readiness", s.handleReadiness)
	s.Mux.Handle("/metrics", promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))

	s.Mux.Post("/auth/login", authHandler.HandleLogin)
	s.Mux.Post("/auth/verify", authHandler.HandleVerify)

	s.Mux.Group(func(r chi.Router) {
		r.Use(auth.RequireBearer(authority, logger))
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Post("/auth/authorize", authHandler.HandleAuthorize)
		r.Get("/auth/me", authHandler.HandleMe)
	})

	s.Mux.Mount("/", routerHandler.Routes())

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Mux.ServeHTTP(w, r)
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	httpkit.Respond(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
}

// readinessResponse reports the health of this service's dependencies: the
// decision cache / revocation set (Redis). Readiness degrades rather than
// fails outright — a Redis outage means cache misses, failed logouts, and
// bearer tokens rejected because the revocation check cannot complete, not a
// dead process.
type readinessResponse struct {
	Status string            `json:"status"`
	Deps   map[string]string `json:"dependencies"`
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := map[string]string{"redis": "ok"}
	status := "ok"

	if err := s.Redis.Ping(ctx).Err(); err != nil {
		s.Logger.Warn("readiness check: redis ping failed", "error", err)
		deps["redis"] = "unavailable"
		status = "degraded"
	}

	httpkit.Respond(w, http.StatusOK, readinessResponse{Status: status, Deps: deps})
}
