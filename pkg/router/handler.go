package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/routeguard/pkg/httpkit"
	"github.com/wisbric/routeguard/pkg/tenant"
)

// requestBody is the shared JSON shape for both /route and /classify.
// tenant_id is accepted; routing uses the tenant resolved by the tenant
// middleware.
type requestBody struct {
	Query         string         `json:"query" validate:"required,min=1,max=32000"`
	TenantID      string         `json:"tenant_id"`
	ContextTokens int            `json:"context_tokens" validate:"gte=0"`
	ForceTier     string         `json:"force_tier" validate:"omitempty,oneof=edge slm cloud rlm"`
	Metadata      map[string]any `json:"metadata"`
}

// Handler provides the HTTP surface over a Router: /route and /classify.
type Handler struct {
	router *Router
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(router *Router, logger *slog.Logger) *Handler {
	return &Handler{router: router, logger: logger}
}

// Routes returns a chi.Router with the /route and /classify endpoints mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/route", h.handleRoute)
	r.Post("/classify", h.handleClassify)
	return r
}

// handleRoute resolves a RouteDecision for the request body's query.
func (h *Handler) handleRoute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tc := tenant.MustFromContext(ctx)

	var body requestBody
	if !httpkit.DecodeAndValidate(w, r, &body) {
		return
	}

	decision := h.router.Route(ctx, tc.TenantID, Query{
		Text:          body.Query,
		ContextTokens: body.ContextTokens,
		ForceTier:     Tier(body.ForceTier),
		Metadata:      body.Metadata,
	})

	httpkit.Respond(w, http.StatusOK, decision)
}

// handleClassify returns the Classification for the request body's query
// without consulting the decision cache or the decision tree.
func (h *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	var body requestBody
	if !httpkit.DecodeAndValidate(w, r, &body) {
		return
	}

	classification := h.router.Classify(r.Context(), body.Query)
	httpkit.Respond(w, http.StatusOK, classification)
}
