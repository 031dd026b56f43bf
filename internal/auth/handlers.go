package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wisbric/routeguard/internal/audit"
	"github.com/wisbric/routeguard/internal/telemetry"
	"github.com/wisbric/routeguard/pkg/abac"
	"github.com/wisbric/routeguard/pkg/tenant"
)

// demoUser is one entry in the hardcoded dev-mode credential set. There is no
// user store in this service: authentication is delegated to the gateway's
// SSO provider in every non-development environment.
type demoUser struct {
	userID string
	role   string
}

// demoUsers is the fixed set of dev-mode credentials, all issued into the
// shared demo tenant. The password is the same for all three accounts.
var demoUsers = map[string]demoUser{
	"admin@routeguard.dev":   {userID: "demo-admin-001", role: string(abac.RoleAdmin)},
	"analyst@routeguard.dev": {userID: "demo-analyst-001", role: string(abac.RoleAnalyst)},
	"ds@routeguard.dev":      {userID: "demo-ds-001", role: string(abac.RoleDataScientist)},
}

const demoPassword = "routeguard-dev"

var demoPasswordHash = mustHash(demoPassword)

func mustHash(password string) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	TenantSlug string `json:"tenant_slug"`
}

// LoginResponse is the JSON response for a successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	TenantID    string `json:"tenant_id"`
	Role        string `json:"role"`
}

// VerifyRequest is the JSON body for POST /auth/verify.
type VerifyRequest struct {
	Token string `json:"token"`
}

// Handler serves the local auth surface: login, verify, logout, authorize, me.
type Handler struct {
	authority   *Authority
	rateLimiter *RateLimiter
	audit       *audit.Writer
	devMode     bool
	lifetime    time.Duration
}

// NewHandler creates an auth Handler.
func NewHandler(authority *Authority, rateLimiter *RateLimiter, auditWriter *audit.Writer, devMode bool, lifetime time.Duration) *Handler {
	return &Handler{
		authority:   authority,
		rateLimiter: rateLimiter,
		audit:       auditWriter,
		devMode:     devMode,
		lifetime:    lifetime,
	}
}

// HandleLogin authenticates against the fixed dev-mode credential set and
// issues a session token. Local login is disabled outside development.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.devMode {
		respondErr(w, http.StatusForbidden, "forbidden", "local login disabled outside development; use SSO")
		return
	}

	ip := clientIP(r)
	if h.rateLimiter != nil {
		result, err := h.rateLimiter.Check(r.Context(), ip)
		if err == nil && !result.Allowed {
			respondErr(w, http.StatusTooManyRequests, "rate_limited", "too many failed login attempts, try again later")
			return
		}
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	user, ok := demoUsers[req.Email]
	if !ok || bcrypt.CompareHashAndPassword(demoPasswordHash, []byte(req.Password)) != nil {
		if h.rateLimiter != nil {
			_ = h.rateLimiter.Record(r.Context(), ip)
		}
		respondErr(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	if h.rateLimiter != nil {
		_ = h.rateLimiter.Reset(r.Context(), ip)
	}

	tenantID := tenant.DemoTenantID.String()
	token, claims, err := h.authority.IssueToken(user.userID, tenantID, user.role, req.Email, h.lifetime)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "internal", "failed to issue token")
		return
	}

	h.logAudit(tenant.DemoTenantID, audit.KindLogin, user.userID, nil)

	respondJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(time.Until(claims.ExpiresAt).Seconds()),
		TenantID:    tenantID,
		Role:        user.role,
	})
}

// HandleVerify decodes and validates a token, checking the revocation set,
// without requiring the caller to present it as a bearer header.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondErr(w, http.StatusBadRequest, "bad_request", "missing token")
		return
	}

	claims, err := h.authority.Verify(req.Token)
	if err != nil {
		respondErr(w, http.StatusUnauthorized, "unauthorized", "invalid, expired, or revoked token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"valid":     true,
		"user_id":   claims.Subject,
		"tenant_id": claims.TenantID,
		"role":      claims.Role,
		"exp":       claims.ExpiresAt.Unix(),
	})
}

// HandleLogout revokes the presented bearer token.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		respondErr(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	claims, err := h.authority.DecodeToken(token)
	if err != nil {
		respondErr(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
		return
	}

	if err := h.authority.Revoke(claims); err != nil {
		respondErr(w, http.StatusInternalServerError, "internal", "failed to revoke token")
		return
	}
	telemetry.TokensRevokedTotal.Inc()

	if tenantUUID, err := uuid.Parse(claims.TenantID); err == nil {
		h.logAudit(tenantUUID, audit.KindLogout, claims.Subject, nil)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "logged_out",
		"jti":    claims.TokenID,
	})
}

// HandleAuthorize evaluates an ABAC request for the caller identified by
// their bearer token. The caller may only evaluate policy for their own
// user/tenant: this check happens before the engine is invoked.
func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	id := FromContext(r.Context())
	if id == nil {
		respondErr(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req abac.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	if req.UserID != id.UserID || req.TenantID != id.TenantID {
		respondErr(w, http.StatusForbidden, "forbidden", "cannot evaluate policy for a different user or tenant")
		return
	}

	decision := abac.Evaluate(req)
	if !decision.Allowed {
		telemetry.ABACDenialsTotal.WithLabelValues(string(req.Role), string(req.Action)).Inc()
		if tenantUUID, err := uuid.Parse(id.TenantID); err == nil {
			detail, _ := json.Marshal(struct {
				Resource string `json:"resource"`
				Action   string `json:"action"`
			}{req.ResourceType, string(req.Action)})
			h.logAudit(tenantUUID, audit.KindAuthorizeDeny, id.UserID, detail)
		}
	}

	respondJSON(w, http.StatusOK, decision)
}

// HandleMe returns the caller's non-sensitive claims.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id := FromContext(r.Context())
	if id == nil {
		respondErr(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":   id.UserID,
		"tenant_id": id.TenantID,
		"role":      id.Role,
	})
}

func (h *Handler) logAudit(tenantID uuid.UUID, kind audit.Kind, subject string, detail json.RawMessage) {
	if h.audit == nil {
		return
	}
	h.audit.Log(audit.Entry{TenantID: tenantID, Kind: kind, Subject: subject, Detail: detail})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
