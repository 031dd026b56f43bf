package tenant

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// DemoTenantID is injected in development mode when no tenant header is
// present at all, so local testing doesn't require a gateway in front. It is
// also the tenant the demo login credentials are issued into.
var DemoTenantID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// demoTenantID is kept as an internal alias for readability below.
var demoTenantID = DemoTenantID

// PublicPaths bypass tenant enforcement entirely: health, local auth login
// and verify, and metrics. Exact-match only.
var PublicPaths = map[string]struct{}{
	"/health/liveness":  {},
	"/health/readiness": {},
	"/auth/login":       {},
	"/auth/verify":      {},
	"/metrics":          {},
}

// Middleware resolves the TenantContext for every non-public path from the
// X-Tenant-ID (or X-Dev-Tenant-ID in development) header plus the
// informational X-User-ID / X-User-Role headers, and echoes X-Request-ID.
//
// devMode enables the development bypass: a missing tenant header falls back
// to a fixed demo tenant instead of failing the request.
func Middleware(devMode bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", requestID)

			if _, public := PublicPaths[r.URL.Path]; public {
				next.ServeHTTP(w, r)
				return
			}

			rawTenant := r.Header.Get("X-Tenant-ID")
			if rawTenant == "" && devMode {
				rawTenant = r.Header.Get("X-Dev-Tenant-ID")
			}

			var tenantID uuid.UUID
			switch {
			case rawTenant != "":
				id, err := uuid.Parse(rawTenant)
				if err != nil {
					respondError(w, http.StatusBadRequest, "bad_request", "malformed tenant id")
					return
				}
				tenantID = id
			case devMode:
				tenantID = demoTenantID
				logger.Debug("tenant dev-bypass: no tenant header present, using demo tenant")
			default:
				respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context: X-Tenant-ID header required")
				return
			}

			role := r.Header.Get("X-User-Role")
			if role == "" {
				role = "analyst"
			}
			userID := r.Header.Get("X-User-ID")
			if userID == "" {
				userID = "unknown"
			}

			tc := &Context{
				TenantID:  tenantID,
				UserID:    userID,
				Role:      role,
				RequestID: requestID,
			}

			ctx := NewContext(r.Context(), tc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondError(w http.ResponseWriter, status int, errStr, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + errStr + `","message":"` + message + `"}`))
}
