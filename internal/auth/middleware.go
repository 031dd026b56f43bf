package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wisbric/routeguard/pkg/httpkit"
)

// RequireBearer authenticates the caller via a signed session token in the
// Authorization header and stores the resulting Identity in the request
// context. Requests without a valid, unrevoked token are rejected with 401.
func RequireBearer(authority *Authority, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				respondErr(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			claims, err := authority.Verify(token)
			if err != nil {
				var decodeErr *DecodeError
				kind := DecodeErrMalformed
				if errors.As(err, &decodeErr) {
					kind = decodeErr.Kind
				}
				logger.Warn("bearer token rejected", "kind", kind, "error", err)
				respondErr(w, http.StatusUnauthorized, string(kind), "invalid, expired, or revoked token")
				return
			}

			id := &Identity{
				UserID:   claims.Subject,
				TenantID: claims.TenantID,
				Role:     claims.Role,
				TokenID:  claims.TokenID,
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) && !strings.HasPrefix(header, strings.ToLower(prefix)) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

func respondErr(w http.ResponseWriter, status int, errStr, message string) {
	httpkit.RespondError(w, status, errStr, message)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	httpkit.Respond(w, status, data)
}
