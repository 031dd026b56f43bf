package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wisbric/routeguard/pkg/abac"
	"github.com/wisbric/routeguard/pkg/tenant"
)

func newTestHandler(t *testing.T, devMode bool) (*Handler, *Authority) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	authority, err := NewAuthority("0123456789abcdef0123456789abcdef", "test-key", time.Hour, NewRedisRevocationStore(rdb))
	if err != nil {
		t.Fatalf("NewAuthority: %v", err)
	}
	limiter := NewRateLimiter(rdb, 5, time.Minute)
	return NewHandler(authority, limiter, nil, devMode, time.Hour), authority
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, path string, body any, setup func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if setup != nil {
		setup(req)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleLogin_DevModeSuccess(t *testing.T) {
	h, _ := newTestHandler(t, true)
	rec := doJSON(t, h.HandleLogin, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "admin@routeguard.dev",
		Password: demoPassword,
	}, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.AccessToken == "" || resp.Role != string(abac.RoleAdmin) {
		t.Errorf("resp = %+v", resp)
	}
	if resp.TenantID != tenant.DemoTenantID.String() {
		t.Errorf("tenant id = %s, want %s", resp.TenantID, tenant.DemoTenantID.String())
	}
}

func TestHandleLogin_DisabledOutsideDevMode(t *testing.T) {
	h, _ := newTestHandler(t, false)
	rec := doJSON(t, h.HandleLogin, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "admin@routeguard.dev",
		Password: demoPassword,
	}, nil)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestHandleLogin_BadCredentials(t *testing.T) {
	h, _ := newTestHandler(t, true)
	rec := doJSON(t, h.HandleLogin, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "admin@routeguard.dev",
		Password: "wrong-password",
	}, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHandleLogin_RateLimited(t *testing.T) {
	h, _ := newTestHandler(t, true)
	h.rateLimiter = NewRateLimiter(h.rateLimiter.redis, 1, time.Minute)

	rec := doJSON(t, h.HandleLogin, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "admin@routeguard.dev",
		Password: "wrong-password",
	}, func(r *http.Request) { r.RemoteAddr = "10.0.0.5:1234" })
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("first attempt status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, h.HandleLogin, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "admin@routeguard.dev",
		Password: "wrong-password",
	}, func(r *http.Request) { r.RemoteAddr = "10.0.0.5:1234" })
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second attempt status = %d, want 429", rec.Code)
	}
}

func TestHandleVerify_ValidToken(t *testing.T) {
	h, authority := newTestHandler(t, true)
	token, _, err := authority.IssueToken("user-1", "tenant-a", "admin", "jane@example.com", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	rec := doJSON(t, h.HandleVerify, http.MethodPost, "/auth/verify", VerifyRequest{Token: token}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleVerify_InvalidToken(t *testing.T) {
	h, _ := newTestHandler(t, true)
	rec := doJSON(t, h.HandleVerify, http.MethodPost, "/auth/verify", VerifyRequest{Token: "not-a-token"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHandleLogout_RevokesToken(t *testing.T) {
	h, authority := newTestHandler(t, true)
	token, claims, err := authority.IssueToken("user-1", "tenant-a", "admin", "jane@example.com", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	rec := doJSON(t, h.HandleLogout, http.MethodPost, "/auth/logout", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	revoked, err := authority.revocations.IsRevoked(claims.TokenID)
	if err != nil || !revoked {
		t.Error("expected token to be revoked after logout")
	}
}

func TestHandleLogout_MissingBearer(t *testing.T) {
	h, _ := newTestHandler(t, true)
	rec := doJSON(t, h.HandleLogout, http.MethodPost, "/auth/logout", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHandleAuthorize_CrossTenantDenied(t *testing.T) {
	h, _ := newTestHandler(t, true)
	id := &Identity{UserID: "user-1", TenantID: "tenant-a", Role: string(abac.RoleAdmin)}

	req := httptest.NewRequest(http.MethodPost, "/auth/authorize", bytes.NewReader(mustMarshal(t, abac.Request{
		UserID:       "user-1",
		TenantID:     "tenant-OTHER",
		Role:         abac.RoleAdmin,
		Action:       abac.ActionRead,
		ResourceType: "dataset",
	})))
	req = req.WithContext(NewContext(req.Context(), id))
	rec := httptest.NewRecorder()
	h.HandleAuthorize(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403, body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleAuthorize_AllowPassesThroughEngine(t *testing.T) {
	h, _ := newTestHandler(t, true)
	id := &Identity{UserID: "user-1", TenantID: "tenant-a", Role: string(abac.RoleAdmin)}

	req := httptest.NewRequest(http.MethodPost, "/auth/authorize", bytes.NewReader(mustMarshal(t, abac.Request{
		UserID:       "user-1",
		TenantID:     "tenant-a",
		Role:         abac.RoleAdmin,
		Action:       abac.ActionRead,
		ResourceType: "dataset",
	})))
	req = req.WithContext(NewContext(req.Context(), id))
	rec := httptest.NewRecorder()
	h.HandleAuthorize(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var decision abac.Decision
	if err := json.Unmarshal(rec.Body.Bytes(), &decision); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("decision = %+v, want allowed", decision)
	}
}

func TestHandleAuthorize_DenyFromEngine(t *testing.T) {
	h, _ := newTestHandler(t, true)
	id := &Identity{UserID: "user-1", TenantID: "tenant-a", Role: string(abac.RoleViewer)}

	req := httptest.NewRequest(http.MethodPost, "/auth/authorize", bytes.NewReader(mustMarshal(t, abac.Request{
		UserID:       "user-1",
		TenantID:     "tenant-a",
		Role:         abac.RoleViewer,
		Action:       abac.ActionDelete,
		ResourceType: "dataset",
	})))
	req = req.WithContext(NewContext(req.Context(), id))
	rec := httptest.NewRecorder()
	h.HandleAuthorize(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var decision abac.Decision
	if err := json.Unmarshal(rec.Body.Bytes(), &decision); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decision.Allowed {
		t.Errorf("decision = %+v, want denied", decision)
	}
}

func TestHandleMe_WithIdentity(t *testing.T) {
	h, _ := newTestHandler(t, true)
	id := &Identity{UserID: "user-1", TenantID: "tenant-a", Role: string(abac.RoleAdmin)}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(NewContext(req.Context(), id))
	rec := httptest.NewRecorder()
	h.HandleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleMe_WithoutIdentity(t *testing.T) {
	h, _ := newTestHandler(t, true)
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	h.HandleMe(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
