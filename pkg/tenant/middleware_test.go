package tenant

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestMiddleware(devMode bool) func(http.Handler) http.Handler {
	return Middleware(devMode, slog.Default())
}

func TestMiddleware_MissingTenantHeader_Production(t *testing.T) {
	mw := newTestMiddleware(false)
	called := false
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	r := httptest.NewRequest("POST", "/route", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if called {
		t.Fatal("handler should not be called")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestMiddleware_DevBypass(t *testing.T) {
	mw := newTestMiddleware(true)
	var tc *Context
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc = FromContext(r.Context())
	}))

	r := httptest.NewRequest("POST", "/route", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if tc == nil {
		t.Fatal("expected tenant context to be set")
	}
	if tc.TenantID != demoTenantID {
		t.Errorf("TenantID = %v, want demo tenant", tc.TenantID)
	}
}

func TestMiddleware_MalformedUUID(t *testing.T) {
	mw := newTestMiddleware(false)
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest("POST", "/route", nil)
	r.Header.Set("X-Tenant-ID", "not-a-uuid")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestMiddleware_ValidTenant(t *testing.T) {
	mw := newTestMiddleware(false)
	var tc *Context
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc = FromContext(r.Context())
	}))

	r := httptest.NewRequest("POST", "/route", nil)
	r.Header.Set("X-Tenant-ID", "11111111-1111-1111-1111-111111111111")
	r.Header.Set("X-User-ID", "u-42")
	r.Header.Set("X-User-Role", "admin")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if tc.UserID != "u-42" || tc.Role != "admin" {
		t.Errorf("unexpected tenant context: %+v", tc)
	}
}

func TestMiddleware_PublicPathBypassesTenant(t *testing.T) {
	mw := newTestMiddleware(false)
	var tc *Context
	called := false
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		tc = FromContext(r.Context())
	}))

	r := httptest.NewRequest("GET", "/health/liveness", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if !called {
		t.Fatal("handler should be called for public path")
	}
	if tc != nil {
		t.Error("tenant context should not be set on public path")
	}
}

func TestMiddleware_EchoesRequestID(t *testing.T) {
	mw := newTestMiddleware(true)
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest("GET", "/health/liveness", nil)
	r.Header.Set("X-Request-ID", "fixed-id")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if got := w.Header().Get("X-Request-ID"); got != "fixed-id" {
		t.Errorf("X-Request-ID = %q, want %q", got, "fixed-id")
	}
}

func TestMustFromContext_PanicsWithoutTenant(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic")
		}
	}()
	MustFromContext(httptest.NewRequest("GET", "/", nil).Context())
}
