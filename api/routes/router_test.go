package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	pkgauth "github.com/kiranlabs/storefront-backend/pkg/auth"
	"github.com/kiranlabs/storefront-backend/pkg/auth/session"
	"github.com/kiranlabs/storefront-backend/pkg/config"
	"github.com/kiranlabs/storefront-backend/pkg/enums"
	"github.com/kiranlabs/storefront-backend/pkg/logger"
	"github.com/kiranlabs/storefront-backend/pkg/metrics"
)

type allowAllSessions struct{}

func (allowAllSessions) HasSession(context.Context, string) (bool, error) {
	return true, nil
}

func testRouterConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "storefront", ExpirationMinutes: 30},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testRouterConfig()
	registry := prometheus.NewRegistry()
	handler := NewRouter(Deps{
		Config:   cfg,
		Logger:   logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard}),
		Sessions: allowAllSessions{},
		Metrics:  metrics.NewHTTPMetrics(registry),
		Registry: registry,
	})
	return handler, cfg
}

func mintToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	handler, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	handler, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	handler, _ := newTestRouter(t)
	paths := []string{"/api/v1/cart", "/api/v1/orders", "/api/v1/me", "/api/v1/wishlist", "/api/v1/addresses"}
	for _, path := range paths {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, resp.Code)
		}
	}
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	handler, cfg := newTestRouter(t)
	token := mintToken(t, cfg, enums.UserRoleCustomer)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestAdminRoutesAdmitAdmins(t *testing.T) {
	handler, cfg := newTestRouter(t)
	token := mintToken(t, cfg, enums.UserRoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	// The role gate admits the request; with no orders service wired the
	// controller reports an internal error rather than 401/403.
	if resp.Code == http.StatusUnauthorized || resp.Code == http.StatusForbidden {
		t.Fatalf("expected admin to pass the gate, got %d", resp.Code)
	}
}

func TestPublicCatalogRoutes(t *testing.T) {
	handler, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	// No catalog service wired; anything but an auth failure means the
	// route is reachable without a token.
	if resp.Code == http.StatusUnauthorized || resp.Code == http.StatusNotFound {
		t.Fatalf("expected public route, got %d", resp.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	handler, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
