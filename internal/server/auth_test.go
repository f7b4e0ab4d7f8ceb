package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/alexwday/cc-launcher/internal/config"
	"github.com/alexwday/cc-launcher/internal/usage"
)

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mapper, err := config.NewModelMapper(nil, "")
	if err != nil {
		t.Fatalf("build mapper: %v", err)
	}
	return New(cfg, mapper, usage.NewTracker(10), nil)
}

func TestProxyAuthMiddleware_RejectsMissingToken(t *testing.T) {
	cfg := &config.Config{ProxyAccessToken: "secret-token", UsePlaceholder: true}
	srv := newTestServer(t, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProxyAuthMiddleware_AcceptsXAPIKey(t *testing.T) {
	cfg := &config.Config{ProxyAccessToken: "secret-token", UsePlaceholder: true, DefaultMaxTokens: 100}
	srv := newTestServer(t, cfg)

	body := `{"model":"claude-3-opus","messages":[{"role":"user","content":"hi"}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("x-api-key", "secret-token")
	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProxyAuthMiddleware_AcceptsBearer(t *testing.T) {
	cfg := &config.Config{ProxyAccessToken: "secret-token", UsePlaceholder: true, DefaultMaxTokens: 100}
	srv := newTestServer(t, cfg)

	body := `{"model":"claude-3-opus","messages":[{"role":"user","content":"hi"}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret-token")
	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProxyAuthMiddleware_RejectsWrongToken(t *testing.T) {
	cfg := &config.Config{ProxyAccessToken: "secret-token", UsePlaceholder: true}
	srv := newTestServer(t, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	req.Header.Set("x-api-key", "wrong")
	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDashboardRoutesAbsentWhenDisabled(t *testing.T) {
	cfg := &config.Config{ProxyAccessToken: "secret-token", DashboardEnabled: false}
	srv := newTestServer(t, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard/health", nil)
	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardAuthMiddleware_AcceptsRawToken(t *testing.T) {
	cfg := &config.Config{ProxyAccessToken: "secret-token", DashboardEnabled: true, DashboardToken: "dash-secret"}
	srv := newTestServer(t, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard/health", nil)
	req.Header.Set("Authorization", "Bearer dash-secret")
	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDashboardAuthMiddleware_RejectsBadToken(t *testing.T) {
	cfg := &config.Config{ProxyAccessToken: "secret-token", DashboardEnabled: true, DashboardToken: "dash-secret"}
	srv := newTestServer(t, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard/health", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
