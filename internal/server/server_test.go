package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"inventory-ledger/internal/config"
	"inventory-ledger/internal/observability"
	"inventory-ledger/internal/repository/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "0", Env: "development"},
		Store:  config.StoreConfig{Driver: config.StoreDriverMemory},
		JWT: config.JWTConfig{
			Secret:        "server-test-secret",
			AccessExpiry:  15,
			RefreshExpiry: 7,
		},
		RateLimit: config.RateLimitConfig{Requests: 3, Window: time.Minute},
	}
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthReportsStoreAndRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	router := NewRouter(testConfig(), zap.NewNop(), Dependencies{Store: memory.New(), Redis: client})

	rec := serve(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["store"])
	assert.Equal(t, "up", body["redis"])
	assert.NotContains(t, body, "database")
}

func TestRouterAppliesRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	router := NewRouter(testConfig(), zap.NewNop(), Dependencies{Store: memory.New(), Redis: client})

	for i := 0; i < 3; i++ {
		rec := serve(router, http.MethodGet, "/api/categories/")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodGet, "/api/categories/").Code)
}

func TestRouterMiddleware(t *testing.T) {
	metrics := observability.NewMetrics()
	router := NewRouter(testConfig(), zap.NewNop(), Dependencies{Store: memory.New(), Metrics: metrics})

	rec := serve(router, http.MethodGet, "/api/products/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = serve(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `inventory_http_requests_total{code="200"`), rec.Body.String())
}

func TestRouterJSONFallbacks(t *testing.T) {
	router := NewRouter(testConfig(), zap.NewNop(), Dependencies{Store: memory.New()})

	rec := serve(router, http.MethodGet, "/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = serve(router, http.MethodPost, "/health")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = serve(router, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewServerUsesConfiguredPort(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = "9090"
	srv := NewServer(cfg, zap.NewNop(), Dependencies{Store: memory.New()})
	assert.Equal(t, ":9090", srv.Addr)
	assert.NoError(t, srv.Close())
}
