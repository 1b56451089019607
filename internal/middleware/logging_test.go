package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingMiddlewareLevelsByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(LoggingMiddleware(zap.New(core)))
	router.Get("/api/products/{slug}", func(w http.ResponseWriter, r *http.Request) {
		switch chi.URLParam(r, "slug") {
		case "missing":
			w.WriteHeader(http.StatusNotFound)
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte("ok"))
		}
	})

	for _, slug := range []string{"hammer", "missing", "broken"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products/"+slug, nil))
	}

	entries := logs.FilterMessage("Request completed").All()
	require.Len(t, entries, 3)

	wantLevels := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, entry := range entries {
		assert.Equal(t, wantLevels[i], entry.Level)
		fields := entry.ContextMap()
		assert.Equal(t, "/api/products/{slug}", fields["route"])
		assert.NotEmpty(t, fields["request_id"])
	}
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
	assert.Equal(t, int64(2), entries[0].ContextMap()["bytes"])
}
