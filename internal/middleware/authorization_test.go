package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func requestWithRole(role string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/stock-movements", nil)
	if role == "" {
		return req
	}
	return req.WithContext(context.WithValue(req.Context(), UserRoleKey, role))
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(zap.NewNop())(okHandler())

	for role, want := range map[string]int{
		"admin": http.StatusOK,
		"user":  http.StatusForbidden,
		"":      http.StatusForbidden,
	} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestWithRole(role))
		assert.Equal(t, want, w.Code, "role %q", role)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole([]string{"user", "admin"}, zap.NewNop())(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithRole("user"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithRole("auditor"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient permissions")
}
