package middleware

import (
	"net/http"
	"slices"

	"inventory-ledger/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin rejects callers whose token does not carry the admin role.
// Mount it after AuthMiddleware.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]string{domain.RoleAdmin}, logger)
}

// RequireRole answers 403 unless the authenticated role is one of allowedRoles
func RequireRole(allowedRoles []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok || !slices.Contains(allowedRoles, role) {
				logger.Warn("Role not authorized for route",
					zap.String("role", role),
					zap.Strings("allowed_roles", allowedRoles),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
