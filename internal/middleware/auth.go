package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"inventory-ledger/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
)

var (
	errMissingHeader = errors.New("missing authorization header")
	errHeaderFormat  = errors.New("invalid authorization header format")
	errClaims        = errors.New("invalid token claims")
)

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" || strings.Contains(token, " ") {
		return "", errHeaderFormat
	}
	return token, nil
}

// callerFromToken verifies an HS256 token and returns its user_id and role
// claims, both required strings
func callerFromToken(tokenString, secret string) (userID, role string, err error) {
	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}))
	if err != nil {
		return "", "", err
	}

	userID, _ = claims["user_id"].(string)
	role, hasRole := claims["role"].(string)
	if userID == "" || !hasRole {
		return "", "", errClaims
	}
	return userID, role, nil
}

func authFailureMessage(err error) string {
	switch {
	case errors.Is(err, errMissingHeader), errors.Is(err, errHeaderFormat), errors.Is(err, errClaims):
		return err.Error()
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	default:
		return "invalid token"
	}
}

// AuthMiddleware requires a valid bearer JWT and puts the caller's id and
// role on the request context. The id is also the actor recorded on stock
// movements.
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			var userID, role string
			if err == nil {
				userID, role, err = callerFromToken(token, jwtSecret)
			}
			if err != nil {
				logger.Debug("Authentication failed", zap.Error(err), zap.String("path", r.URL.Path))
				RespondWithError(w, http.StatusUnauthorized, authFailureMessage(err))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, UserRoleKey, role)
			ctx = service.WithActor(ctx, userID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}
