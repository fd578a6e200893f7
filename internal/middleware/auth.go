package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"aquavision/internal/auth"
)

type contextKey string

const (
	ContextOperatorIDKey contextKey = "operatorID"
	ContextAuthMethod    contextKey = "authMethod"
)

// TokenVerifier checks an access token.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
	logr     *zap.Logger
}

// NewAuthMiddleware creates a reusable JWT auth middleware instance
func NewAuthMiddleware(verifier TokenVerifier, logr *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, logr: logr}
}

// JWTAuth validates the bearer token and attaches the operator to the request context
func (m *AuthMiddleware) JWTAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeUnauthorized(w, "missing authorization header")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			writeUnauthorized(w, "invalid token format")
			return
		}

		claims, err := m.verifier.VerifyToken(tokenString)
		if err != nil {
			m.logr.Warn("token rejected", zap.Error(err))
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ContextOperatorIDKey, claims.Subject)
		ctx = context.WithValue(ctx, ContextAuthMethod, claims.Provider)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OperatorID returns the authenticated operator, or "" on open routes.
func OperatorID(ctx context.Context) string {
	id, _ := ctx.Value(ContextOperatorIDKey).(string)
	return id
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
