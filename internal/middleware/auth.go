// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/classtrack/classtrack/pkg/logger"
)

// TokenCookieName is the cookie consulted when no Authorization header is
// present, for browser form flows.
const TokenCookieName = "auth_token"

type contextKey string

const userIDKey contextKey = "user_id"

// TokenValidator checks a bearer token and returns the authenticated user id.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// AuthMiddleware gates routes behind a valid login session.
type AuthMiddleware struct {
	validator TokenValidator
	loginURL  string
	log       *logger.Logger
}

// NewAuthMiddleware creates an authentication middleware. Browser clients
// (Accept: text/html) are redirected to loginURL instead of receiving 401.
func NewAuthMiddleware(validator TokenValidator, loginURL string, log *logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("middleware")
	}
	if loginURL == "" {
		loginURL = "/login"
	}
	return &AuthMiddleware{validator: validator, loginURL: loginURL, log: log}
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			m.reject(w, r, "missing authorization")
			return
		}

		userID, err := m.validator.Validate(r.Context(), token)
		if err != nil {
			m.log.WithError(err).
				WithField("path", r.URL.Path).
				Debug("token validation failed")
			m.reject(w, r, "invalid or expired session")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, message string) {
	if wantsHTML(r) {
		http.Redirect(w, r, m.loginURL, http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(authHeader[len("Bearer "):])
	}
	if cookie, err := r.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// WithUserID stores the authenticated user id in the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID extracts the authenticated user id from the context.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}
