// Package middleware provides HTTP middleware for static token authentication
// and origin checks.
package middleware

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/jonathan/resume-builder/internal/config"
)

// TokenValidator checks a presented bearer token.
type TokenValidator interface {
	Valid(token string) bool
}

// StaticToken validates against one configured token, clear or bcrypt hashed.
type StaticToken string

// Valid reports whether token matches the configured value.
func (s StaticToken) Valid(token string) bool {
	return config.VerifyToken(token, string(s))
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	// Handle case-insensitive "Bearer" prefix
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// AuthMiddleware rejects requests without a valid bearer token.
// A nil validator disables the check.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok || !validator.Valid(token) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OriginAllowed reports whether origin is in the allow-list. An empty list allows
// every origin; requests without an Origin header are not browser cross-origin
// calls and are always allowed.
func OriginAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 || origin == "" {
		return true
	}
	return slices.Contains(allowed, "*") || slices.Contains(allowed, strings.TrimSuffix(origin, "/"))
}

// OriginMiddleware rejects requests whose Origin is not allowed with 403.
func OriginMiddleware(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !OriginAllowed(r.Header.Get("Origin"), allowed) {
				writeError(w, http.StatusForbidden, "origin not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
