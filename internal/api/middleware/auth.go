package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const apiKeyContextKey contextKey = "api_key"

// AuthConfig holds the static API-key authentication configuration for the
// introspection HTTP surface. The engine has no multi-tenant boundary, so
// authentication here is a single shared-secret check, not a user/role
// system: every valid key grants the same access.
type AuthConfig struct {
	Enabled bool
	APIKeys map[string]bool
}

// Auth returns an authentication middleware that accepts any key present
// in cfg.APIKeys via the X-API-Key header.
func Auth(cfg *AuthConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				http.Error(w, "X-API-Key header required", http.StatusUnauthorized)
				return
			}
			if !cfg.APIKeys[apiKey] {
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyContextKey, apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIKey retrieves the authenticated request's API key from context, if
// auth was enabled and the request passed.
func APIKey(ctx context.Context) string {
	key, _ := ctx.Value(apiKeyContextKey).(string)
	return key
}
