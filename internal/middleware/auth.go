package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AdminAPIKey guards admin routes. The key is read from "Authorization:
// Bearer <key>" or "X-API-Key". An empty configured key rejects every request.
func AdminAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				http.Error(w, "admin API is disabled", http.StatusForbidden)
				return
			}

			apiKey := strings.TrimSpace(r.Header.Get("X-API-Key"))
			if apiKey == "" {
				auth := r.Header.Get("Authorization")
				if auth == "" {
					http.Error(w, "missing Authorization header", http.StatusUnauthorized)
					return
				}
				apiKey = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
			if apiKey == "" {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			// constant-time comparison
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) != 1 {
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
