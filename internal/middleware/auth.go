package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/nudge/internal/auth"
)

// RequireAuth verifies the bearer token and populates AuthContext.
// Browsers cannot set headers on a WebSocket upgrade, so a token query
// parameter is accepted as a fallback.
func RequireAuth(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "Access token required")
				return
			}

			ac, err := v.Verify(token)
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
