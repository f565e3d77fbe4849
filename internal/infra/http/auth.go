package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"net/http"
	"strings"
)

// WriteAuthMiddleware guards mutating routes with a static bearer token.
// An empty token disables the check.
func WriteAuthMiddleware(token string) func(http.Handler) http.Handler {
	want := sha256.Sum256([]byte(token))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			got := sha256.Sum256([]byte(raw))
			if !hmac.Equal(got[:], want[:]) {
				writeError(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
