package middleware

import (
	"crypto/subtle"
	"net/http"
)

// RequireInternalToken guards operational endpoints (job trigger, settings,
// knowledge management) with a shared token. These are called by schedulers
// and admin tooling, not end users.
func RequireInternalToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Internal-Token")
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
