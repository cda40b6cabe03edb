package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthMiddleware requires a bearer token on every request except the health
// check. An empty token disables the check.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/v1/health" {
			next.ServeHTTP(w, r)
			return
		}

		scheme, provided, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		switch {
		case !ok && scheme == "":
			writeError(w, http.StatusUnauthorized, "missing authorization header")
		case !ok || scheme != "Bearer":
			writeError(w, http.StatusUnauthorized, "invalid authorization scheme")
		case subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1:
			writeError(w, http.StatusUnauthorized, "invalid token")
		default:
			next.ServeHTTP(w, r)
		}
	})
}
