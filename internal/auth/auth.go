// Package auth guards the API with static bearer tokens.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// Config holds authentication configuration. Token grants every route;
// ReadToken, when set, grants only GET, HEAD and OPTIONS.
type Config struct {
	Enabled   bool
	Token     string
	ReadToken string
}

// publicPaths are always reachable regardless of auth configuration.
var publicPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

func safeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

func matches(presented, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(presented), []byte(want)) == 1
}

// bearer extracts the token from an Authorization header, or "" when the
// header is missing or not a bearer credential.
func bearer(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Middleware returns an HTTP middleware that enforces bearer token auth
// on non-public paths when auth is enabled.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token := bearer(r)
			switch {
			case token == "":
				deny(w, http.StatusUnauthorized, "unauthorized")
			case matches(token, cfg.Token):
				next.ServeHTTP(w, r)
			case matches(token, cfg.ReadToken) && safeMethod(r.Method):
				next.ServeHTTP(w, r)
			case matches(token, cfg.ReadToken):
				deny(w, http.StatusForbidden, "read-only token")
			default:
				deny(w, http.StatusUnauthorized, "unauthorized")
			}
		})
	}
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="starseeker"`)
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "kind": "unauthorized"})
}
