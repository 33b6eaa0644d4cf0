package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Keys groups the API keys accepted by the collector. Admin keys pass
// every guarded route.
type Keys struct {
	Public   []string
	Reporter []string
	Admin    []string
}

func readAuth(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return strings.TrimSpace(k)
	}
	return ""
}

func hasKey(given string, set []string) bool {
	if given == "" {
		return false
	}
	for _, k := range set {
		if subtle.ConstantTimeCompare([]byte(k), []byte(given)) == 1 {
			return true
		}
	}
	return false
}

func deny(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// RequireAny allows requests that present any configured key.
// If no keys are configured, it allows all requests (handy for local dev).
func RequireAny(keys Keys) func(http.Handler) http.Handler {
	enabled := len(keys.Public) > 0 || len(keys.Reporter) > 0 || len(keys.Admin) > 0
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := readAuth(r)
			if hasKey(key, keys.Public) || hasKey(key, keys.Reporter) || hasKey(key, keys.Admin) {
				next.ServeHTTP(w, r)
				return
			}
			deny(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

// RequireReporter guards the push endpoints. A public key is forbidden,
// a missing or unknown key is unauthorized. With no reporter or admin keys
// configured every request passes.
func RequireReporter(keys Keys) func(http.Handler) http.Handler {
	enabled := len(keys.Reporter) > 0 || len(keys.Admin) > 0
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := readAuth(r)
			switch {
			case hasKey(key, keys.Reporter) || hasKey(key, keys.Admin):
				next.ServeHTTP(w, r)
			case hasKey(key, keys.Public):
				deny(w, http.StatusForbidden, "forbidden")
			default:
				deny(w, http.StatusUnauthorized, "unauthorized")
			}
		})
	}
}
