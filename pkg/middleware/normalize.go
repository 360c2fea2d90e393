package middleware

import (
	"net/http"
	"strings"
)

// Normalize standardizes request fields coming through proxies.
// Whitespace around URL.Path is trimmed and scheme/host are restored from
// forwarding headers.
func Normalize() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p := strings.TrimSpace(r.URL.Path); p != r.URL.Path {
				r.URL.Path = p
				r.URL.RawPath = ""
			}

			if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
				r.URL.Scheme = strings.ToLower(strings.TrimSpace(proto))
			}
			if host := r.Header.Get("X-Forwarded-Host"); host != "" {
				r.Host = strings.TrimSpace(host)
			}
			next.ServeHTTP(w, r)
		})
	}
}
