package middleware

import (
	"net/http"
	"strings"
)

const (
	corsAllowedHeaders = "Authorization, Content-Type, X-Request-ID"
	corsAllowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsExposedHeaders = "X-Request-ID, Retry-After"
)

// CORS lets the booking frontend call the coordinator from the browser.
// Entries are exact origins, "*" for any origin, or a "https://*.example.com"
// wildcard matching any subdomain.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAny := false
	allow := map[string]struct{}{}
	var wildcards []wildcardOrigin
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch {
		case origin == "":
		case origin == "*":
			allowAny = true
		case strings.Contains(origin, "://*."):
			scheme, domain, _ := strings.Cut(origin, "://*")
			wildcards = append(wildcards, wildcardOrigin{prefix: scheme + "://", suffix: domain})
		default:
			allow[origin] = struct{}{}
		}
	}

	allowed := func(origin string) bool {
		if allowAny {
			return true
		}
		if _, ok := allow[origin]; ok {
			return true
		}
		for _, wc := range wildcards {
			if wc.matches(origin) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin != "" && allowed(origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
				h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
				h.Set("Access-Control-Expose-Headers", corsExposedHeaders)
				h.Set("Access-Control-Max-Age", "600")
			}

			if r.Method == http.MethodOptions && origin != "" && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// wildcardOrigin matches "<prefix><label>.<suffix>", e.g. https://app.example.com
// for https://*.example.com.
type wildcardOrigin struct {
	prefix string // "https://"
	suffix string // ".example.com"
}

func (w wildcardOrigin) matches(origin string) bool {
	if !strings.HasPrefix(origin, w.prefix) || !strings.HasSuffix(origin, w.suffix) {
		return false
	}
	return len(origin) > len(w.prefix)+len(w.suffix)
}
