package router

import "net/http"

// CORSConfig is the configured allow-list. An empty AllowOrigins means
// CORS is fully disabled: no headers are emitted at all.
type CORSConfig struct {
	AllowOrigins []string
}

func (c CORSConfig) enabled() bool { return len(c.AllowOrigins) > 0 }

func (c CORSConfig) allows(origin string) bool {
	for _, o := range c.AllowOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (c CORSConfig) hasWildcard() bool {
	for _, o := range c.AllowOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

const (
	defaultAllowMethods = "GET, POST, OPTIONS, HEAD"
	defaultAllowHeaders = "Content-Type, Authorization"
)

// withCORS wraps next with the CORS behavior described in spec §4.B.
func withCORS(cfg CORSConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cfg.enabled() {
			next.ServeHTTP(w, r)
			return
		}

		origin := r.Header.Get("Origin")

		if r.Method == http.MethodOptions {
			method := r.Header.Get("Access-Control-Request-Method")
			if method == "" {
				method = defaultAllowMethods
			}
			headers := r.Header.Get("Access-Control-Request-Headers")
			if headers == "" {
				headers = defaultAllowHeaders
			}
			w.Header().Set("Access-Control-Allow-Methods", method)
			w.Header().Set("Access-Control-Allow-Headers", headers)
			setAllowOrigin(w, cfg, origin)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		setAllowOrigin(w, cfg, origin)
		next.ServeHTTP(w, r)
	})
}

func setAllowOrigin(w http.ResponseWriter, cfg CORSConfig, origin string) {
	switch {
	case cfg.hasWildcard():
		w.Header().Set("Access-Control-Allow-Origin", "*")
	case origin != "" && cfg.allows(origin):
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
	}
}
