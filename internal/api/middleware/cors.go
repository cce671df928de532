package middleware

import (
	"clean-care-backend/utils"
	"net/http"
)

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
}

// allowedOrigin returns the value for Access-Control-Allow-Origin, or "" when
// origin is not allowed. A "*" entry echoes the origin when credentials are
// allowed since browsers reject a literal "*" with credentials.
func (c CORSConfig) allowedOrigin(origin string) string {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			if c.AllowCredentials {
				return origin
			}
			return "*"
		}
		if o == origin {
			return o
		}
	}
	return ""
}

func CORS(config CORSConfig) Middleware {
	methods := utils.StringJoin(config.AllowedMethods, ", ")
	headers := utils.StringJoin(config.AllowedHeaders, ", ")
	exposed := utils.StringJoin(config.ExposedHeaders, ", ")

	return func(f http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := ""
			if origin != "" {
				allowed = config.allowedOrigin(origin)
			}
			w.Header().Add("Vary", "Origin")

			if allowed != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowed)
				if config.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				if exposed != "" {
					w.Header().Set("Access-Control-Expose-Headers", exposed)
				}
			}

			if r.Method == http.MethodOptions {
				if allowed != "" {
					w.WriteHeader(http.StatusOK)
				} else {
					w.WriteHeader(http.StatusForbidden)
				}
				return
			}

			f(w, r)
		}
	}
}
