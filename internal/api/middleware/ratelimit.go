package middleware

import (
	"clean-care-backend/internal/ratelimit"
	"clean-care-backend/utils"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
)

// RateLimit rejects requests over the limiter's budget with 429. The key is
// the route, the client IP and, after authorization, the caller id.
func RateLimit(limiter *ratelimit.Limiter, route string) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || r.Method == http.MethodGet {
				next(w, r)
				return
			}

			key := route + ":" + utils.RealClientIP(r)
			if identity, ok := IdentityFrom(r.Context()); ok {
				key += ":" + identity.ID
			}

			res := limiter.Allow(r.Context(), key)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if res.Allowed {
				next(w, r)
				return
			}

			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"message":    "Too many requests, please try again later",
				"retryAfter": retryAfter,
			})
		}
	}
}
