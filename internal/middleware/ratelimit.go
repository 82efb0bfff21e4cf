package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	"example.com/tweetfeed/internal/response"
)

// RateLimit rejects requests above rps (burst tokens) with 429.
// A non-positive rps disables limiting.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				logg.Warn("http", "Rate limit exceeded for "+r.Method+" "+r.URL.Path)
				response.TooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
