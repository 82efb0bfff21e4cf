package middleware

import (
	"fmt"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"example.com/tweetfeed/internal/logger"
)

var logg = logger.New()

// RequestLog writes one structured line per request. It expects chi's
// RequestID middleware to run first.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		msg := fmt.Sprintf("%s %s -> %d in %s (request_id=%s)",
			r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Microsecond), chimw.GetReqID(r.Context()))
		if ww.Status() >= http.StatusInternalServerError {
			logg.Warn("http", msg)
			return
		}
		logg.Debug("http", msg)
	})
}
