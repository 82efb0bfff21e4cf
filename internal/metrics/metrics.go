package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	TweetsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tweets_created_total",
		Help: "Total tweets successfully created",
	})

	FollowsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "follows_created_total",
		Help: "Total new follow edges (repeated follows excluded)",
	})

	TimelineReads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_reads_total",
		Help: "Timeline requests by outcome",
	}, []string{"result"})

	TimelineSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timeline_tweets",
		Help:    "Number of tweets returned per timeline read.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Domain events written to Kafka by type and result",
	}, []string{"type", "result"})

	EventsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_processed_total",
		Help: "Domain events applied by the stats worker by type and result",
	}, []string{"type", "result"})
)

func init() {
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(TweetsCreated)
	prometheus.MustRegister(FollowsCreated)
	prometheus.MustRegister(TimelineReads)
	prometheus.MustRegister(TimelineSize)
	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(EventsProcessed)
}

// Middleware to track request timing and status code
type statusRecordingWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecordingWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// InstrumentHandler labels requests by chi route pattern rather than raw
// path, so user ids do not explode label cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &statusRecordingWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := fmt.Sprintf("%d", rw.statusCode)

		RequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}
