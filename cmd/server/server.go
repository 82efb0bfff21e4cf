package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/tweetfeed/internal/feed"
	"example.com/tweetfeed/internal/logger"
	"example.com/tweetfeed/internal/metrics"
	"example.com/tweetfeed/internal/middleware"
)

type Server struct {
	svc *feed.Service
}

// Options controls the listener and the request limiter.
type Options struct {
	Addr            string
	CertFile        string
	KeyFile         string
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
}

var logg = logger.New()

// Handler builds the routed handler with the full middleware chain.
func (s *Server) Handler(rps float64, burst int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLog)
	r.Use(metrics.InstrumentHandler)

	r.Get("/ping", s.pingHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(rps, burst))

		r.Route("/tweets", func(r chi.Router) {
			r.Post("/", s.createTweetHandler)
			r.Get("/", s.listTweetsHandler)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.createUserHandler)
			r.Get("/", s.listUsersHandler)
			r.Route("/{user_id}", func(r chi.Router) {
				r.Get("/", s.getUserHandler)
				r.Post("/follow", s.followHandler)
				r.Get("/timeline", s.timelineHandler)
			})
		})
	})

	return r
}

// Run serves HTTP (HTTPS when a cert and key are configured) until ctx is
// cancelled, then shuts down gracefully.
func Run(ctx context.Context, svc *feed.Service, opts Options) {
	s := &Server{svc: svc}

	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	srv := &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(opts.RateLimitRPS, opts.RateLimitBurst),
		ReadTimeout:  10 * time.Second, // prevent slowloris attacks
		WriteTimeout: 10 * time.Second,
	}

	// --- Start server in a goroutine ---
	go func() {
		var err error
		if opts.CertFile != "" && opts.KeyFile != "" {
			logg.Info("server", "Starting HTTPS server on "+opts.Addr)
			err = srv.ListenAndServeTLS(opts.CertFile, opts.KeyFile)
		} else {
			logg.Info("server", "Starting HTTP server on "+opts.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error("server", "Server stopped unexpectedly", err)
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	logg.Info("server", "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server", "Error during server shutdown", err)
	} else {
		logg.Info("server", "Server stopped gracefully")
	}
}
