// Package server wires the HTTP surface around the catalog, the event store
// and the synthetic-data engine. Handlers are thin adapters: they parse and
// default request input, call into the core packages, and shape JSON output.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/rs/cors"

	"github.com/telemock/telemock/internal/catalog"
	"github.com/telemock/telemock/internal/config"
	"github.com/telemock/telemock/internal/events"
	"github.com/telemock/telemock/internal/health"
	"github.com/telemock/telemock/internal/monitoring"
	"github.com/telemock/telemock/internal/store"
	"github.com/telemock/telemock/internal/synth"
)

// Server holds the handler dependencies and the listener configuration
type Server struct {
	cfg     config.ServerConfig
	logger  *slog.Logger
	catalog *catalog.Catalog
	store   *store.Store
	events  *events.Service
	checker *health.Checker
	metrics *monitoring.Metrics // nil when the metrics endpoint is disabled

	seriesWindow time.Duration
	eventsWindow time.Duration

	now func() time.Time // injectable clock for tests
}

// New assembles a server from its collaborators. metrics may be nil.
func New(cfg *config.Config, logger *slog.Logger, cat *catalog.Catalog, st *store.Store, metrics *monitoring.Metrics) (*Server, error) {
	seriesWindow, err := cfg.Server.SeriesWindow()
	if err != nil {
		return nil, err
	}
	eventsWindow, err := cfg.Server.EventsWindow()
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:          cfg.Server,
		logger:       logger,
		catalog:      cat,
		store:        st,
		events:       events.NewService(st, synth.NewEventSynthesizer(cat)),
		checker:      health.NewChecker(),
		metrics:      metrics,
		seriesWindow: seriesWindow,
		eventsWindow: eventsWindow,
		now:          time.Now,
	}, nil
}

// Router builds the chi router with middleware and all routes mounted
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	r.Use(cors.New(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowCredentials: true,
	}).Handler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.checker.HTTPHandler())
		r.Get("/devices", s.handleDevices)
		r.Get("/metric-tree", s.handleMetricTree)
		r.Get("/metrics", s.handleDeviceMetrics)
		r.Post("/collect", s.handleCollect)
		r.Post("/data", s.handleData)
		r.Get("/events", s.handleListEvents)
		r.Post("/events", s.handleCreateEvent)
		r.Put("/events/{id}", s.handleUpdateEvent)
		r.Post("/report", s.handleReport)
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	return r
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("HTTP server listening", slog.String("address", s.cfg.Address))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// logRequests emits one structured line per request
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}
