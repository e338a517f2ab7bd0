// Package server exposes the validation service over HTTP.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"paygate-hq/ceres/pkg/audit"
	"paygate-hq/ceres/pkg/config"
	"paygate-hq/ceres/pkg/validator"
)

// Server wires the HTTP surface: the validate endpoint, health probe and
// optionally the metrics endpoint.
type Server struct {
	validator    *validator.Service
	auditSink    audit.Sink
	logger       *slog.Logger
	maxBodyBytes int64
}

// Option customizes the router.
type Option func(*options)

type options struct {
	metricsPath    string
	metricsHandler http.Handler
}

// WithMetrics mounts handler at path.
func WithMetrics(path string, handler http.Handler) Option {
	return func(o *options) {
		o.metricsPath = path
		o.metricsHandler = handler
	}
}

// New builds the server.
func New(svc *validator.Service, sink audit.Sink, cfg config.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		validator:    svc,
		auditSink:    sink,
		logger:       logger.With("component", "server"),
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Router assembles the chi router.
func (s *Server) Router(opts ...Option) http.Handler {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/beneficiaries/validate", s.handleValidate)
	r.Get("/healthz", s.handleHealth)
	if o.metricsHandler != nil {
		r.Method(http.MethodGet, o.metricsPath, o.metricsHandler)
	}
	return r
}

// NewHTTPServer wraps the router in an http.Server with the configured
// timeouts.
func NewHTTPServer(handler http.Handler, cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","time":"` + time.Now().UTC().Format(time.RFC3339) + `"}`))
}
