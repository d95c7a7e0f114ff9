// Package server is the HTTP transport for the key lifecycle engine.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/alechenninger/keymint/internal/auth"
	"github.com/alechenninger/keymint/internal/service"
)

// Config contains server configuration
type Config struct {
	HTTPPort int

	Service *service.Service
	Gate    *auth.Gate
	Logger  logrus.FieldLogger

	// KeySetCacheTTL enables key-set response caching when positive
	KeySetCacheTTL time.Duration
}

// Server manages the HTTP server lifecycle
type Server struct {
	httpServer *http.Server
	log        logrus.FieldLogger
	httpPort   int
}

// New creates a server with the given configuration
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	handler := NewHandler(cfg.Service, cfg.Gate, log, newKeySetCache(cfg.KeySetCacheTTL))

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(log))
	r.Use(httpMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	handler.Routes(r)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log:      log,
		httpPort: cfg.HTTPPort,
	}
}

// Start begins serving in the background. Errors after startup are logged.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		s.log.WithField("port", s.httpPort).Info("HTTP server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
