// Package server wires the gin router, CORS and the optional metrics
// listener into the HTTP servers the service runs.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/adonai404/imperial-fiscal/pkg/config"
)

// Server is the main API listener plus the optional metrics listener
type Server struct {
	httpServer    *http.Server
	metricsServer *http.Server
	logger        *slog.Logger
}

// New wraps the router with CORS. The caller is a browser app, so the
// access header and content disposition must be allowed through.
func New(cfg *config.Config, handler http.Handler, registry *prometheus.Registry, logger *slog.Logger) *Server {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "X-Company-Access"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
	}).Handler(handler)

	s := &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           corsHandler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}

	if cfg.Observability.MetricsEnabled && registry != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		s.metricsServer = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Observability.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return s
}

// Run starts the listeners and blocks until the main one stops
func (s *Server) Run() error {
	if s.metricsServer != nil {
		go func() {
			s.logger.Info("metrics listener started", slog.String("addr", s.metricsServer.Addr))
			if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error("metrics listener failed", slog.Any("error", err))
			}
		}()
	}

	s.logger.Info("api listener started", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains both listeners
func (s *Server) Shutdown(ctx context.Context) error {
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			s.logger.Error("metrics shutdown failed", slog.Any("error", err))
		}
	}
	return s.httpServer.Shutdown(ctx)
}
