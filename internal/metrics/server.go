// Package metrics serves the Prometheus exposition endpoint for the engine,
// API and cache collectors registered through promauto.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agora-market/agora/pkg/logger"
)

// Server exposes /metrics on its own listener so scrapes never contend with
// API traffic.
type Server struct {
	server *http.Server
	log    *logger.Logger
}

func NewServer(addr string, log *logger.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info("metrics server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
