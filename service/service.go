// Package service runs the sidecar HTTP endpoints of the long-lived agent:
// a healthz liveness probe and a prometheus metrics endpoint.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/log"

	"github.com/qagentic/qagentic-go/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	// HealthzPort stays clear of 8080, which the local reporting API
	// defaults to during development.
	HealthzPort = "8090"

	MetricsHost = "0.0.0.0"
	MetricsPort = "7300"
)

type Service struct {
	log     log.Logger
	Healthz *HealthzServer
	Metrics *MetricsServer
}

func New(logger log.Logger) *Service {
	return &Service{
		log:     logger,
		Healthz: NewHealthzServer(logger),
		Metrics: NewMetricsServer(logger),
	}
}

// Start binds both servers and serves them in the background. Bind failures
// are returned synchronously; serve failures after startup are logged and
// counted but do not stop the process, since the test agent itself keeps
// working without its sidecar endpoints.
func (s *Service) Start() error {
	s.log.Info("Service starting")

	if err := s.Healthz.Listen(net.JoinHostPort(HealthzHost, HealthzPort)); err != nil {
		return fmt.Errorf("failed to bind healthz server: %w", err)
	}
	go func() {
		s.log.Info("Healthz server listening", "addr", s.Healthz.Addr())
		if err := s.Healthz.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Healthz server failed", "err", err)
			metrics.RecordErrorDetails("healthz server failed", err)
		}
	}()

	if err := s.Metrics.Listen(net.JoinHostPort(MetricsHost, MetricsPort)); err != nil {
		return fmt.Errorf("failed to bind metrics server: %w", err)
	}
	go func() {
		s.log.Info("Metrics server listening", "addr", s.Metrics.Addr())
		if err := s.Metrics.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Metrics server failed", "err", err)
			metrics.RecordErrorDetails("metrics server failed", err)
		}
	}()

	s.log.Info("Service started")
	return nil
}

func (s *Service) Shutdown(ctx context.Context) {
	s.log.Info("Service shutting down")

	if err := s.Healthz.Shutdown(ctx); err != nil {
		s.log.Error("Failed to stop healthz server", "err", err)
	}
	if err := s.Metrics.Shutdown(ctx); err != nil {
		s.log.Error("Failed to stop metrics server", "err", err)
	}

	s.log.Info("Service stopped")
}
