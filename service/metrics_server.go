package service

import (
	"context"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes the process's prometheus registry over HTTP.
type MetricsServer struct {
	log      log.Logger
	server   *http.Server
	listener net.Listener
}

func NewMetricsServer(logger log.Logger) *MetricsServer {
	return &MetricsServer{log: logger}
}

// Listen binds addr and prepares the handler. Serve must be called next.
func (m *MetricsServer) Listen(addr string) error {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	m.listener = listener
	m.server = &http.Server{Handler: router}
	return nil
}

// Serve blocks until Shutdown is called or the server fails.
func (m *MetricsServer) Serve() error {
	return m.server.Serve(m.listener)
}

// Addr returns the bound address, empty before Listen.
func (m *MetricsServer) Addr() string {
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
