package service

import (
	"context"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// HealthzServer answers liveness probes. It is deliberately independent of
// the run pipeline: as long as the process is up it reports OK.
type HealthzServer struct {
	log      log.Logger
	server   *http.Server
	listener net.Listener
}

func NewHealthzServer(logger log.Logger) *HealthzServer {
	return &HealthzServer{log: logger}
}

// Listen binds addr and prepares the handler. Serve must be called next.
// Binding separately from serving lets callers fail fast on port clashes
// and read the resolved address when addr uses port 0.
func (h *HealthzServer) Listen(addr string) error {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", h.handle).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	h.listener = listener
	h.server = &http.Server{Handler: c.Handler(router)}
	return nil
}

// Serve blocks until Shutdown is called or the server fails.
func (h *HealthzServer) Serve() error {
	return h.server.Serve(h.listener)
}

// Addr returns the bound address, empty before Listen.
func (h *HealthzServer) Addr() string {
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

func (h *HealthzServer) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

func (h *HealthzServer) handle(w http.ResponseWriter, r *http.Request) {
	h.log.Debug("Health check", "remote", r.RemoteAddr)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
