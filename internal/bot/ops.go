package bot

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// healthSource reports nil when the bot can serve commands.
type healthSource interface {
	Health() error
}

// OpsServer serves /healthz and /metrics for the process.
type OpsServer struct {
	srv *http.Server
}

// NewOpsServer builds the ops HTTP server. It does not listen until Start.
func NewOpsServer(addr string, gatherer prometheus.Gatherer, health healthSource) *OpsServer {
	return &OpsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           newOpsRouter(gatherer, health),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func newOpsRouter(gatherer prometheus.Gatherer, health healthSource) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := health.Health(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

// Start listens in the background. Listen errors are logged.
func (o *OpsServer) Start() {
	ln, err := net.Listen("tcp", o.srv.Addr)
	if err != nil {
		slog.Error("failed to listen for ops server", "addr", o.srv.Addr, "error", err)
		return
	}

	slog.Info("started ops server", "addr", ln.Addr().String())
	go func() {
		if err := o.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ops server stopped", "error", err)
		}
	}()
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (o *OpsServer) Shutdown(ctx context.Context) error {
	return o.srv.Shutdown(ctx)
}
