package offline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	obsmiddleware "github.com/Zachdehooge/observatorio/internal/server/middleware"
)

// UpdatePath re-runs install and activate on the proxy.
const UpdatePath = "/_offline/update"

// UpdateResult is the JSON answer of POST /_offline/update.
type UpdateResult struct {
	Cache string `json:"cache,omitempty"`
	Error string `json:"error,omitempty"`
}

// ConfigureRouter puts the worker in front of a reverse proxy to its origin.
func ConfigureRouter(w *Worker, logger zerolog.Logger) *chi.Mux {
	network := httputil.NewSingleHostReverseProxy(w.origin)
	network.ErrorHandler = func(rw http.ResponseWriter, r *http.Request, err error) {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("origin unreachable")
		rw.WriteHeader(http.StatusBadGateway)
	}

	router := chi.NewRouter()
	router.Use(obsmiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)

	router.Post(UpdatePath, func(rw http.ResponseWriter, r *http.Request) {
		name, err := w.Update(context.WithoutCancel(r.Context()))
		rw.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("offline update failed")
			rw.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(rw).Encode(UpdateResult{Error: err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(UpdateResult{Cache: name})
	})
	router.Handle("/*", w.Handler(network))

	return router
}

// Proxy is the HTTP server of the offline cache.
type Proxy struct {
	server          *http.Server
	logger          zerolog.Logger
	shutdownTimeout time.Duration
}

func NewProxy(addr string, w *Worker, logger zerolog.Logger, shutdownTimeout time.Duration) *Proxy {
	return &Proxy{
		server: &http.Server{
			Addr:              addr,
			Handler:           ConfigureRouter(w, logger),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (p *Proxy) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		p.logger.Info().Str("addr", p.server.Addr).Msg("starting offline proxy")
		serverErrors <- p.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		timeout := p.shutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := p.server.Shutdown(shutdownCtx); err != nil {
			p.logger.Error().Err(err).Msg("graceful shutdown failed")
			return p.server.Close()
		}
		return nil
	}
}
