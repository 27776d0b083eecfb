package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Zachdehooge/observatorio/internal/dashboard"
	"github.com/Zachdehooge/observatorio/internal/fetcher"
	"github.com/Zachdehooge/observatorio/internal/generator"
	"github.com/Zachdehooge/observatorio/internal/mapview"
	"github.com/Zachdehooge/observatorio/internal/metrics"
	obsmiddleware "github.com/Zachdehooge/observatorio/internal/server/middleware"
)

type WebAPI struct {
	router *chi.Mux
	logger *zerolog.Logger
	server *http.Server
	cfg    Config
}

type Dependencies struct {
	Refresher *dashboard.Refresher
	Renderer  *generator.Renderer
	// Source feeds the aggregation endpoint.
	Source fetcher.Source
	// FixtureDir is served under /datos/ when fixtures are local.
	FixtureDir string
	Map        mapview.Config
	Version    string
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
	Now        func() time.Time
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	RefreshInterval time.Duration
	Dependencies    Dependencies
}

// ConfigureRouter builds the dashboard routes.
func ConfigureRouter(config Config) *chi.Mux {
	deps := config.Dependencies
	if deps.Now == nil {
		deps.Now = time.Now
	}
	h := &handler{
		refresher:       deps.Refresher,
		renderer:        deps.Renderer,
		source:          deps.Source,
		mapConfig:       deps.Map,
		version:         deps.Version,
		metrics:         deps.Metrics,
		now:             deps.Now,
		refreshInterval: config.RefreshInterval,
	}

	router := chi.NewRouter()
	router.Use(obsmiddleware.Logger(&deps.Logger))
	router.Use(middleware.Recoverer)

	router.Get("/", h.Page)
	router.Post("/refresh", h.RefreshForm)
	router.Get("/widgets/{id}", h.Widget)
	router.Get("/healthz", h.Health)
	router.Handle("/metrics", deps.Metrics.Handler())

	static := http.FileServer(http.FS(generator.Static()))
	router.Get("/estilo.css", static.ServeHTTP)
	router.Get("/dashboard.js", static.ServeHTTP)
	router.Get("/manifest.json", static.ServeHTTP)

	if deps.FixtureDir != "" {
		router.Handle("/datos/*", http.StripPrefix("/datos/", http.FileServer(http.Dir(deps.FixtureDir))))
	}

	router.Route("/api", func(r chi.Router) {
		r.With(obsmiddleware.CORS).Get("/datos", h.Envelope)
		r.Post("/refresh", h.Refresh)
		r.Get("/map", h.Map)
		r.Get("/ver-mas/{tipo}", h.VerMas)
	})

	return router
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	config.Dependencies.Logger = logger
	router := ConfigureRouter(config)

	return &WebAPI{
		router: router,
		logger: &logger,
		cfg:    config,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (w *WebAPI) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		w.logger.Info().Msg("shutdown initiated")

		timeout := w.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		err := w.server.Shutdown(shutdownCtx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}
		return err
	}
}
