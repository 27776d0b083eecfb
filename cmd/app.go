package main

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Zachdehooge/observatorio/internal/config"
	"github.com/Zachdehooge/observatorio/internal/dashboard"
	"github.com/Zachdehooge/observatorio/internal/fetcher"
	"github.com/Zachdehooge/observatorio/internal/generator"
	"github.com/Zachdehooge/observatorio/internal/logging"
	"github.com/Zachdehooge/observatorio/internal/mapview"
	"github.com/Zachdehooge/observatorio/internal/metrics"
)

// application holds the components every command shares.
type application struct {
	cfg       *config.Config
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	client    *http.Client
	source    fetcher.Source
	refresher *dashboard.Refresher
	renderer  *generator.Renderer
	mapConfig mapview.Config
	// fixtureDir is empty when fixtures are fetched over HTTP.
	fixtureDir string
}

func newApplication(cfg *config.Config) (*application, error) {
	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty)
	m := metrics.New()

	client := fetcher.NewClient(fetcher.ClientOptions{
		Retries: cfg.Fetch.Retries,
		Timeout: cfg.Fetch.Timeout,
		Logger:  logger,
	})

	var (
		source     fetcher.Source
		fixtureDir string
	)
	if cfg.Fixtures.BaseURL != "" {
		src, err := fetcher.NewHTTPSource(cfg.Fixtures.BaseURL, client)
		if err != nil {
			return nil, err
		}
		source = src
	} else {
		source = fetcher.DirSource{Root: cfg.Fixtures.Dir}
		fixtureDir = cfg.Fixtures.Dir
	}

	var loader fetcher.Loader = fetcher.NewFixtureLoader(source)
	if cfg.Fixtures.EnvelopeURL != "" {
		loader = fetcher.NewEnvelopeLoader(cfg.Fixtures.EnvelopeURL, client, source)
	}

	renderer, err := generator.NewRenderer()
	if err != nil {
		return nil, err
	}

	refresher := dashboard.NewRefresher(loader, dashboard.NewStore(), dashboard.Options{
		Interval:  cfg.Refresh.Interval,
		BannerTTL: cfg.Refresh.BannerTTL,
		Logger:    logger,
		Metrics:   m,
	})

	mapConfig, err := mapConfigFrom(cfg.Map)
	if err != nil {
		return nil, err
	}

	return &application{
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
		client:     client,
		source:     source,
		refresher:  refresher,
		renderer:   renderer,
		mapConfig:  mapConfig,
		fixtureDir: fixtureDir,
	}, nil
}

func mapConfigFrom(m config.Map) (mapview.Config, error) {
	if len(m.Center) != 2 {
		return mapview.Config{}, fmt.Errorf("map.center must hold two values, got %d", len(m.Center))
	}
	return mapview.Config{
		Center:      [2]float64{m.Center[0], m.Center[1]},
		Zoom:        m.Zoom,
		TileURL:     m.TileURL,
		Attribution: m.Attribution,
	}, nil
}
