package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Zachdehooge/observatorio/internal/server"
)

// addServeCmd adds 'serve', the live dashboard.
func addServeCmd(rootCmd *cobra.Command) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApplication(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			api := server.NewWebAPI(a.logger, server.Config{
				Addr:            cfg.Server.Addr,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
				RefreshInterval: cfg.Refresh.Interval,
				Dependencies: server.Dependencies{
					Refresher:  a.refresher,
					Renderer:   a.renderer,
					Source:     a.source,
					FixtureDir: a.fixtureDir,
					Map:        a.mapConfig,
					Version:    cfg.Envelope.Version,
					Metrics:    a.metrics,
				},
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.refresher.Run(gctx)
				return nil
			})
			if cfg.Fixtures.Watch && a.fixtureDir != "" {
				g.Go(func() error {
					return a.refresher.Watch(gctx, a.fixtureDir)
				})
			}
			g.Go(func() error {
				return api.Start(gctx)
			})
			return g.Wait()
		},
	}

	serveCmd.Flags().String("addr", "", "Listen address (default :8080)")
	serveCmd.Flags().Bool("watch-fixtures", false, "Refresh when a fixture file changes")
	bindFlag(serveCmd, "server.addr", "addr")
	bindFlag(serveCmd, "fixtures.watch", "watch-fixtures")

	rootCmd.AddCommand(serveCmd)
}
