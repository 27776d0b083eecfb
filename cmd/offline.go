package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/Zachdehooge/observatorio/internal/offline"
)

// addOfflineCmd adds 'offline', the cache-first proxy in front of a running
// dashboard.
func addOfflineCmd(rootCmd *cobra.Command) {
	offlineCmd := &cobra.Command{
		Use:   "offline",
		Short: "Run the offline cache proxy",
		Long: `Fetches the precache list from the origin, stores it under a
content-derived cache name, deletes older caches and then serves cached
GET requests without touching the network.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApplication(cfg)
			if err != nil {
				return err
			}

			origin, err := url.Parse(cfg.Offline.Origin)
			if err != nil || !origin.IsAbs() {
				return fmt.Errorf("offline.origin must be an absolute URL, got %q", cfg.Offline.Origin)
			}

			ctx, stop := signalContext()
			defer stop()

			storage, closeStorage, err := openStorage(ctx, cfg.Offline.RedisURL)
			if err != nil {
				return err
			}
			defer closeStorage()

			worker := offline.NewWorker(storage, offline.Options{
				Origin:    origin,
				Precache:  cfg.Offline.Precache,
				CacheName: cfg.Offline.CacheName,
				Client:    a.client,
				Logger:    a.logger,
				Metrics:   a.metrics,
			})
			if _, err := worker.Update(ctx); err != nil {
				return err
			}

			return offline.NewProxy(cfg.Offline.Addr, worker, a.logger, cfg.Server.ShutdownTimeout).Start(ctx)
		},
	}

	offlineCmd.Flags().String("addr", "", "Listen address (default :8081)")
	offlineCmd.Flags().String("origin", "", "Dashboard origin (default http://localhost:8080)")
	offlineCmd.Flags().String("redis-url", "", "Store caches in Redis instead of memory")
	bindFlag(offlineCmd, "offline.addr", "addr")
	bindFlag(offlineCmd, "offline.origin", "origin")
	bindFlag(offlineCmd, "offline.redis_url", "redis-url")

	rootCmd.AddCommand(offlineCmd)
}

func openStorage(ctx context.Context, redisURL string) (offline.Storage, func(), error) {
	if redisURL == "" {
		return offline.NewMemoryStorage(), func() {}, nil
	}
	rs, err := offline.NewRedisStorage(ctx, redisURL)
	if err != nil {
		return nil, nil, err
	}
	return rs, func() { _ = rs.Close() }, nil
}
