package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Zachdehooge/observatorio/internal/config"
	"github.com/Zachdehooge/observatorio/internal/dashboard"
	"github.com/Zachdehooge/observatorio/internal/generator"
	"github.com/Zachdehooge/observatorio/internal/mapview"
)

var (
	configFile string
	outputFile string
	verbose    bool
	interval   int
	watchMode  bool

	v = config.New()
)

func main() {
	// A missing .env is fine; the environment and config file still apply.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "observatorio",
		Short: "Spanish public-data transparency dashboard",
		Long: `Observatorio loads the BOE, alert, subsidy, spending and promise
fixtures and renders them as a dashboard, either as a static HTML page
or served live with "observatorio serve".`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApplication(cfg)
			if err != nil {
				return err
			}
			if err := generateDashboardHTML(cmd, a, dashboard.TriggerLoad); err != nil {
				return fmt.Errorf("failed to generate dashboard: %w", err)
			}
			if watchMode {
				return runWatchMode(cmd, a)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default ./observatorio.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("datos", "", "Fixture directory")
	rootCmd.PersistentFlags().String("base-url", "", "Base URL the fixtures are fetched from")
	_ = v.BindPFlag("fixtures.dir", rootCmd.PersistentFlags().Lookup("datos"))
	_ = v.BindPFlag("fixtures.base_url", rootCmd.PersistentFlags().Lookup("base-url"))

	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "observatorio.html", "Output HTML file path")
	rootCmd.Flags().IntVarP(&interval, "interval", "i", 300, "Update interval in seconds (minimum 30)")
	rootCmd.Flags().BoolVar(&watchMode, "watch", false, "Continuously regenerate the dashboard HTML")

	addServeCmd(rootCmd)
	addListCmd(rootCmd)
	addExportCmd(rootCmd)
	addReportCmd(rootCmd)
	addOfflineCmd(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment into a Config. The
// --verbose flag lowers the log level to debug.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// generateDashboardHTML runs one cycle and writes the standalone page.
func generateDashboardHTML(cmd *cobra.Command, a *application, trigger dashboard.Trigger) error {
	if verbose {
		cmd.Println("Loading dashboard data...")
	}

	snap, err := a.refresher.Refresh(cmd.Context(), trigger)
	if err != nil {
		return err
	}

	if verbose {
		cmd.Println(fmt.Sprintf("Generating HTML to %s...", outputFile))
	}
	now := time.Now()
	page := generator.Page{
		View:           generator.NewView(snap.Collections, now),
		Map:            mapview.Build(a.mapConfig, snap.Boundaries, snap.Collections.Subsidies),
		RefreshSeconds: interval,
	}
	if err := a.renderer.GenerateDashboardHTML(page, outputFile); err != nil {
		return fmt.Errorf("failed to generate HTML: %w", err)
	}

	cmd.Println(fmt.Sprintf("Dashboard saved to %s", outputFile))
	return nil
}

// runWatchMode regenerates the page every interval seconds until interrupted.
func runWatchMode(cmd *cobra.Command, a *application) error {
	if interval < 30 {
		interval = 30
	}

	ctx, stop := signalContext()
	defer stop()
	cmd.SetContext(ctx)

	cmd.Println(fmt.Sprintf("Watch mode activated. Updating every %d seconds. Press Ctrl+C to stop.", interval))
	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := generateDashboardHTML(cmd, a, dashboard.TriggerTimer); err != nil {
				cmd.PrintErrln(fmt.Errorf("update failed: %w", err))
			}
		}
	}
}

// bindFlag ties a command flag to a config key.
func bindFlag(cmd *cobra.Command, key, flag string) {
	_ = v.BindPFlag(key, cmd.Flags().Lookup(flag))
}
