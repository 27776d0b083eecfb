package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/Zachdehooge/observatorio/internal/fetcher"
	"github.com/Zachdehooge/observatorio/internal/generator"
)

// addExportCmd adds 'export', which writes the aggregated envelope to a file.
func addExportCmd(rootCmd *cobra.Command) {
	var output string

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write all collections as one JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApplication(cfg)
			if err != nil {
				return err
			}

			env, err := fetcher.BuildEnvelope(cmd.Context(), a.source, cfg.Envelope.Version, time.Now())
			if err != nil {
				return fmt.Errorf("failed to build envelope: %w", err)
			}

			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "    ")
			if err := enc.Encode(env); err != nil {
				return fmt.Errorf("failed to encode envelope: %w", err)
			}
			if err := atomic.WriteFile(output, &buf); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			cmd.Println(fmt.Sprintf("Datos exportados a %s", output))
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "datos.json", "Output JSON file path")
	rootCmd.AddCommand(exportCmd)
}

// addReportCmd adds 'report', the beneficiary report page.
func addReportCmd(rootCmd *cobra.Command) {
	var output string

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the beneficiary report HTML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApplication(cfg)
			if err != nil {
				return err
			}

			c, err := fetcher.FetchAll(cmd.Context(), a.source)
			if err != nil {
				return fmt.Errorf("failed to fetch dashboard data: %w", err)
			}
			if err := a.renderer.GenerateReportHTML(generator.NewReport(c, time.Now()), output); err != nil {
				return fmt.Errorf("failed to generate report: %w", err)
			}
			cmd.Println(fmt.Sprintf("Informe guardado en %s", output))
			return nil
		},
	}
	reportCmd.Flags().StringVarP(&output, "output", "o", "informe.html", "Output HTML file path")
	rootCmd.AddCommand(reportCmd)
}
