package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zachdehooge/observatorio/internal/aggregate"
	"github.com/Zachdehooge/observatorio/internal/fetcher"
	"github.com/Zachdehooge/observatorio/internal/format"
)

// addListCmd adds a 'list' subcommand to show alerts and totals without
// generating HTML.
func addListCmd(rootCmd *cobra.Command) {
	var criticalOnly bool

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List active alerts and dashboard totals",
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

			stats := aggregate.Summarize(c)
			cmd.Println(fmt.Sprintf("BOE: %s documentos", format.Count(stats.TotalBulletin)))
			cmd.Println(fmt.Sprintf("Subvenciones: %s (%s)", format.Count(stats.TotalSubsidies), format.Currency(stats.SubsidyTotal)))
			cmd.Println(fmt.Sprintf("Gasto: %s (%s)", format.Count(stats.TotalSpending), format.Currency(stats.SpendingTotal)))
			cmd.Println(fmt.Sprintf("Alertas: %s (%s críticas)", format.Count(stats.TotalAlerts), format.Count(stats.CriticalAlerts)))

			if len(c.Alerts) == 0 {
				cmd.Println("No hay alertas activas")
				return nil
			}

			cmd.Println("Alertas activas:")
			for _, alert := range c.Alerts {
				if criticalOnly && !alert.Critical() {
					continue
				}
				cmd.Println("---")
				cmd.Println(fmt.Sprintf("Tipo: %s", alert.Kind))
				cmd.Println(fmt.Sprintf("Mensaje: %s", alert.Message))
				cmd.Println(fmt.Sprintf("Motivo: %s", alert.Reason))
				if alert.Link != "" {
					cmd.Println(fmt.Sprintf("Enlace: %s", alert.Link))
				}
			}
			return nil
		},
	}

	listCmd.Flags().BoolVar(&criticalOnly, "criticas", false, "Only list critical alerts")
	rootCmd.AddCommand(listCmd)
}
