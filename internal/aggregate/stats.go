package aggregate

import "github.com/Zachdehooge/observatorio/internal/fetcher"

// Stats is the statistics panel, recomputed from the current collections on
// every render.
type Stats struct {
	TotalAlerts    int
	CriticalAlerts int
	TotalBulletin  int
	TotalSubsidies int
	SubsidyTotal   float64
	TotalSpending  int
	SpendingTotal  float64
}

// Summarize computes the statistics panel for c.
func Summarize(c fetcher.Collections) Stats {
	return Stats{
		TotalAlerts:    len(c.Alerts),
		CriticalAlerts: CriticalAlerts(c.Alerts),
		TotalBulletin:  len(c.Bulletin),
		TotalSubsidies: len(c.Subsidies),
		SubsidyTotal:   SubsidyTotal(c.Subsidies),
		TotalSpending:  len(c.Spending),
		SpendingTotal:  SpendingTotal(c.Spending),
	}
}
