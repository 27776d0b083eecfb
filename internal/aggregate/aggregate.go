package aggregate

import (
	"sort"

	"github.com/Zachdehooge/observatorio/internal/fetcher"
)

// PreviewSize is the number of rows shown in the subsidy and spending tables.
const PreviewSize = 5

// Promise completion colours, highest bucket first.
const (
	ColorGreen = "#10b981"
	ColorAmber = "#f59e0b"
	ColorRed   = "#ef4444"
	ColorGray  = "#64748b"
)

// SubsidyTotal sums the amount of every subsidy.
func SubsidyTotal(items []fetcher.Subsidy) float64 {
	var total float64
	for _, s := range items {
		total += s.Amount
	}
	return total
}

// SpendingTotal sums the amount of every spending line.
func SpendingTotal(items []fetcher.SpendingLine) float64 {
	var total float64
	for _, s := range items {
		total += s.Amount
	}
	return total
}

// CriticalAlerts counts alerts of the critical severity kind.
func CriticalAlerts(alerts []fetcher.Alert) int {
	n := 0
	for _, a := range alerts {
		if a.Critical() {
			n++
		}
	}
	return n
}

// Head returns at most n leading items, keeping input order.
func Head[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

// PromiseColor maps a completion percentage to its badge colour.
// Bucket boundaries belong to the higher bucket.
func PromiseColor(completion float64) string {
	switch {
	case completion >= 75:
		return ColorGreen
	case completion >= 50:
		return ColorAmber
	case completion >= 25:
		return ColorRed
	default:
		return ColorGray
	}
}

// MunicipalityTotal holds the subsidies awarded to one municipality.
type MunicipalityTotal struct {
	Count int
	Total float64
}

// ForMunicipality filters subsidies whose municipality is exactly name
// (case-sensitive) and sums them.
func ForMunicipality(items []fetcher.Subsidy, name string) MunicipalityTotal {
	var mt MunicipalityTotal
	for _, s := range items {
		if s.Municipality == name {
			mt.Count++
			mt.Total += s.Amount
		}
	}
	return mt
}

// BeneficiaryTotal is one row of the beneficiary ranking.
type BeneficiaryTotal struct {
	Beneficiary string
	Total       float64
}

// TopBeneficiaries groups subsidies by beneficiary and returns the n largest
// totals. Ties keep first-seen order.
func TopBeneficiaries(items []fetcher.Subsidy, n int) []BeneficiaryTotal {
	index := make(map[string]int)
	var ranking []BeneficiaryTotal
	for _, s := range items {
		i, ok := index[s.Beneficiary]
		if !ok {
			i = len(ranking)
			index[s.Beneficiary] = i
			ranking = append(ranking, BeneficiaryTotal{Beneficiary: s.Beneficiary})
		}
		ranking[i].Total += s.Amount
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Total > ranking[j].Total
	})
	return Head(ranking, n)
}
