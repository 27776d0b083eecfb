// Package format renders amounts the way the es-ES locale does: "." as the
// thousands separator, zero decimals for currency, and the euro sign after
// the number separated by a non-breaking space.
package format

import (
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
)

const (
	groupedLayout = "#.###,"
	euroSuffix    = "\u00a0€"
	// es-ES only groups thousands from five integer digits upward.
	minGrouped = 10000
)

// Currency formats amount as whole euros, e.g. 1234567.4 -> "1.234.567 €".
func Currency(amount float64) string {
	return Number(math.Round(amount)) + euroSuffix
}

// Number formats n with es-ES thousands grouping and no decimals.
func Number(n float64) string {
	r := int(math.Round(n))
	if r > -minGrouped && r < minGrouped {
		return strconv.Itoa(r)
	}
	return humanize.FormatInteger(groupedLayout, r)
}

// Count formats an item count.
func Count(n int) string {
	return Number(float64(n))
}
