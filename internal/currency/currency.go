// Package currency formats amounts for display.
//
// Calculations elsewhere keep full float64 precision; this is the only place
// amounts are rounded, to whole rupiah.
package currency

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Indonesian)

// Round returns amount rounded half away from zero to whole currency units.
// Values outside the int64 range are clamped; NaN is 0.
func Round(amount float64) int64 {
	switch {
	case math.IsNaN(amount):
		return 0
	case amount >= math.MaxInt64:
		return math.MaxInt64
	case amount <= math.MinInt64:
		return math.MinInt64
	}
	return decimal.NewFromFloat(amount).Round(0).IntPart()
}

// FormatRupiah renders amount as whole rupiah with Indonesian digit grouping,
// e.g. 60000 -> "Rp 60.000". Non-finite amounts render as "Rp -".
func FormatRupiah(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "Rp -"
	}
	rounded := decimal.NewFromFloat(amount).Round(0).InexactFloat64()
	return printer.Sprintf("Rp %.0f", rounded)
}
