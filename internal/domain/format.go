package domain

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usd = message.NewPrinter(language.AmericanEnglish)

// FormatValuation renders an estimated value the way listing cards show it:
// $1.2M, $850K, or whole dollars below a thousand.
func FormatValuation(v *float64) string {
	if v == nil || *v == 0 {
		return "N/A"
	}
	// The unit is picked after rounding so 999,999 reads $1.0M, not $1000K.
	switch value := *v; {
	case math.Round(value/1_000) >= 1_000:
		return fmt.Sprintf("$%.1fM", value/1_000_000)
	case math.Round(value) >= 1_000:
		return fmt.Sprintf("$%dK", int64(math.Round(value/1_000)))
	default:
		return FormatPrice(value)
	}
}

// FormatPrice renders whole dollars with digit grouping, e.g. $1,250,000.
func FormatPrice(v float64) string {
	return usd.Sprintf("$%d", int64(math.Round(v)))
}
