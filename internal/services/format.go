package services

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var englishPrinter = message.NewPrinter(language.English)

// formatGrouped renders a number with thousands separators and a fixed number
// of fraction digits, matching the formatting used in insight texts.
func formatGrouped(v float64, decimals int) string {
	return englishPrinter.Sprint(number.Decimal(v,
		number.MaxFractionDigits(decimals),
		number.MinFractionDigits(decimals),
	))
}
