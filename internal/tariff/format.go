package tariff

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var dutch = message.NewPrinter(language.Dutch)

// FormatEUR renders an amount the way customers see it, e.g. "€ 17,10".
func FormatEUR(amount float64) string {
	return dutch.Sprintf("€ %.2f", amount)
}

// FormatMonthly renders a monthly price, or a placeholder when unknown.
func FormatMonthly(amount float64, ok bool) string {
	if !ok {
		return "prijs onbekend"
	}
	return FormatEUR(amount) + " per maand"
}
