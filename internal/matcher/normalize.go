package matcher

import (
	"strings"
	"unicode"
)

// NormalizeAddress reduces an address to its comparison key: lowercase with
// every character outside [a-z0-9] removed. Accented letters are dropped,
// not folded.
func NormalizeAddress(address string) string {
	lower := strings.ToLower(address)
	var b strings.Builder
	b.Grow(len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// NormalizePostalCode uppercases a postal code and strips all whitespace, so
// "1234 ab" and "1234AB" block together.
func NormalizePostalCode(postalCode string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, postalCode)
}

// NormalizeCity uppercases and trims a city name.
func NormalizeCity(city string) string {
	return strings.ToUpper(strings.TrimSpace(city))
}
