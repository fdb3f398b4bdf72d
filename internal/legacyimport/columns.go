package legacyimport

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Columns holds the zero-based positions of the fields in an export.
type Columns struct {
	Address     int
	PostalCode  int
	City        int
	Description int
}

func (c Columns) width() int {
	return max(c.Address, c.PostalCode, c.City, c.Description) + 1
}

// DetectColumns finds the required columns in a header row by substring, so
// "Object adres" and "Installatie omschrijving" are recognised. The address
// column is the first containing "adres" but not "omschrijving".
func DetectColumns(header []string) (Columns, error) {
	cols := Columns{Address: -1, PostalCode: -1, City: -1, Description: -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if cols.Address < 0 && strings.Contains(name, "adres") && !strings.Contains(name, "omschrijving") {
			cols.Address = i
		}
		if cols.PostalCode < 0 && strings.Contains(name, "postcode") {
			cols.PostalCode = i
		}
		if cols.City < 0 && strings.Contains(name, "plaats") {
			cols.City = i
		}
		if cols.Description < 0 && (strings.Contains(name, "installatie") || strings.Contains(name, "omschrijving")) {
			cols.Description = i
		}
	}

	var missing []string
	if cols.Address < 0 {
		missing = append(missing, "adres")
	}
	if cols.PostalCode < 0 {
		missing = append(missing, "postcode")
	}
	if cols.City < 0 {
		missing = append(missing, "plaats")
	}
	if cols.Description < 0 {
		missing = append(missing, "installatie omschrijving")
	}
	if len(missing) > 0 {
		return cols, eris.Errorf("legacyimport: missing columns %s in header %q", strings.Join(missing, ", "), header)
	}
	return cols, nil
}

// sanitize strips control characters other than tab, newline and carriage
// return, then trims surrounding space.
func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if (r < 0x20 && r != '\t' && r != '\n' && r != '\r') || r == 0x7f {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
