package model

import "time"

// InstallationRecord is one row of the legacy installation import. Postal
// code and city are stored normalized so lookups can use exact equality.
type InstallationRecord struct {
	Address     string    `json:"address"`
	PostalCode  string    `json:"postal_code"`
	City        string    `json:"city"`
	Description string    `json:"description"`
	ImportedAt  time.Time `json:"imported_at"`
}
