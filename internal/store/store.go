// Package store persists contracts and the legacy installation records they
// are matched against.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ardjee/forms/internal/model"
)

// ErrNotFound is returned (wrapped) when a contract does not exist.
var ErrNotFound = eris.New("store: not found")

// DefaultListLimit caps ListContracts when the filter leaves Limit unset.
const DefaultListLimit = 100

// ContractFilter narrows ListContracts.
type ContractFilter struct {
	Status model.Status       `json:"status,omitempty"`
	Type   model.ContractType `json:"contract_type,omitempty"`
	Limit  int                `json:"limit,omitempty"`
	Offset int                `json:"offset,omitempty"`
}

// UpdateFunc mutates a contract inside UpdateContract. Returning an error
// aborts the update and leaves the stored contract untouched.
type UpdateFunc func(c *model.Contract) error

// Store defines the persistence interface for contract intake.
type Store interface {
	// Contracts
	CreateContract(ctx context.Context, c *model.Contract) error
	GetContract(ctx context.Context, id string) (*model.Contract, error)
	ListContracts(ctx context.Context, filter ContractFilter) ([]model.Contract, error)
	// UpdateContract loads, mutates and writes back a contract in a single
	// transaction, so an attribute and the price derived from it are always
	// stored together.
	UpdateContract(ctx context.Context, id string, fn UpdateFunc) (*model.Contract, error)

	// Installations
	InsertInstallations(ctx context.Context, records []model.InstallationRecord) (int64, error)
	CountInstallations(ctx context.Context) (int64, error)
	QueryByPostalCodeAndCity(ctx context.Context, postalCode, city string) ([]model.InstallationRecord, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

func listLimit(f ContractFilter) int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}
