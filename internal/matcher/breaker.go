package matcher

import (
	"context"

	"github.com/ardjee/forms/internal/model"
	"github.com/ardjee/forms/internal/resilience"
)

type breakerLookup struct {
	next    Lookup
	breaker *resilience.Breaker
}

// WithBreaker guards lookup with a circuit breaker. While the breaker is open
// queries fail fast with resilience.ErrCircuitOpen.
func WithBreaker(lookup Lookup, breaker *resilience.Breaker) Lookup {
	return &breakerLookup{next: lookup, breaker: breaker}
}

func (b *breakerLookup) QueryByPostalCodeAndCity(ctx context.Context, postalCode, city string) ([]model.InstallationRecord, error) {
	return resilience.Call(ctx, b.breaker, func(ctx context.Context) ([]model.InstallationRecord, error) {
		return b.next.QueryByPostalCodeAndCity(ctx, postalCode, city)
	})
}
