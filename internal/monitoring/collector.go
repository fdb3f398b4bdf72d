package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ardjee/forms/internal/model"
	"github.com/ardjee/forms/internal/resilience"
	"github.com/ardjee/forms/internal/store"
)

// collectPageSize is the number of contracts read per page while walking
// back to the lookback cutoff.
const collectPageSize = 500

// MetricsSnapshot holds a point-in-time view of intake health.
type MetricsSnapshot struct {
	// Contract metrics (within lookback window).
	ContractsTotal int                  `json:"contracts_total"`
	ByStatus       map[model.Status]int `json:"by_status"`
	Unpriced       int                  `json:"unpriced"`
	UnpricedRate   float64              `json:"unpriced_rate"`
	Matched        int                  `json:"matched"`
	MatchRate      float64              `json:"match_rate"`

	// Installation data.
	Installations int64 `json:"installations"`

	// State of the installation lookup breaker, empty when there is none.
	LookupCircuit string `json:"lookup_circuit,omitempty"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Source is the part of the store the collector reads.
type Source interface {
	ListContracts(ctx context.Context, filter store.ContractFilter) ([]model.Contract, error)
	CountInstallations(ctx context.Context) (int64, error)
}

// BreakerState reports the state of a circuit breaker.
type BreakerState interface {
	State() resilience.State
}

// Collector gathers metrics from the store.
type Collector struct {
	source  Source
	breaker BreakerState
	now     func() time.Time
}

// NewCollector creates a new metrics collector. breaker may be nil.
func NewCollector(src Source, breaker BreakerState) *Collector {
	return &Collector{source: src, breaker: breaker, now: time.Now}
}

// Collect gathers a snapshot of intake metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		ByStatus:      map[model.Status]int{},
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	// Contracts are listed newest first, so stop at the first one before the
	// cutoff.
	for offset := 0; ; offset += collectPageSize {
		page, err := c.source.ListContracts(ctx, store.ContractFilter{Limit: collectPageSize, Offset: offset})
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: list contracts")
		}
		done := len(page) < collectPageSize
		for _, ct := range page {
			if ct.CreatedAt.Before(cutoff) {
				done = true
				break
			}
			snap.ContractsTotal++
			snap.ByStatus[ct.Status]++
			if ct.MonthlyPrice == nil {
				snap.Unpriced++
			}
			if ct.InstallationMatch != nil {
				snap.Matched++
			}
		}
		if done {
			break
		}
	}

	if snap.ContractsTotal > 0 {
		snap.UnpricedRate = float64(snap.Unpriced) / float64(snap.ContractsTotal)
		snap.MatchRate = float64(snap.Matched) / float64(snap.ContractsTotal)
	}

	n, err := c.source.CountInstallations(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count installations")
	}
	snap.Installations = n

	if c.breaker != nil {
		snap.LookupCircuit = c.breaker.State().String()
	}

	return snap, nil
}
