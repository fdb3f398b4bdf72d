// Package matcher reconciles a submitted service address with legacy
// installation records. Records are blocked on exact postal code and city,
// then ranked by normalized edit distance on the address.
package matcher

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ardjee/forms/internal/model"
)

// DefaultThreshold is the minimum similarity for a candidate to match.
const DefaultThreshold = 0.85

// Lookup returns the installation records registered at exactly the given
// normalized postal code and city.
type Lookup interface {
	QueryByPostalCodeAndCity(ctx context.Context, postalCode, city string) ([]model.InstallationRecord, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, postalCode, city string) ([]model.InstallationRecord, error)

// QueryByPostalCodeAndCity calls f.
func (f LookupFunc) QueryByPostalCodeAndCity(ctx context.Context, postalCode, city string) ([]model.InstallationRecord, error) {
	return f(ctx, postalCode, city)
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThreshold overrides DefaultThreshold. Values outside (0, 1] are ignored.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 && threshold <= 1 {
			m.threshold = threshold
		}
	}
}

// WithTimeout bounds each lookup. Zero leaves the caller's context alone.
func WithTimeout(d time.Duration) Option {
	return func(m *Matcher) {
		m.timeout = d
	}
}

// Matcher finds the legacy installation behind a service address. It keeps
// no state between calls.
type Matcher struct {
	lookup    Lookup
	threshold float64
	timeout   time.Duration
}

// New creates a Matcher reading candidates from lookup.
func New(lookup Lookup, opts ...Option) *Matcher {
	m := &Matcher{lookup: lookup, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Threshold returns the minimum similarity a candidate needs.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// FindMatch returns the installation whose address is most similar to
// address among the records at postalCode and city, or nil when none reaches
// the threshold. Lookup failures are logged and reported as no match.
func (m *Matcher) FindMatch(ctx context.Context, address, postalCode, city string) *model.InstallationMatch {
	candidates, err := m.Candidates(ctx, address, postalCode, city)
	if err != nil {
		zap.L().Warn("matcher: installation lookup failed",
			zap.String("postal_code", NormalizePostalCode(postalCode)),
			zap.String("city", NormalizeCity(city)),
			zap.Error(err),
		)
		return nil
	}

	var best *Candidate
	for i := range candidates {
		c := &candidates[i]
		if c.Score < m.threshold {
			continue
		}
		if best == nil || c.Score > best.Score {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	return &model.InstallationMatch{Description: best.Record.Description}
}

// Candidate is an installation record scored against a submitted address.
type Candidate struct {
	Record model.InstallationRecord
	Score  float64
}

// Candidates returns every record in the postal code and city block with its
// score, in lookup order.
func (m *Matcher) Candidates(ctx context.Context, address, postalCode, city string) ([]Candidate, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	records, err := m.lookup.QueryByPostalCodeAndCity(ctx, NormalizePostalCode(postalCode), NormalizeCity(city))
	if err != nil {
		return nil, err
	}

	key := NormalizeAddress(address)
	out := make([]Candidate, 0, len(records))
	for _, rec := range records {
		out = append(out, Candidate{
			Record: rec,
			Score:  Similarity(key, NormalizeAddress(rec.Address)),
		})
	}
	return out, nil
}

// Ranked sorts candidates by descending score, keeping lookup order for ties.
func Ranked(candidates []Candidate) []Candidate {
	out := append([]Candidate(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
