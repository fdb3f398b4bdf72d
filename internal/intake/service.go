// Package intake accepts maintenance contract submissions and applies the
// back-office edits that change their price.
package intake

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ardjee/forms/internal/model"
	"github.com/ardjee/forms/internal/store"
	"github.com/ardjee/forms/internal/tariff"
)

// ContractStart is the start date given to every new contract.
var ContractStart = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

// Matcher finds the legacy installation behind a service address.
type Matcher interface {
	FindMatch(ctx context.Context, address, postalCode, city string) *model.InstallationMatch
}

// Service orchestrates submission and edits. It is safe for concurrent use.
type Service struct {
	store   store.Store
	matcher Matcher
	calc    *tariff.Calculator
}

// NewService creates a Service. A nil matcher disables installation
// matching.
func NewService(st store.Store, m Matcher, calc *tariff.Calculator) *Service {
	return &Service{store: st, matcher: m, calc: calc}
}

// Change is the outcome of an edit.
type Change struct {
	Contract *model.Contract `json:"contract"`
	// PriceUnknown is set when the edit was stored but no price could be
	// derived for it; the previous price was left in place.
	PriceUnknown bool `json:"price_unknown"`
}

// Submit validates, prices, matches and stores a new contract. Matching
// problems never fail a submission.
func (s *Service) Submit(ctx context.Context, c model.Contract) (*model.Contract, error) {
	if err := Validate(c); err != nil {
		return nil, err
	}

	c.ID = ""
	c.Status = model.StatusNew
	c.StartDate = ContractStart
	// A new contract has no stored price to re-amortize; any client value is
	// discarded before pricing.
	c.MonthlyPrice = nil
	c.SetPrice(s.calc.MonthlyPrice(c))
	if _, ok := c.Price(); !ok {
		zap.L().Warn("intake: contract submitted without price",
			zap.String("contract_type", string(c.Type)),
			zap.Int("frequency", int(c.Subscription.Frequency)),
			zap.String("tier", string(c.Subscription.Tier)),
		)
	}

	c.InstallationMatch = nil
	if s.matcher != nil {
		address, postalCode, city := c.ServiceAddress()
		c.InstallationMatch = s.matcher.FindMatch(ctx, address, postalCode, city)
	}

	if err := s.store.CreateContract(ctx, &c); err != nil {
		return nil, eris.Wrap(err, "intake: submit")
	}

	zap.L().Info("intake: contract submitted",
		zap.String("id", c.ID),
		zap.String("contract_type", string(c.Type)),
		zap.Bool("installation_matched", c.InstallationMatch != nil),
	)
	return &c, nil
}

// Quote prices a contract without storing it. A price carried by c is
// ignored.
func (s *Service) Quote(c model.Contract) (float64, bool) {
	c.MonthlyPrice = nil
	return s.calc.MonthlyPrice(c)
}

// Get returns a stored contract.
func (s *Service) Get(ctx context.Context, id string) (*model.Contract, error) {
	return s.store.GetContract(ctx, id)
}

// List returns stored contracts, newest first.
func (s *Service) List(ctx context.Context, filter store.ContractFilter) ([]model.Contract, error) {
	return s.store.ListContracts(ctx, filter)
}

// ChangeFrequency sets a new maintenance interval and recomputes the price.
func (s *Service) ChangeFrequency(ctx context.Context, id string, freq model.Frequency) (*Change, error) {
	if !freq.Valid() {
		return nil, invalid("subscription.frequency", "Kies een onderhoudsfrequentie.")
	}

	return s.update(ctx, id, func(c *model.Contract) (float64, bool, error) {
		// Recompute before mutating: the proportional fallback needs the
		// stored frequency.
		price, ok := s.calc.Recompute(*c, freq)
		c.Subscription.Frequency = freq
		return price, ok, nil
	})
}

// SetMonitoring toggles the monitoring add-on and recomputes the price.
func (s *Service) SetMonitoring(ctx context.Context, id string, on bool) (*Change, error) {
	return s.update(ctx, id, func(c *model.Contract) (float64, bool, error) {
		if on && !c.Type.IsHeatPump() {
			return 0, false, invalid("subscription.monitoring", "Monitoring is alleen beschikbaar voor warmtepompen.")
		}
		c.Subscription.Monitoring = on
		price, ok := s.calc.MonthlyPrice(*c)
		return price, ok, nil
	})
}

// ChangeStatus moves a contract through the back-office lifecycle.
func (s *Service) ChangeStatus(ctx context.Context, id string, status model.Status) (*model.Contract, error) {
	if !status.Valid() {
		return nil, invalid("status", "onbekende status")
	}
	c, err := s.store.UpdateContract(ctx, id, func(c *model.Contract) error {
		c.Status = status
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "intake: change status")
	}
	return c, nil
}

// update applies edit and stores its price in the same transaction. When
// edit reports the price as unknown only the attribute change is stored.
func (s *Service) update(ctx context.Context, id string, edit func(c *model.Contract) (float64, bool, error)) (*Change, error) {
	change := &Change{}
	c, err := s.store.UpdateContract(ctx, id, func(c *model.Contract) error {
		price, ok, err := edit(c)
		if err != nil {
			return err
		}
		if ok {
			c.SetPrice(price, true)
		} else {
			change.PriceUnknown = true
		}
		return nil
	})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return nil, verr
		}
		return nil, eris.Wrapf(err, "intake: update contract %s", id)
	}

	if change.PriceUnknown {
		zap.L().Warn("intake: price could not be recomputed, only the attribute was updated",
			zap.String("id", id))
	}
	change.Contract = c
	return change, nil
}
