package tariff

import (
	"math"
	"math/big"

	"go.uber.org/zap"

	"github.com/ardjee/forms/internal/model"
)

// Quote is a priced contract with its components. Components are unrounded;
// only Total is rounded.
type Quote struct {
	Base       float64 `json:"base"`
	Monitoring float64 `json:"monitoring"`
	Distance   float64 `json:"distance"`
	Total      float64 `json:"total"`
}

// Calculator computes monthly contract prices from a Catalog. It holds no
// mutable state and is safe for concurrent use.
type Calculator struct {
	catalog Catalog
}

// NewCalculator creates a Calculator for the given catalog.
func NewCalculator(catalog Catalog) *Calculator {
	return &Calculator{catalog: catalog}
}

// Catalog returns the catalog the calculator prices from.
func (c *Calculator) Catalog() Catalog {
	return c.catalog
}

// MonthlyPrice returns the monthly price for the contract as it stands. The
// second result is false when the price cannot be derived from the inputs.
func (c *Calculator) MonthlyPrice(contract model.Contract) (float64, bool) {
	return c.Recompute(contract, contract.Subscription.Frequency)
}

// Recompute returns the monthly price the contract would have at freq, with
// every other attribute unchanged. For contract types with a tariff table the
// stored price is never consulted; for other types the stored price is
// re-amortized over the new interval.
func (c *Calculator) Recompute(contract model.Contract, freq model.Frequency) (float64, bool) {
	if _, ok := c.catalog.Tables[contract.Type]; !ok {
		return Proportional(contract, freq)
	}
	q, ok := c.quote(contract, freq)
	if !ok {
		return 0, false
	}
	return q.Total, true
}

// Quote returns the price breakdown for a table-backed contract type. It
// reports false for types without a table, since a proportional price has
// no components.
func (c *Calculator) Quote(contract model.Contract) (Quote, bool) {
	return c.quote(contract, contract.Subscription.Frequency)
}

func (c *Calculator) quote(contract model.Contract, freq model.Frequency) (Quote, bool) {
	table, ok := c.catalog.Tables[contract.Type]
	if !ok {
		return Quote{}, false
	}

	sub := contract.Subscription
	if freq == 0 || sub.Tier == "" {
		return Quote{}, false
	}

	base, ok := table.Base(contract.SubVariant(), freq, sub.Tier)
	if !ok {
		zap.L().Debug("tariff: no base price",
			zap.String("contract_type", string(contract.Type)),
			zap.String("variant", contract.SubVariant()),
			zap.Int("frequency", int(freq)),
			zap.String("tier", string(sub.Tier)),
		)
		return Quote{}, false
	}

	q := Quote{
		Base:     base,
		Distance: c.catalog.DistanceSurcharge(sub.DistanceBand),
	}
	if sub.Monitoring {
		q.Monitoring = c.catalog.Monitoring
	}
	q.Total = Round(q.Base + q.Monitoring + q.Distance)
	return q, true
}

// Proportional re-amortizes the stored price over a new interval:
// oldPrice * oldFrequency / newFrequency. Flat surcharges embedded in the
// stored price are scaled along with the base, which is an approximation.
func Proportional(contract model.Contract, freq model.Frequency) (float64, bool) {
	oldPrice, ok := contract.Price()
	oldFreq := contract.Subscription.Frequency
	if !ok || oldPrice <= 0 || oldFreq <= 0 || freq <= 0 {
		return 0, false
	}
	return Round(oldPrice * float64(oldFreq) / float64(freq)), true
}

var half = big.NewFloat(0.5)

// Round rounds an amount to cents. The exact binary value of amount is
// rounded, not the decimal it was written as: 0.015 is stored slightly below
// 0.015 and rounds to 0.01. Exact halves round up.
func Round(amount float64) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return amount
	}
	if amount < 0 {
		return -Round(-amount)
	}

	scaled := new(big.Float).SetPrec(256).SetFloat64(amount)
	scaled.Mul(scaled, big.NewFloat(100))
	cents, _ := scaled.Int(nil)
	frac := new(big.Float).SetPrec(256).Sub(scaled, new(big.Float).SetInt(cents))
	if frac.Cmp(half) >= 0 {
		cents.Add(cents, big.NewInt(1))
	}

	c, _ := new(big.Float).SetInt(cents).Float64()
	return c / 100
}
