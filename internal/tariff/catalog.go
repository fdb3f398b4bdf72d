// Package tariff prices maintenance contracts from an injected tariff catalog.
package tariff

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/ardjee/forms/internal/model"
)

// TierPrices maps a subscription tier to a monthly base price.
type TierPrices map[model.Tier]float64

// FrequencyPrices maps a maintenance interval to its tier prices.
type FrequencyPrices map[model.Frequency]TierPrices

// Table holds the base tariffs of one contract type. A table is either keyed
// by sub-variant first (Variants) or directly by frequency (Prices).
type Table struct {
	DefaultVariant string                     `yaml:"default_variant,omitempty"`
	Variants       map[string]FrequencyPrices `yaml:"variants,omitempty"`
	Prices         FrequencyPrices            `yaml:"prices,omitempty"`
}

// Base returns the base price for the given key, reporting false when the
// table has no entry for it. An empty variant selects DefaultVariant.
func (t Table) Base(variant string, freq model.Frequency, tier model.Tier) (float64, bool) {
	prices := t.Prices
	if len(t.Variants) > 0 {
		if variant == "" {
			variant = t.DefaultVariant
		}
		prices = t.Variants[variant]
	}
	amount, ok := prices[freq][tier]
	return amount, ok
}

// Catalog is the complete set of tariffs and surcharges used by a Calculator.
type Catalog struct {
	Tables     map[model.ContractType]Table   `yaml:"tables"`
	Monitoring float64                        `yaml:"monitoring"`
	Distance   map[model.DistanceBand]float64 `yaml:"distance"`
}

// DistanceSurcharge returns the surcharge for band. Unknown or empty bands
// contribute nothing.
func (c Catalog) DistanceSurcharge(band model.DistanceBand) float64 {
	if band == "" {
		return 0
	}
	return c.Distance[band]
}

// Validate checks that every amount is non-negative and every key is a known
// frequency or tier.
func (c Catalog) Validate() error {
	if c.Monitoring < 0 {
		return eris.Errorf("tariff: negative monitoring surcharge %.2f", c.Monitoring)
	}
	for band, amount := range c.Distance {
		if !band.Valid() {
			return eris.Errorf("tariff: unknown distance band %q", band)
		}
		if amount < 0 {
			return eris.Errorf("tariff: negative surcharge for distance band %q", band)
		}
	}
	for ct, table := range c.Tables {
		if !ct.Valid() {
			return eris.Errorf("tariff: unknown contract type %q", ct)
		}
		if len(table.Variants) > 0 && table.DefaultVariant != "" {
			if _, ok := table.Variants[table.DefaultVariant]; !ok {
				return eris.Errorf("tariff: %s: default variant %q has no prices", ct, table.DefaultVariant)
			}
		}
		if err := validatePrices(ct, "", table.Prices); err != nil {
			return err
		}
		for variant, prices := range table.Variants {
			if err := validatePrices(ct, variant, prices); err != nil {
				return err
			}
		}
	}
	return nil
}

func validatePrices(ct model.ContractType, variant string, prices FrequencyPrices) error {
	for freq, tiers := range prices {
		if !freq.Valid() {
			return eris.Errorf("tariff: %s %s: unknown frequency %d", ct, variant, freq)
		}
		for tier, amount := range tiers {
			if !tier.Valid() {
				return eris.Errorf("tariff: %s %s: unknown tier %q", ct, variant, tier)
			}
			if amount < 0 {
				return eris.Errorf("tariff: %s %s %d %s: negative price", ct, variant, freq, tier)
			}
		}
	}
	return nil
}

// catalogFile mirrors Catalog with optional surcharges so a file can leave
// them out and inherit the defaults.
type catalogFile struct {
	Tables     map[model.ContractType]Table   `yaml:"tables"`
	Monitoring *float64                       `yaml:"monitoring"`
	Distance   map[model.DistanceBand]float64 `yaml:"distance"`
}

// LoadCatalog reads a tariff catalog from a YAML file. Surcharges missing
// from the file fall back to DefaultCatalog.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, eris.Wrapf(err, "tariff: read catalog %s", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML tariff catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Catalog{}, eris.Wrap(err, "tariff: parse catalog")
	}
	if len(f.Tables) == 0 {
		return Catalog{}, eris.New("tariff: catalog has no tables")
	}

	defaults := DefaultCatalog()
	cat := Catalog{
		Tables:     f.Tables,
		Monitoring: defaults.Monitoring,
		Distance:   f.Distance,
	}
	if f.Monitoring != nil {
		cat.Monitoring = *f.Monitoring
	}
	if cat.Distance == nil {
		cat.Distance = defaults.Distance
	}

	if err := cat.Validate(); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

// DefaultCatalog returns the production tariffs.
func DefaultCatalog() Catalog {
	return Catalog{
		Tables: map[model.ContractType]Table{
			model.ContractTypeCVKetel: {
				DefaultVariant: model.PowerBandUpTo45kW,
				Variants: map[string]FrequencyPrices{
					model.PowerBandUpTo45kW: {
						12: {model.TierMaintenance: 17.10, model.TierServicePlus: 23.17},
						18: {model.TierMaintenance: 13.06, model.TierServicePlus: 17.09},
						24: {model.TierMaintenance: 11.09, model.TierServicePlus: 14.08},
					},
					model.PowerBand45To70kW: {
						12: {model.TierMaintenance: 23.34, model.TierServicePlus: 32.35},
						18: {model.TierMaintenance: 17.52, model.TierServicePlus: 23.54},
						24: {model.TierMaintenance: 14.46, model.TierServicePlus: 18.96},
					},
				},
			},
			model.ContractTypeWarmtepompAllElectric: {
				Prices: FrequencyPrices{
					12: {model.TierMaintenance: 12.10, model.TierServicePlus: 18.17},
					18: {model.TierMaintenance: 10.06, model.TierServicePlus: 14.09},
					24: {model.TierMaintenance: 8.09, model.TierServicePlus: 11.08},
				},
			},
			model.ContractTypeWarmtepompHybride: {
				Prices: FrequencyPrices{
					12: {model.TierMaintenance: 8.29, model.TierServicePlus: 10.42},
					18: {model.TierMaintenance: 6.53, model.TierServicePlus: 8.95},
					24: {model.TierMaintenance: 5.65, model.TierServicePlus: 7.71},
				},
			},
			model.ContractTypeWarmtepompGrondgebonden: {
				Prices: FrequencyPrices{
					12: {model.TierMaintenance: 12.30, model.TierServicePlus: 18.42},
					18: {model.TierMaintenance: 10.23, model.TierServicePlus: 14.30},
					24: {model.TierMaintenance: 8.23, model.TierServicePlus: 11.16},
				},
			},
			model.ContractTypeGasboiler: {
				Prices: FrequencyPrices{
					12: {model.TierMaintenance: 8.94, model.TierServicePlus: 11.99},
					18: {model.TierMaintenance: 8.94, model.TierServicePlus: 11.99},
				},
			},
			model.ContractTypeAirco: {
				DefaultVariant: "1",
				Variants: map[string]FrequencyPrices{
					"1": {
						12: {model.TierMaintenance: 17.10, model.TierServicePlus: 23.17},
						18: {model.TierMaintenance: 13.06, model.TierServicePlus: 17.09},
						24: {model.TierMaintenance: 11.09, model.TierServicePlus: 14.08},
					},
					"2": {
						12: {model.TierMaintenance: 20.46, model.TierServicePlus: 30.37},
						18: {model.TierMaintenance: 15.61, model.TierServicePlus: 22.80},
						24: {model.TierMaintenance: 13.27, model.TierServicePlus: 18.91},
					},
					"3": {
						12: {model.TierMaintenance: 23.82, model.TierServicePlus: 37.56},
						18: {model.TierMaintenance: 18.16, model.TierServicePlus: 28.51},
						24: {model.TierMaintenance: 15.44, model.TierServicePlus: 23.73},
					},
					"4": {
						12: {model.TierMaintenance: 27.17, model.TierServicePlus: 44.76},
						18: {model.TierMaintenance: 20.71, model.TierServicePlus: 34.22},
						24: {model.TierMaintenance: 17.62, model.TierServicePlus: 28.56},
					},
				},
			},
		},
		Monitoring: 11.50,
		Distance: map[model.DistanceBand]float64{
			model.Distance0To15:  0,
			model.Distance15To30: 5.75,
			model.Distance31To50: 9.40,
		},
	}
}
