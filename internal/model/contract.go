package model

import (
	"strconv"
	"time"
)

// ContractType identifies the appliance a maintenance contract covers.
type ContractType string

const (
	ContractTypeCVKetel                 ContractType = "cv-ketel"
	ContractTypeWarmtepompAllElectric   ContractType = "warmtepomp-all-electric"
	ContractTypeWarmtepompHybride       ContractType = "warmtepomp-hybride"
	ContractTypeWarmtepompGrondgebonden ContractType = "warmtepomp-grondgebonden"
	ContractTypeAirco                   ContractType = "airco"
	ContractTypeLuchtverwarmer          ContractType = "luchtverwarmer"
	ContractTypeGasboiler               ContractType = "gasboiler"
	ContractTypeGashaardKachel          ContractType = "gashaard-kachel"
	ContractTypeGeiser                  ContractType = "geiser"
	ContractTypeVentilatiebox           ContractType = "mechanische-ventilatiebox"
	ContractTypeWarmtepompboiler        ContractType = "warmtepompboiler"
	ContractTypeWarmteTerugwinUnit      ContractType = "warmte-terugwin-unit"
	ContractTypeZonneboiler             ContractType = "zonneboiler"
)

// ContractTypes lists every supported contract type in display order.
var ContractTypes = []ContractType{
	ContractTypeCVKetel,
	ContractTypeWarmtepompAllElectric,
	ContractTypeWarmtepompHybride,
	ContractTypeWarmtepompGrondgebonden,
	ContractTypeAirco,
	ContractTypeLuchtverwarmer,
	ContractTypeGasboiler,
	ContractTypeGashaardKachel,
	ContractTypeGeiser,
	ContractTypeVentilatiebox,
	ContractTypeWarmtepompboiler,
	ContractTypeWarmteTerugwinUnit,
	ContractTypeZonneboiler,
}

// Valid reports whether t is a known contract type.
func (t ContractType) Valid() bool {
	for _, known := range ContractTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsHeatPump reports whether t is one of the heat pump variants. Only heat
// pumps can carry the monitoring add-on.
func (t ContractType) IsHeatPump() bool {
	switch t {
	case ContractTypeWarmtepompAllElectric, ContractTypeWarmtepompHybride, ContractTypeWarmtepompGrondgebonden:
		return true
	}
	return false
}

// Status is the back-office lifecycle state of a contract.
type Status string

const (
	StatusNew        Status = "Nieuw"
	StatusInProgress Status = "In behandeling"
	StatusActive     Status = "Actief"
	StatusCancelled  Status = "Geannuleerd"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusActive, StatusCancelled:
		return true
	}
	return false
}

// Frequency is the maintenance interval in months. Zero means not chosen.
type Frequency int

const (
	Frequency12 Frequency = 12
	Frequency18 Frequency = 18
	Frequency24 Frequency = 24
)

// Valid reports whether f is one of the offered intervals.
func (f Frequency) Valid() bool {
	return f == Frequency12 || f == Frequency18 || f == Frequency24
}

// Tier is the subscription level. The empty tier means not chosen.
type Tier string

const (
	TierMaintenance Tier = "onderhoud"
	TierServicePlus Tier = "service-plus"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierMaintenance || t == TierServicePlus
}

// DistanceBand is the travel-distance surcharge bracket. Empty means no band.
type DistanceBand string

const (
	Distance0To15  DistanceBand = "0-15km"
	Distance15To30 DistanceBand = "15-30km"
	Distance31To50 DistanceBand = "31-50km"
)

// Valid reports whether b is a known band. The empty band is not valid but
// is accepted everywhere as "no surcharge".
func (b DistanceBand) Valid() bool {
	return b == Distance0To15 || b == Distance15To30 || b == Distance31To50
}

// PowerBand values for cv-ketel contracts.
const (
	PowerBandUpTo45kW = "tot-45kw"
	PowerBand45To70kW = "45-70kw"
)

// Customer holds the billing party of a contract.
type Customer struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// DeviceLocation is where the appliance is installed when that differs from
// the customer's address.
type DeviceLocation struct {
	Address    string `json:"address,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	City       string `json:"city,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Appliance describes the maintained device.
type Appliance struct {
	Brand             string `json:"brand,omitempty"`
	Model             string `json:"model,omitempty"`
	BuildYear         string `json:"build_year,omitempty"`
	SerialNumber      string `json:"serial_number,omitempty"`
	PowerBand         string `json:"power_band,omitempty"`   // cv-ketel only
	IndoorUnits       int    `json:"indoor_units,omitempty"` // airco only
	AlreadyMaintained bool   `json:"already_maintained,omitempty"`
}

// Subscription holds the priced attributes of a contract.
type Subscription struct {
	Frequency    Frequency    `json:"frequency,omitempty"`
	Tier         Tier         `json:"tier,omitempty"`
	Monitoring   bool         `json:"monitoring"`
	DistanceBand DistanceBand `json:"distance_band,omitempty"`
}

// InstallationMatch is what survives of a matched legacy installation record.
type InstallationMatch struct {
	Description string `json:"installation_description"`
}

// Contract is a submitted maintenance contract.
type Contract struct {
	ID        string       `json:"id"`
	Type      ContractType `json:"contract_type"`
	Status    Status       `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	StartDate time.Time    `json:"start_date"`

	Customer             Customer       `json:"customer"`
	DeviceAddressDiffers bool           `json:"device_address_differs"`
	Device               DeviceLocation `json:"device"`
	Appliance            Appliance      `json:"appliance"`
	Subscription         Subscription   `json:"subscription"`

	// MonthlyPrice is nil when the price could not be derived. It must never
	// be stored as zero in that case.
	MonthlyPrice *float64 `json:"monthly_price,omitempty"`

	InstallationMatch *InstallationMatch `json:"installation_match,omitempty"`

	TermsAccepted bool   `json:"terms_accepted"`
	IBAN          string `json:"iban"`
}

// ServiceAddress returns the address, postal code and city where the
// appliance lives: the device location when it differs, else the customer's.
func (c Contract) ServiceAddress() (address, postalCode, city string) {
	if c.DeviceAddressDiffers {
		return c.Device.Address, c.Device.PostalCode, c.Device.City
	}
	return c.Customer.Address, c.Customer.PostalCode, c.Customer.City
}

// SubVariant returns the tariff sub-key for the contract: the power band for
// cv-ketel, the indoor unit count for airco, empty otherwise.
func (c Contract) SubVariant() string {
	switch c.Type {
	case ContractTypeCVKetel:
		return c.Appliance.PowerBand
	case ContractTypeAirco:
		if c.Appliance.IndoorUnits > 0 {
			return strconv.Itoa(c.Appliance.IndoorUnits)
		}
	}
	return ""
}

// Price returns the stored monthly price and whether it is known.
func (c Contract) Price() (float64, bool) {
	if c.MonthlyPrice == nil {
		return 0, false
	}
	return *c.MonthlyPrice, true
}

// SetPrice stores amount when ok, else clears the price.
func (c *Contract) SetPrice(amount float64, ok bool) {
	if !ok {
		c.MonthlyPrice = nil
		return
	}
	c.MonthlyPrice = &amount
}
