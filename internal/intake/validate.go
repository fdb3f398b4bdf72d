package intake

import (
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strings"

	"github.com/ardjee/forms/internal/model"
)

// ValidationError lists the problems with a submission, keyed by field.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "intake: invalid submission: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func invalid(field, msg string) error {
	v := &ValidationError{}
	v.add(field, msg)
	return v
}

var (
	postalCodeRe = regexp.MustCompile(`(?i)^[1-9][0-9]{3} ?([A-Z]{2})$`)
	ibanRe       = regexp.MustCompile(`(?i)^[A-Z]{2}[0-9]{2}[A-Z0-9]{4}[0-9]{7}[A-Z0-9]{0,16}$`)
)

// validPostalCode accepts Dutch postal codes. The letter pairs SA, SD and SS
// are never issued.
func validPostalCode(pc string) bool {
	m := postalCodeRe.FindStringSubmatch(strings.TrimSpace(pc))
	if m == nil {
		return false
	}
	switch strings.ToUpper(m[1]) {
	case "SA", "SD", "SS":
		return false
	}
	return true
}

// Validate checks a submission. Missing frequency, tier or distance band are
// accepted; the contract is then stored without a price.
func Validate(c model.Contract) error {
	v := &ValidationError{}

	if !c.Type.Valid() {
		v.add("contract_type", "onbekend contracttype")
	}

	cust := c.Customer
	if len(strings.TrimSpace(cust.Name)) < 2 {
		v.add("customer.name", "Naam is verplicht.")
	}
	if len(strings.TrimSpace(cust.Address)) < 2 {
		v.add("customer.address", "Adres is verplicht.")
	}
	if !validPostalCode(cust.PostalCode) {
		v.add("customer.postal_code", "Ongeldige postcode.")
	}
	if len(strings.TrimSpace(cust.City)) < 2 {
		v.add("customer.city", "Woonplaats is verplicht.")
	}
	if len(strings.TrimSpace(cust.Phone)) < 10 {
		v.add("customer.phone", "Ongeldig telefoonnummer.")
	}
	if _, err := mail.ParseAddress(cust.Email); err != nil || strings.Contains(cust.Email, "<") {
		v.add("customer.email", "Ongeldig e-mailadres.")
	}

	if c.DeviceAddressDiffers {
		d := c.Device
		if strings.TrimSpace(d.Address) == "" || strings.TrimSpace(d.City) == "" {
			v.add("device.address", "Vul de afwijkende adresgegevens in.")
		}
		if !validPostalCode(d.PostalCode) {
			v.add("device.postal_code", "Ongeldige postcode.")
		}
	}

	sub := c.Subscription
	if sub.Frequency != 0 && !sub.Frequency.Valid() {
		v.add("subscription.frequency", "Kies een onderhoudsfrequentie.")
	}
	if sub.Tier != "" && !sub.Tier.Valid() {
		v.add("subscription.tier", "Kies een type abonnement.")
	}
	if sub.DistanceBand != "" && !sub.DistanceBand.Valid() {
		v.add("subscription.distance_band", "Onbekende afstand.")
	}
	if sub.Monitoring && !c.Type.IsHeatPump() {
		v.add("subscription.monitoring", "Monitoring is alleen beschikbaar voor warmtepompen.")
	}

	switch c.Type {
	case model.ContractTypeCVKetel:
		if pb := c.Appliance.PowerBand; pb != "" && pb != model.PowerBandUpTo45kW && pb != model.PowerBand45To70kW {
			v.add("appliance.power_band", "Kies een CV-vermogen.")
		}
	case model.ContractTypeAirco:
		if n := c.Appliance.IndoorUnits; n < 0 || n > 4 {
			v.add("appliance.indoor_units", "Kies 1 tot 4 binnenunits.")
		}
	}

	if !c.TermsAccepted {
		v.add("terms_accepted", "U moet akkoord gaan met de algemene voorwaarden.")
	}
	if !ibanRe.MatchString(strings.ReplaceAll(c.IBAN, " ", "")) {
		v.add("iban", "Ongeldig IBAN-formaat.")
	}

	return v.orNil()
}
