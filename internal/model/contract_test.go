package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractType_Valid(t *testing.T) {
	for _, ct := range ContractTypes {
		assert.True(t, ct.Valid(), ct)
	}
	assert.False(t, ContractType("stoomketel").Valid())
	assert.False(t, ContractType("").Valid())
}

func TestContractType_IsHeatPump(t *testing.T) {
	tests := []struct {
		ct   ContractType
		want bool
	}{
		{ContractTypeWarmtepompAllElectric, true},
		{ContractTypeWarmtepompHybride, true},
		{ContractTypeWarmtepompGrondgebonden, true},
		{ContractTypeWarmtepompboiler, false},
		{ContractTypeCVKetel, false},
		{ContractTypeAirco, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.ct), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ct.IsHeatPump())
		})
	}
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, Frequency18.Valid())
	assert.False(t, Frequency(0).Valid())
	assert.False(t, Frequency(6).Valid())

	assert.True(t, TierServicePlus.Valid())
	assert.False(t, Tier("premium").Valid())

	assert.True(t, Distance15To30.Valid())
	assert.False(t, DistanceBand("").Valid())

	assert.True(t, StatusCancelled.Valid())
	assert.False(t, Status("Verlopen").Valid())
}

func TestContract_ServiceAddress(t *testing.T) {
	c := Contract{
		Customer: Customer{Address: "Kerkstraat 12", PostalCode: "1234AB", City: "Amsterdam"},
		Device:   DeviceLocation{Address: "Dorpsweg 3", PostalCode: "5678CD", City: "Utrecht"},
	}

	addr, pc, city := c.ServiceAddress()
	assert.Equal(t, "Kerkstraat 12", addr)
	assert.Equal(t, "1234AB", pc)
	assert.Equal(t, "Amsterdam", city)

	c.DeviceAddressDiffers = true
	addr, pc, city = c.ServiceAddress()
	assert.Equal(t, "Dorpsweg 3", addr)
	assert.Equal(t, "5678CD", pc)
	assert.Equal(t, "Utrecht", city)
}

func TestContract_SubVariant(t *testing.T) {
	cv := Contract{Type: ContractTypeCVKetel, Appliance: Appliance{PowerBand: PowerBand45To70kW}}
	assert.Equal(t, "45-70kw", cv.SubVariant())

	airco := Contract{Type: ContractTypeAirco, Appliance: Appliance{IndoorUnits: 3}}
	assert.Equal(t, "3", airco.SubVariant())

	aircoNoUnits := Contract{Type: ContractTypeAirco}
	assert.Equal(t, "", aircoNoUnits.SubVariant())

	hp := Contract{Type: ContractTypeWarmtepompHybride, Appliance: Appliance{PowerBand: "ignored"}}
	assert.Equal(t, "", hp.SubVariant())
}

func TestContract_SetPrice(t *testing.T) {
	var c Contract
	c.SetPrice(17.10, true)
	got, ok := c.Price()
	require.True(t, ok)
	assert.InDelta(t, 17.10, got, 0.0001)

	c.SetPrice(0, false)
	_, ok = c.Price()
	assert.False(t, ok)
	assert.Nil(t, c.MonthlyPrice)
}

func TestContract_UnknownPriceOmittedFromJSON(t *testing.T) {
	c := Contract{ID: "abc", Type: ContractTypeGeiser}
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "monthly_price")
	assert.NotContains(t, string(data), "installation_match")

	c.SetPrice(0, true)
	data, err = json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"monthly_price":0`)
}
