package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardjee/forms/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleContract() *model.Contract {
	c := &model.Contract{
		Type: model.ContractTypeCVKetel,
		Customer: model.Customer{
			Name:       "J. de Vries",
			Address:    "Kerkstraat 12",
			PostalCode: "1234 AB",
			City:       "Amsterdam",
			Email:      "jdevries@example.nl",
		},
		Appliance: model.Appliance{Brand: "Remeha", PowerBand: model.PowerBandUpTo45kW},
		Subscription: model.Subscription{
			Frequency: model.Frequency12,
			Tier:      model.TierMaintenance,
		},
		TermsAccepted: true,
		IBAN:          "NL91ABNA0417164300",
	}
	c.SetPrice(17.10, true)
	return c
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Ping(context.Background()))
}

func TestSQLite_CreateAndGetContract(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := sampleContract()
	require.NoError(t, st.CreateContract(ctx, c))
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, model.StatusNew, c.Status)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := st.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, model.ContractTypeCVKetel, got.Type)
	assert.Equal(t, model.StatusNew, got.Status)
	assert.Equal(t, "J. de Vries", got.Customer.Name)
	assert.Equal(t, model.PowerBandUpTo45kW, got.Appliance.PowerBand)
	assert.Equal(t, model.Frequency12, got.Subscription.Frequency)
	assert.WithinDuration(t, c.CreatedAt, got.CreatedAt, time.Second)

	price, ok := got.Price()
	require.True(t, ok)
	assert.Equal(t, 17.10, price)
}

func TestSQLite_UnknownPriceStaysUnknown(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := sampleContract()
	c.Type = model.ContractTypeGeiser
	c.SetPrice(0, false)
	require.NoError(t, st.CreateContract(ctx, c))

	var price *float64
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT monthly_price FROM contracts WHERE id = ?`, c.ID).Scan(&price))
	assert.Nil(t, price, "unknown price is stored as NULL, not zero")

	got, err := st.GetContract(ctx, c.ID)
	require.NoError(t, err)
	_, ok := got.Price()
	assert.False(t, ok)
}

func TestSQLite_GetContract_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetContract(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_ListContracts_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, ct := range []model.ContractType{model.ContractTypeCVKetel, model.ContractTypeAirco, model.ContractTypeAirco} {
		c := sampleContract()
		c.Type = ct
		require.NoError(t, st.CreateContract(ctx, c))
	}
	active := sampleContract()
	active.Status = model.StatusActive
	require.NoError(t, st.CreateContract(ctx, active))

	all, err := st.ListContracts(ctx, ContractFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	airco, err := st.ListContracts(ctx, ContractFilter{Type: model.ContractTypeAirco})
	require.NoError(t, err)
	assert.Len(t, airco, 2)

	actief, err := st.ListContracts(ctx, ContractFilter{Status: model.StatusActive})
	require.NoError(t, err)
	require.Len(t, actief, 1)
	assert.Equal(t, active.ID, actief[0].ID)

	page, err := st.ListContracts(ctx, ContractFilter{Limit: 3, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	none, err := st.ListContracts(ctx, ContractFilter{Type: model.ContractTypeZonneboiler})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSQLite_UpdateContract(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := sampleContract()
	require.NoError(t, st.CreateContract(ctx, c))

	updated, err := st.UpdateContract(ctx, c.ID, func(c *model.Contract) error {
		c.Subscription.Frequency = model.Frequency24
		c.SetPrice(11.09, true)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.Frequency24, updated.Subscription.Frequency)

	got, err := st.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Frequency24, got.Subscription.Frequency)
	price, ok := got.Price()
	require.True(t, ok)
	assert.Equal(t, 11.09, price)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestSQLite_UpdateContract_AbortLeavesRowUntouched(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := sampleContract()
	require.NoError(t, st.CreateContract(ctx, c))

	boom := errors.New("invalid")
	_, err := st.UpdateContract(ctx, c.ID, func(c *model.Contract) error {
		c.Subscription.Frequency = model.Frequency18
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := st.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Frequency12, got.Subscription.Frequency)
}

func TestSQLite_UpdateContract_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.UpdateContract(context.Background(), "missing", func(*model.Contract) error { return nil })
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_UpdateContract_ConcurrentWritersSerialize(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := sampleContract()
	c.Appliance.SerialNumber = ""
	require.NoError(t, st.CreateContract(ctx, c))

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.UpdateContract(ctx, c.ID, func(c *model.Contract) error {
				c.Appliance.SerialNumber += "x"
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	got, err := st.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "xxxxx", got.Appliance.SerialNumber)
}

func TestSQLite_Installations(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.CountInstallations(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	inserted, err := st.InsertInstallations(ctx, []model.InstallationRecord{
		{Address: "Kerkstraat 12", PostalCode: "1234AB", City: "AMSTERDAM", Description: "Ketel zolder"},
		{Address: "Kerkstraat 14", PostalCode: "1234AB", City: "AMSTERDAM", Description: "Warmtepomp"},
		{Address: "Kerkstraat 12", PostalCode: "1234AB", City: "AMSTELVEEN", Description: "Andere stad"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), inserted)

	n, err = st.CountInstallations(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	recs, err := st.QueryByPostalCodeAndCity(ctx, "1234AB", "AMSTERDAM")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Ketel zolder", recs[0].Description)
	assert.Equal(t, "Warmtepomp", recs[1].Description)
	assert.False(t, recs[0].ImportedAt.IsZero())

	none, err := st.QueryByPostalCodeAndCity(ctx, "1234 AB", "AMSTERDAM")
	require.NoError(t, err)
	assert.Empty(t, none, "lookup is exact on the stored normalized values")
}

func TestSQLite_InsertInstallations_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)
	n, err := st.InsertInstallations(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
