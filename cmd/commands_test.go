package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardjee/forms/internal/model"
	"github.com/ardjee/forms/internal/resilience"
	"github.com/ardjee/forms/internal/store"
)

func TestPriceCommand_Quote(t *testing.T) {
	cfg = testConfig(t)
	var out bytes.Buffer
	priceCmd.SetOut(&out)
	t.Cleanup(func() { priceCmd.SetOut(nil) })

	priceFlags.contractType = "cv-ketel"
	priceFlags.frequency = 12
	priceFlags.tier = "onderhoud"
	priceFlags.distance = "31-50km"
	priceFlags.newFrequency = 0
	priceFlags.stored = 0
	t.Cleanup(func() { priceFlags.distance = "" })

	runCmd(t, func() error { return priceCmd.RunE(priceCmd, nil) }, &out)
	assert.Contains(t, out.String(), "17,10")
	assert.Contains(t, out.String(), "9,40")
	assert.Contains(t, out.String(), "26,50")
}

func TestPriceCommand_Recompute(t *testing.T) {
	cfg = testConfig(t)
	var out bytes.Buffer
	priceCmd.SetOut(&out)
	t.Cleanup(func() { priceCmd.SetOut(nil) })

	priceFlags.contractType = "zonneboiler"
	priceFlags.frequency = 12
	priceFlags.tier = "onderhoud"
	priceFlags.stored = 10
	priceFlags.newFrequency = 24
	t.Cleanup(func() {
		priceFlags.stored = 0
		priceFlags.newFrequency = 0
	})

	runCmd(t, func() error { return priceCmd.RunE(priceCmd, nil) }, &out)
	assert.Contains(t, out.String(), "5,00")
}

func TestPriceCommand_Unknown(t *testing.T) {
	cfg = testConfig(t)
	var out bytes.Buffer
	priceCmd.SetOut(&out)
	t.Cleanup(func() { priceCmd.SetOut(nil) })

	priceFlags.contractType = "gasboiler"
	priceFlags.frequency = 24
	priceFlags.tier = "onderhoud"

	runCmd(t, func() error { return priceCmd.RunE(priceCmd, nil) }, &out)
	assert.Contains(t, out.String(), "prijs onbekend")
}

func TestPriceCommand_BadType(t *testing.T) {
	cfg = testConfig(t)
	priceFlags.contractType = "kachel"
	err := priceCmd.RunE(priceCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown contract type")
}

const legacyExport = "Object adres;Object postcode;Object plaats;Installatie omschrijving\n" +
	"Kerkstraat 12;1234 AB;Amsterdam;Remeha Tzerra 24c\n" +
	"Kerkstraat 14;1234 AB;Amsterdam;Intergas Kombi Kompakt\n" +
	";1234 AB;Amsterdam;zonder adres\n"

func TestImportAndMatchCommands(t *testing.T) {
	cfg = testConfig(t)
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(legacyExport), 0o644))

	var out bytes.Buffer
	importCmd.SetOut(&out)
	importCmd.SetContext(context.Background())
	t.Cleanup(func() { importCmd.SetOut(nil) })
	importFile = path
	importForce = false

	runCmd(t, func() error { return importCmd.RunE(importCmd, nil) }, &out)
	assert.Contains(t, out.String(), "imported 2 of 3 rows")

	out.Reset()
	runCmd(t, func() error { return importCmd.RunE(importCmd, nil) }, &out)
	assert.Contains(t, out.String(), "already imported")

	st, err := store.NewSQLite(cfg.Store.DatabaseURL)
	require.NoError(t, err)
	n, err := st.CountInstallations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, st.Close())

	out.Reset()
	matchCmd.SetOut(&out)
	matchCmd.SetContext(context.Background())
	t.Cleanup(func() { matchCmd.SetOut(nil) })
	matchFlags.address = "Kerkstraat 12"
	matchFlags.postcode = "1234ab"
	matchFlags.city = "amsterdam"

	runCmd(t, func() error { return matchCmd.RunE(matchCmd, nil) }, &out)
	assert.Contains(t, out.String(), "1.000")
	assert.Contains(t, out.String(), "match: Remeha Tzerra 24c")

	out.Reset()
	matchFlags.postcode = "9999 ZZ"
	runCmd(t, func() error { return matchCmd.RunE(matchCmd, nil) }, &out)
	assert.Contains(t, out.String(), "no installations in 9999ZZ AMSTERDAM")
}

func TestInitMatcher_WithoutCache(t *testing.T) {
	cfg = testConfig(t)
	st, err := store.NewSQLite(cfg.Store.DatabaseURL)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	_, err = st.InsertInstallations(context.Background(), []model.InstallationRecord{
		{Address: "Kerkstraat 12", PostalCode: "1234AB", City: "AMSTERDAM", Description: "Remeha", ImportedAt: time.Now().UTC()},
	})
	require.NoError(t, err)

	m, breaker, closeFn := initMatcher(st)
	defer closeFn() //nolint:errcheck

	match := m.FindMatch(context.Background(), "kerkstraat 12", "1234 AB", "Amsterdam")
	require.NotNil(t, match)
	assert.Equal(t, "Remeha", match.Description)
	assert.Equal(t, resilience.Closed, breaker.State())
}
