package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardjee/forms/internal/api"
	"github.com/ardjee/forms/internal/config"
	"github.com/ardjee/forms/internal/model"
	"github.com/ardjee/forms/internal/monitoring"
	"github.com/ardjee/forms/internal/store"
)

// testConfig points the commands at a fresh SQLite database.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(t.TempDir(), "forms.db")
	c.Server.Port = 8080
	c.Server.RateLimit = 1
	c.Server.RateBurst = 5
	c.Matching.SimilarityThreshold = 0.85
	c.Matching.LookupTimeoutSecs = 5
	c.Import.BatchSize = 100
	c.Import.Delimiter = ";"
	return c
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "migrate", "import", "price", "match"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "forms", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestImportCommand_Flags(t *testing.T) {
	for _, name := range []string{"file", "force"} {
		assert.NotNil(t, importCmd.Flags().Lookup(name), "import should have --%s flag", name)
	}
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = testConfig(t)
	cfg.Store.Driver = "mysql"

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitStore_PostgresRequiresURL(t *testing.T) {
	cfg = testConfig(t)
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database url is required")
}

func TestInitCalculator_CatalogFile(t *testing.T) {
	cfg = testConfig(t)
	path := filepath.Join(t.TempDir(), "tariffs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tables:\n  geiser:\n    prices:\n      12: {onderhoud: 6.50}\n"), 0o644))
	cfg.Tariff.CatalogPath = path

	calc, err := initCalculator()
	require.NoError(t, err)
	got, ok := calc.MonthlyPrice(model.Contract{
		Type:         model.ContractTypeGeiser,
		Subscription: model.Subscription{Frequency: 12, Tier: model.TierMaintenance},
	})
	require.True(t, ok)
	assert.Equal(t, 6.50, got)

	cfg.Tariff.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = initCalculator()
	assert.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	cfg = testConfig(t)
	migrateCmd.SetContext(context.Background())

	require.NoError(t, migrateCmd.RunE(migrateCmd, nil))

	st, err := store.NewSQLite(cfg.Store.DatabaseURL)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	n, err := st.CountInstallations(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunServer_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv, api.NewClientLimiter(1, 1), nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunServer_StopsChecker(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "forms.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	mcfg := config.MonitoringConfig{Enabled: true, CheckIntervalSecs: 1, LookbackWindowHours: 1}
	checker := monitoring.NewChecker(monitoring.NewCollector(st, nil), monitoring.NewAlerter(mcfg), mcfg)

	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv, api.NewClientLimiter(1, 1), checker) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func runCmd(t *testing.T, run func() error, out *bytes.Buffer) {
	t.Helper()
	require.NoError(t, run())
	t.Log(out.String())
}
