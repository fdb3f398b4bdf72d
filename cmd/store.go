package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ardjee/forms/internal/cache"
	"github.com/ardjee/forms/internal/matcher"
	"github.com/ardjee/forms/internal/resilience"
	"github.com/ardjee/forms/internal/store"
	"github.com/ardjee/forms/internal/tariff"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "forms.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("database url is required (FORMS_STORE_DATABASE_URL)")
		}
		p := cfg.Store.Pool
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns:        p.MaxConns,
			MinConns:        p.MinConns,
			MaxConnLifetime: time.Duration(p.MaxConnLifetimeSecs) * time.Second,
			MaxConnIdleTime: time.Duration(p.MaxConnIdleTimeSecs) * time.Second,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initCalculator() (*tariff.Calculator, error) {
	if cfg.Tariff.CatalogPath == "" {
		return tariff.NewCalculator(tariff.DefaultCatalog()), nil
	}
	cat, err := tariff.LoadCatalog(cfg.Tariff.CatalogPath)
	if err != nil {
		return nil, err
	}
	zap.L().Info("loaded tariff catalog",
		zap.String("path", cfg.Tariff.CatalogPath),
		zap.Int("tables", len(cat.Tables)),
	)
	return tariff.NewCalculator(cat), nil
}

// initMatcher stacks the lookup decorators: the breaker guards the store,
// the cache sits in front of the breaker.
func initMatcher(st store.Store) (*matcher.Matcher, *resilience.Breaker, func() error) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Threshold: cfg.Matching.Breaker.Threshold,
		Cooldown:  time.Duration(cfg.Matching.Breaker.CooldownSecs) * time.Second,
		OnStateChange: func(from, to resilience.State) {
			zap.L().Warn("installation lookup breaker changed state",
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})

	var lookup matcher.Lookup = matcher.WithBreaker(st, breaker)
	closeFn := func() error { return nil }
	if cfg.Redis.Addr != "" {
		client := cache.NewClient(cfg.Redis.Addr)
		lookup = cache.NewLookup(lookup, client, time.Duration(cfg.Redis.TTLSecs)*time.Second)
		closeFn = client.Close
		zap.L().Info("installation lookup cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	m := matcher.New(lookup,
		matcher.WithThreshold(cfg.Matching.SimilarityThreshold),
		matcher.WithTimeout(time.Duration(cfg.Matching.LookupTimeoutSecs)*time.Second),
	)
	return m, breaker, closeFn
}
