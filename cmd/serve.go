package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ardjee/forms/internal/api"
	"github.com/ardjee/forms/internal/intake"
	"github.com/ardjee/forms/internal/monitoring"
)

const (
	shutdownTimeout    = 10 * time.Second
	limiterSweepPeriod = 30 * time.Minute
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the contract intake API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate")
		}

		calc, err := initCalculator()
		if err != nil {
			return err
		}
		m, breaker, closeCache := initMatcher(st)
		defer closeCache() //nolint:errcheck

		limiter := api.NewClientLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
		collector := monitoring.NewCollector(st, breaker)
		svc := intake.NewService(st, m, calc)
		handler := api.NewRouter(svc, st, api.Options{
			CORSOrigins: cfg.Server.CORSOrigins,
			Limiter:     limiter,
			Metrics:     collector,
		})

		var checker *monitoring.Checker
		if cfg.Monitoring.Enabled {
			checker = monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		return runServer(ctx, srv, limiter, checker)
	},
}

// runServer serves until ctx is cancelled, then shuts down gracefully. A nil
// checker disables alerting.
func runServer(ctx context.Context, srv *http.Server, limiter *api.ClientLimiter, checker *monitoring.Checker) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
	})

	g.Go(func() error {
		ticker := time.NewTicker(limiterSweepPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := limiter.Sweep(); n > 0 {
					zap.L().Debug("forgot idle clients", zap.Int("clients", n))
				}
			}
		}
	})

	if checker != nil {
		g.Go(func() error {
			checker.Run(gctx)
			return nil
		})
	}

	return g.Wait()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
