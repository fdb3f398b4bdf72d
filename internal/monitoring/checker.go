// Package monitoring watches intake health and raises webhook alerts.
package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ardjee/forms/internal/config"
)

const defaultCheckInterval = 5 * time.Minute

// Checker periodically snapshots recent submissions and the installation
// lookup, and sends an alert for every threshold the snapshot crosses.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	interval  time.Duration
	lookback  int
}

// NewChecker creates a Checker. A non-positive check interval falls back to
// five minutes.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &Checker{
		collector: collector,
		alerter:   alerter,
		interval:  interval,
		lookback:  cfg.LookbackWindowHours,
	}
}

// Run checks once immediately and then on every tick until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("intake health checks started",
		zap.Duration("interval", c.interval),
		zap.Int("lookback_hours", c.lookback),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		c.check(ctx, log)
		select {
		case <-ctx.Done():
			log.Info("intake health checks stopped")
			return
		case <-ticker.C:
		}
	}
}

// check returns the number of alerts delivered.
func (c *Checker) check(ctx context.Context, log *zap.Logger) int {
	if ctx.Err() != nil {
		return 0
	}
	snap, err := c.collector.Collect(ctx, c.lookback)
	if err != nil {
		log.Error("monitoring: collect intake snapshot", zap.Error(err))
		return 0
	}
	log.Debug("monitoring: intake snapshot",
		zap.Int("contracts", snap.ContractsTotal),
		zap.Float64("unpriced_rate", snap.UnpricedRate),
		zap.Float64("match_rate", snap.MatchRate),
		zap.Int64("installations", snap.Installations),
		zap.String("lookup_circuit", snap.LookupCircuit),
	)

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		return 0
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitoring: intake alerts raised",
		zap.Int("triggered", len(alerts)),
		zap.Int("delivered", sent),
	)
	return sent
}
