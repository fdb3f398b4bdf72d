package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ardjee/forms/internal/config"
	"github.com/ardjee/forms/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertUnpricedRate    AlertType = "unpriced_rate"
	AlertNoInstallations AlertType = "no_installations"
	AlertLookupCircuit   AlertType = "lookup_circuit_open"
)

// minContractsForRate is the number of contracts needed before the unpriced
// rate is judged.
const minContractsForRate = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	// Submissions stored without a price need manual pricing.
	if a.cfg.UnpricedRateThreshold > 0 && snap.ContractsTotal >= minContractsForRate &&
		snap.UnpricedRate > a.cfg.UnpricedRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertUnpricedRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%.1f%% of contracts have no price, threshold %.1f%% (%d of %d in last %dh)",
				snap.UnpricedRate*100, a.cfg.UnpricedRateThreshold*100,
				snap.Unpriced, snap.ContractsTotal, snap.LookbackHours,
			),
			Details: map[string]any{
				"unpriced_rate": snap.UnpricedRate,
				"threshold":     a.cfg.UnpricedRateThreshold,
				"unpriced":      snap.Unpriced,
				"total":         snap.ContractsTotal,
			},
			Timestamp: now,
		})
	}

	// Nothing can match until the legacy export is imported.
	if snap.Installations == 0 && snap.ContractsTotal > 0 {
		alerts = append(alerts, Alert{
			Type:      AlertNoInstallations,
			Severity:  "high",
			Message:   fmt.Sprintf("no legacy installations imported; %d contract(s) in last %dh could not be matched", snap.ContractsTotal, snap.LookbackHours),
			Details:   map[string]any{"contracts_total": snap.ContractsTotal},
			Timestamp: now,
		})
	}

	if snap.LookupCircuit == resilience.Open.String() {
		alerts = append(alerts, Alert{
			Type:      AlertLookupCircuit,
			Severity:  "high",
			Message:   "installation lookup circuit is open; submissions are stored without installation match",
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
