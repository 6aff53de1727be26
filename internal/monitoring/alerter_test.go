package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/config"
)

func snapWith(providers map[string]ProviderStats, spend float64) *MetricsSnapshot {
	snap := &MetricsSnapshot{
		Providers:   providers,
		StartedAt:   time.Now().UTC().Add(-time.Hour),
		CollectedAt: time.Now().UTC(),
	}
	for _, s := range providers {
		snap.TotalLookups += s.Lookups
	}
	snap.TotalSpendUSD = spend
	return snap
}

func TestEvaluate_NoAlertsOnHealthySnapshot(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.5,
		SpendThresholdUSD:    10,
	})

	alerts := a.Evaluate(snapWith(map[string]ProviderStats{
		"hunter": {Lookups: 20, Hits: 18, Errors: 2},
	}, 1.50))
	assert.Empty(t, alerts)
}

func TestEvaluate_ProviderFailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.5})

	alerts := a.Evaluate(snapWith(map[string]ProviderStats{
		"apollo": {Lookups: 10, Errors: 8},
	}, 0))
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertProviderFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "apollo")
	assert.Equal(t, "apollo", alerts[0].Details["provider"])
}

func TestEvaluate_TooFewLookupsForRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.5})

	// 3 of 4 failed, but below the sample floor.
	alerts := a.Evaluate(snapWith(map[string]ProviderStats{
		"apollo": {Lookups: 4, Errors: 3},
	}, 0))
	assert.Empty(t, alerts)
}

func TestEvaluate_SpendOverrun(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.5,
		SpendThresholdUSD:    5,
	})

	alerts := a.Evaluate(snapWith(nil, 7.25))
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertSpendOverrun, alerts[0].Type)
	assert.InDelta(t, 7.25, alerts[0].Details["spend_usd"].(float64), 1e-9)
}

func TestEvaluate_SpendThresholdDisabledByDefault(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.5})
	assert.Empty(t, a.Evaluate(snapWith(nil, 1000)))
}

func TestSendAlerts_PostsToWebhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.Equal(t, AlertSpendOverrun, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertSpendOverrun, Severity: "high", Message: "over budget"},
	})
	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(1), received.Load())
}

func TestSendAlerts_NoWebhookConfigured(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertSpendOverrun}})
	assert.Zero(t, sent)
}

func TestSendAlerts_CountsFailedDeliveries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertSpendOverrun},
		{Type: AlertProviderFailureRate},
	})
	assert.Zero(t, sent)
}
