package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/analysis-core/internal/config"
)

func healthySnapshot() *MetricsSnapshot {
	return &MetricsSnapshot{
		JobsTotal:     20,
		JobsSucceeded: 18,
		JobsDegraded:  1,
		JobsFailed:    1,
		FailureRate:   0.05,
		DegradedRate:  0.05,
		LookbackLimit: 100,
	}
}

func TestEvaluate_NoAlertsWhenHealthy(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold:  0.25,
		DegradedRateThreshold: 0.5,
	})
	assert.Empty(t, a.Evaluate(healthySnapshot()))
}

func TestEvaluate_FailureRateAlert(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold:  0.25,
		DegradedRateThreshold: 0.5,
	})

	snap := &MetricsSnapshot{
		JobsSucceeded: 5,
		JobsFailed:    5,
		FailureRate:   0.5,
		LookbackLimit: 100,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "50.0%")
}

func TestEvaluate_DegradedRateAlert(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold:  0.25,
		DegradedRateThreshold: 0.5,
	})

	snap := &MetricsSnapshot{
		JobsSucceeded: 3,
		JobsDegraded:  7,
		DegradedRate:  0.7,
		LookbackLimit: 100,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertDegradedRate, alerts[0].Type)
	assert.Equal(t, "medium", alerts[0].Severity)
}

func TestEvaluate_SkipsSmallSamples(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold:  0.25,
		DegradedRateThreshold: 0.5,
	})

	// Everything failing, but only 2 finished jobs. Not enough signal.
	snap := &MetricsSnapshot{
		JobsFailed:  2,
		FailureRate: 1.0,
	}
	assert.Empty(t, a.Evaluate(snap))
}

func TestSendAlerts_PostsToWebhook(t *testing.T) {
	var (
		mu       sync.Mutex
		received []Alert
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		mu.Lock()
		received = append(received, alert)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertFailureRate, Severity: "high", Message: "failure rate too high"},
		{Type: AlertDegradedRate, Severity: "medium", Message: "degraded rate too high"},
	})

	assert.Equal(t, 2, sent)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, AlertFailureRate, received[0].Type)
}

func TestSendAlerts_CountsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertFailureRate, Message: "failure rate too high"},
	})
	assert.Zero(t, sent)
}

func TestSendAlerts_NoWebhookConfigured(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertFailureRate, Message: "failure rate too high"},
	})
	assert.Zero(t, sent)
}
