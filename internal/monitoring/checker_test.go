package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/analysis-core/internal/config"
	"github.com/sells-group/analysis-core/internal/history"
	"github.com/sells-group/analysis-core/internal/model"
)

func TestCheckOnce_DeliversAlerts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := seededStore(t, []model.OutcomeStatus{
		model.OutcomeFailed,
		model.OutcomeFailed,
		model.OutcomeFailed,
		model.OutcomeSucceeded,
		model.OutcomeSucceeded,
	})

	cfg := config.MonitoringConfig{
		FailureRateThreshold:  0.25,
		DegradedRateThreshold: 0.5,
		WebhookURL:            srv.URL,
		LookbackLimit:         100,
	}
	checker := NewChecker(NewCollector(store), NewAlerter(cfg), cfg)

	triggered := checker.CheckOnce(context.Background())
	assert.Equal(t, 1, triggered)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCheckOnce_QuietWhenHealthy(t *testing.T) {
	store := seededStore(t, []model.OutcomeStatus{
		model.OutcomeSucceeded,
		model.OutcomeSucceeded,
		model.OutcomeSucceeded,
		model.OutcomeSucceeded,
		model.OutcomeSucceeded,
	})

	cfg := config.MonitoringConfig{
		FailureRateThreshold:  0.25,
		DegradedRateThreshold: 0.5,
		LookbackLimit:         100,
	}
	checker := NewChecker(NewCollector(store), NewAlerter(cfg), cfg)

	assert.Zero(t, checker.CheckOnce(context.Background()))
}

type failingStore struct {
	history.Store
}

func (failingStore) Recent(_ context.Context, _ int) ([]model.HistoryRecord, error) {
	return nil, errors.New("store offline")
}

func TestCheckOnce_CollectErrorIsNonFatal(t *testing.T) {
	cfg := config.MonitoringConfig{LookbackLimit: 100}
	checker := NewChecker(NewCollector(failingStore{}), NewAlerter(cfg), cfg)

	assert.Zero(t, checker.CheckOnce(context.Background()))
}
