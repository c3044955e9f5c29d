package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/analysis-core/internal/history"
	"github.com/sells-group/analysis-core/internal/model"
)

// MetricsSnapshot holds a point-in-time view of analysis health.
type MetricsSnapshot struct {
	// Job outcome counts over the lookback window.
	JobsTotal     int     `json:"jobs_total"`
	JobsSucceeded int     `json:"jobs_succeeded"`
	JobsDegraded  int     `json:"jobs_degraded"`
	JobsFailed    int     `json:"jobs_failed"`
	JobsCancelled int     `json:"jobs_cancelled"`
	FailureRate   float64 `json:"failure_rate"`
	DegradedRate  float64 `json:"degraded_rate"`

	// Error category frequencies over the window.
	ErrorPatterns map[model.ErrorCategory]int `json:"error_patterns,omitempty"`

	// Industry distribution over the window.
	Industries map[string]int `json:"industries,omitempty"`

	// Metadata.
	LookbackLimit int       `json:"lookback_limit"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the history store.
type Collector struct {
	store history.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st history.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot over the most recent lookback records.
func (c *Collector) Collect(ctx context.Context, lookback int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackLimit: lookback,
		CollectedAt:   time.Now().UTC(),
		ErrorPatterns: make(map[model.ErrorCategory]int),
		Industries:    make(map[string]int),
	}

	records, err := c.store.Recent(ctx, lookback)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: recent records")
	}

	snap.JobsTotal = len(records)
	for _, r := range records {
		switch r.OutcomeStatus {
		case model.OutcomeSucceeded:
			snap.JobsSucceeded++
		case model.OutcomeDegraded:
			snap.JobsDegraded++
		case model.OutcomeFailed, model.OutcomeTimedOut:
			snap.JobsFailed++
		case model.OutcomeCancelled:
			snap.JobsCancelled++
		}
		if r.ErrorCategory != "" {
			snap.ErrorPatterns[r.ErrorCategory]++
		}
		if r.Classification.Industry != "" {
			snap.Industries[r.Classification.Industry]++
		}
	}

	// Cancelled jobs say nothing about system health.
	finished := snap.JobsSucceeded + snap.JobsDegraded + snap.JobsFailed
	if finished > 0 {
		snap.FailureRate = float64(snap.JobsFailed) / float64(finished)
		snap.DegradedRate = float64(snap.JobsDegraded) / float64(finished)
	}

	return snap, nil
}
