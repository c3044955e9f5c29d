package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/analysis-core/internal/config"
)

// Checker periodically samples analysis health and pushes threshold alerts.
// One round runs immediately on start so a freshly launched watcher reports
// without waiting a full interval.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	interval  time.Duration
	lookback  int
}

// NewChecker builds a checker from the monitoring config.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Checker{
		collector: collector,
		alerter:   alerter,
		interval:  interval,
		lookback:  cfg.LookbackLimit,
	}
}

// Run blocks until ctx is cancelled, checking once per interval.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("monitoring: checker started",
		zap.Duration("interval", c.interval),
		zap.Int("lookback", c.lookback),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.CheckOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("monitoring: checker stopped")
			return
		case <-ticker.C:
			c.CheckOnce(ctx)
		}
	}
}

// CheckOnce runs a single collect-evaluate-send round and returns the
// number of alerts triggered.
func (c *Checker) CheckOnce(ctx context.Context) int {
	log := zap.L().With(zap.String("component", "monitoring.checker"))

	snap, err := c.collector.Collect(ctx, c.lookback)
	if err != nil {
		log.Error("monitoring: collect failed", zap.Error(err))
		return 0
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		log.Debug("monitoring: all rates within thresholds",
			zap.Float64("failure_rate", snap.FailureRate),
			zap.Float64("degraded_rate", snap.DegradedRate),
		)
		return 0
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Warn("monitoring: thresholds breached",
		zap.Int("alerts", len(alerts)),
		zap.Int("delivered", sent),
		zap.Float64("failure_rate", snap.FailureRate),
		zap.Float64("degraded_rate", snap.DegradedRate),
	)
	return len(alerts)
}
