package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/analysis-core/internal/classifier"
	"github.com/sells-group/analysis-core/internal/history"
	"github.com/sells-group/analysis-core/internal/inspector"
	"github.com/sells-group/analysis-core/internal/orchestrator"
	"github.com/sells-group/analysis-core/internal/resilience"
	"github.com/sells-group/analysis-core/internal/tracker"
)

// Env bundles the wired components shared by the subcommands.
type Env struct {
	Classifier   *classifier.Classifier
	Tracker      *tracker.Tracker
	Inspector    *inspector.Inspector
	History      history.Store
	Orchestrator *orchestrator.Orchestrator
}

// Close releases the environment in reverse wiring order.
func (e *Env) Close() {
	if e.Classifier != nil {
		e.Classifier.Close()
	}
	if e.History != nil {
		if err := e.History.Close(); err != nil {
			zap.L().Warn("close history store", zap.Error(err))
		}
	}
}

// initHistory opens the configured history store backend.
func initHistory(ctx context.Context) (history.Store, error) {
	retention := history.Retention{
		MaxRecords: cfg.History.MaxRecords,
		MaxAge:     time.Duration(cfg.History.MaxAgeHours) * time.Hour,
	}

	switch cfg.History.Driver {
	case "sqlite", "":
		st, err := history.NewSQLite(cfg.History.Path, retention)
		if err != nil {
			return nil, eris.Wrap(err, "open sqlite history")
		}
		return st, nil
	case "postgres":
		st, err := history.NewPostgres(ctx, cfg.History.DatabaseURL, retention)
		if err != nil {
			return nil, eris.Wrap(err, "open postgres history")
		}
		return st, nil
	case "memory":
		return history.NewMemory(retention), nil
	default:
		return nil, eris.Errorf("unknown history driver %q", cfg.History.Driver)
	}
}

// initEnv wires the full orchestration stack from config.
func initEnv(ctx context.Context) (*Env, error) {
	reg := classifier.DefaultRegistry()
	if cfg.Classifier.RegistryPath != "" {
		loaded, err := classifier.LoadRegistryFromFile(cfg.Classifier.RegistryPath)
		if err != nil {
			return nil, eris.Wrap(err, "load industry registry")
		}
		reg = loaded
	}

	cl := classifier.New(reg, classifier.Config{
		ConfidenceThreshold: cfg.Classifier.ConfidenceThreshold,
		ReinforceAlpha:      cfg.Classifier.ReinforceAlpha,
		ReinforceRate:       cfg.Classifier.ReinforceRate,
	})

	tr := tracker.New(tracker.Config{
		ProgressBuffer: cfg.Tracker.ProgressBuffer,
		GracePeriod:    time.Duration(cfg.Tracker.GracePeriodMS) * time.Millisecond,
	})

	insp, err := inspector.New(cfg.Inspector.CacheSize)
	if err != nil {
		cl.Close()
		return nil, eris.Wrap(err, "init error inspector")
	}

	hist, err := initHistory(ctx)
	if err != nil {
		cl.Close()
		return nil, err
	}

	orch := orchestrator.New(cl, tr, insp, hist, orchestrator.Config{
		MaxAttempts:     cfg.Orchestrator.MaxAttempts,
		DefaultTimeout:  time.Duration(cfg.Orchestrator.DefaultTimeoutSecs) * time.Second,
		MinAttemptFloor: time.Duration(cfg.Orchestrator.MinAttemptFloorMS) * time.Millisecond,
		Backoff: resilience.BackoffConfig{
			Base:           time.Duration(cfg.Orchestrator.BackoffBaseMS) * time.Millisecond,
			Multiplier:     2.0,
			Cap:            time.Duration(cfg.Orchestrator.BackoffCapMS) * time.Millisecond,
			JitterFraction: cfg.Orchestrator.BackoffJitter,
		},
	})

	return &Env{
		Classifier:   cl,
		Tracker:      tr,
		Inspector:    insp,
		History:      hist,
		Orchestrator: orch,
	}, nil
}
