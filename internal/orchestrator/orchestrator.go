// Package orchestrator drives one analysis job end to end: validation,
// industry classification, budgeted execution with self-correcting retries,
// and history recording. Callers always get a structured AnalysisResult;
// errors surface through its status and diagnostics, never as a returned
// error.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/analysis-core/internal/classifier"
	"github.com/sells-group/analysis-core/internal/history"
	"github.com/sells-group/analysis-core/internal/inspector"
	"github.com/sells-group/analysis-core/internal/model"
	"github.com/sells-group/analysis-core/internal/resilience"
	"github.com/sells-group/analysis-core/internal/tracker"
)

// Config tunes the retry and budget policy of a job.
type Config struct {
	// MaxAttempts is the retry ceiling per job. Default: 3.
	MaxAttempts int

	// DefaultTimeout is the hard wall-clock ceiling for a whole job,
	// retries and backoff included. Default: 5m.
	DefaultTimeout time.Duration

	// MinAttemptFloor is the smallest budget worth starting an attempt
	// with. Default: 50ms.
	MinAttemptFloor time.Duration

	// Backoff paces retries after recoverable failures.
	Backoff resilience.BackoffConfig
}

// DefaultConfig returns the production policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		DefaultTimeout:  5 * time.Minute,
		MinAttemptFloor: 50 * time.Millisecond,
		Backoff:         resilience.DefaultBackoffConfig(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = def.DefaultTimeout
	}
	if c.MinAttemptFloor <= 0 {
		c.MinAttemptFloor = def.MinAttemptFloor
	}
	return c
}

// TaskFactory builds the computation task for one attempt. The spec is a
// private clone; mutating it never affects later attempts.
type TaskFactory func(spec model.TaskSpec) tracker.Task

// Orchestrator coordinates the classifier, tracker, inspector, and history
// store. Safe for concurrent use; each Orchestrate call is an independent
// job with no shared mutable state.
type Orchestrator struct {
	classifier *classifier.Classifier
	tracker    *tracker.Tracker
	inspector  *inspector.Inspector
	history    history.Store
	cfg        Config
}

// New builds an Orchestrator. All four collaborators are required.
func New(cl *classifier.Classifier, tr *tracker.Tracker, insp *inspector.Inspector, hist history.Store, cfg Config) *Orchestrator {
	return &Orchestrator{
		classifier: cl,
		tracker:    tr,
		inspector:  insp,
		history:    hist,
		cfg:        cfg.withDefaults(),
	}
}

// Orchestrate runs one analysis job to completion. The sink, when non-nil,
// receives the job's monotonic progress stream; the last event always
// carries percent 100 and the terminal status. The returned result is
// never nil.
func (o *Orchestrator) Orchestrate(ctx context.Context, req model.AnalysisRequest, factory TaskFactory, sink func(model.ProgressEvent)) *model.AnalysisResult {
	start := time.Now()
	job := &model.Job{
		ID:        uuid.NewString(),
		State:     model.JobStateIdle,
		Deadline:  start.Add(o.cfg.DefaultTimeout),
		CreatedAt: start,
	}
	em := newEmitter(job.ID, sink)

	zap.L().Info("orchestrator: job accepted",
		zap.String("job_id", job.ID),
		zap.Int("columns", len(req.DatasetColumns)),
		zap.Duration("timeout", o.cfg.DefaultTimeout))

	if factory == nil {
		diagnose(job, "validate", model.CategoryInputValidation, "no task factory provided", nil)
		return o.finish(ctx, job, em, model.Classification{}, model.OutcomeFailed, nil, req.QuestionText, start)
	}
	if req.IsEmpty() {
		diagnose(job, "validate", model.CategoryInputValidation, "request has no dataset columns and no question text", nil)
		return o.finish(ctx, job, em, model.Classification{}, model.OutcomeFailed, nil, req.QuestionText, start)
	}
	em.emit(2, "validate", "request accepted")

	job.State = model.JobStateClassifying
	class, err := o.classifier.Classify(req.DatasetColumns, req.QuestionText)
	if err != nil {
		diagnose(job, "classify", model.CategoryInputValidation, err.Error(), nil)
		return o.finish(ctx, job, em, model.Classification{}, model.OutcomeFailed, nil, req.QuestionText, start)
	}
	em.emit(percentClassified, "classify",
		fmt.Sprintf("classified as %s (confidence %.2f)", class.Industry, class.Confidence))

	status, output := o.execute(ctx, job, em, req, factory)
	return o.finish(ctx, job, em, class, status, output, req.QuestionText, start)
}

// execute runs the attempt loop and returns the terminal status plus the
// best output produced, which may be nil.
func (o *Orchestrator) execute(ctx context.Context, job *model.Job, em *emitter, req model.AnalysisRequest, factory TaskFactory) (model.OutcomeStatus, *model.TaskOutput) {
	jobCtx, cancel := context.WithDeadline(ctx, job.Deadline)
	defer cancel()

	spec := buildSpec(req)

	var (
		lastCategory model.ErrorCategory
		partial      *model.TaskOutput
	)

attempts:
	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		remaining := time.Until(job.Deadline)
		if remaining < o.cfg.MinAttemptFloor {
			lastCategory = model.CategoryTimeout
			diagnose(job, "budget", model.CategoryTimeout,
				fmt.Sprintf("time budget exhausted before attempt %d", attempt), nil)
			break
		}

		// Split what is left evenly across the attempts still possible,
		// so early failures leave later attempts a fair share.
		budget := remaining / time.Duration(o.cfg.MaxAttempts-attempt+1)
		if budget < o.cfg.MinAttemptFloor {
			budget = o.cfg.MinAttemptFloor
		}

		job.State = model.JobStateExecuting
		job.Attempt = attempt
		res := o.tracker.Execute(jobCtx, job.ID, factory(spec.Clone()), budget, em.attemptSink())

		switch res.State {
		case model.ExecSucceeded:
			if res.Output != nil && res.Output.Partial {
				return model.OutcomeDegraded, res.Output
			}
			return model.OutcomeSucceeded, res.Output

		case model.ExecCancelled:
			if errors.Is(res.Err, context.DeadlineExceeded) {
				// The job deadline fired, not the caller.
				lastCategory = model.CategoryTimeout
				diagnose(job, "execute", model.CategoryTimeout, "job deadline exceeded", nil)
				break attempts
			}
			diagnose(job, "execute", model.CategoryCancelled, "job cancelled by caller", nil)
			return model.OutcomeCancelled, partial

		case model.ExecTimedOut:
			lastCategory = model.CategoryTimeout
			diagnose(job, "execute", model.CategoryTimeout,
				fmt.Sprintf("attempt %d exceeded its %s budget", attempt, budget.Round(time.Millisecond)), nil)
			// Next iteration re-splits whatever budget remains.
			continue

		case model.ExecFailed:
			analysis := o.inspector.Analyze(res.Err, inspector.Context{
				Fields: spec.ColumnNames(),
				Types:  columnTypes(spec),
			})
			lastCategory = analysis.Category
			if res.Output != nil {
				partial = res.Output
			}

			var applied *model.Fix
			if analysis.Fix != nil && applyFix(&spec, *analysis.Fix) {
				applied = analysis.Fix
			}
			diagnose(job, "execute", analysis.Category, res.Err.Error(), applied)

			if !analysis.Category.RetryEligible() || attempt == o.cfg.MaxAttempts {
				break attempts
			}
			// Schema and type errors are only worth retrying once their
			// fix has rewritten the spec; transient errors retry as-is.
			if applied == nil && analysis.Category != model.CategoryTransient {
				break attempts
			}

			job.State = model.JobStateRetrying
			em.emit(0, "retry", fmt.Sprintf("attempt %d failed (%s); retrying", attempt, analysis.Category))
			if err := o.cfg.Backoff.Sleep(jobCtx, attempt-1); err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					lastCategory = model.CategoryTimeout
					diagnose(job, "backoff", model.CategoryTimeout, "job deadline exceeded during backoff", nil)
					break attempts
				}
				diagnose(job, "backoff", model.CategoryCancelled, "job cancelled during backoff", nil)
				return model.OutcomeCancelled, partial
			}
		}
	}

	if partial != nil || lastCategory.RetryEligible() {
		return model.OutcomeDegraded, partial
	}
	return model.OutcomeFailed, partial
}

// finish records the job in history, emits the terminal progress event, and
// assembles the caller-facing result.
func (o *Orchestrator) finish(ctx context.Context, job *model.Job, em *emitter, class model.Classification, status model.OutcomeStatus, output *model.TaskOutput, questionText string, start time.Time) *model.AnalysisResult {
	job.State = model.JobStateFinalizing

	var insights, recs []string
	if status == model.OutcomeSucceeded || status == model.OutcomeDegraded {
		insights, recs = o.synthesize(ctx, class, output, questionText, status)
	}

	record := model.HistoryRecord{
		ID:             job.ID,
		QuestionText:   questionText,
		Classification: class,
		OutcomeStatus:  status,
		ErrorCategory:  lastErrorCategory(job.Diagnostics),
		Timestamp:      time.Now(),
	}
	// History must not depend on the caller's context still being live.
	appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.history.Append(appendCtx, record); err != nil {
		zap.L().Warn("orchestrator: history append failed",
			zap.String("job_id", job.ID), zap.Error(err))
	}

	if status == model.OutcomeSucceeded {
		o.reinforce(class)
	}

	job.State = model.JobStateDone
	em.terminal(status)

	elapsed := time.Since(start)
	zap.L().Info("orchestrator: job finished",
		zap.String("job_id", job.ID),
		zap.String("status", string(status)),
		zap.Int("attempts", job.Attempt),
		zap.Duration("elapsed", elapsed))

	return &model.AnalysisResult{
		JobID:           job.ID,
		Status:          status,
		Classification:  class,
		Insights:        insights,
		Recommendations: recs,
		Diagnostics:     job.Diagnostics,
		Attempts:        job.Attempt,
		Elapsed:         elapsed,
	}
}

// reinforce feeds a successful classification back into the classifier's
// weight store. Fire-and-forget; the classifier drops updates under load.
func (o *Orchestrator) reinforce(class model.Classification) {
	if class.Industry == "" || class.Industry == model.IndustryGeneral {
		return
	}
	for _, indicator := range class.MatchedIndicators {
		o.classifier.Reinforce(class.Industry, indicator)
	}
}

// buildSpec derives the mutable task spec from the immutable request.
// Declared column types may ride in via the "column_types" option.
func buildSpec(req model.AnalysisRequest) model.TaskSpec {
	spec := model.TaskSpec{
		Columns:  make(map[string]model.ColumnSpec, len(req.DatasetColumns)),
		Question: req.QuestionText,
	}
	// The request is immutable once submitted; fixes rewrite a private copy
	// of its options, never the caller's map.
	if req.Options != nil {
		spec.Options = make(map[string]any, len(req.Options))
		for k, v := range req.Options {
			spec.Options[k] = v
		}
	}
	for _, name := range req.DatasetColumns {
		spec.Columns[name] = model.ColumnSpec{}
	}
	if declared, ok := req.Options["column_types"].(map[string]string); ok {
		for name, typ := range declared {
			if _, present := spec.Columns[name]; present {
				spec.Columns[name] = model.ColumnSpec{Type: typ}
			}
		}
	}
	return spec
}

func columnTypes(spec model.TaskSpec) map[string]string {
	types := make(map[string]string, len(spec.Columns))
	for name, col := range spec.Columns {
		if col.Type != "" {
			types[name] = col.Type
		}
	}
	return types
}

func diagnose(job *model.Job, stage string, category model.ErrorCategory, message string, fix *model.Fix) {
	job.Diagnostics = append(job.Diagnostics, model.DiagnosticEntry{
		Stage:         stage,
		ErrorCategory: string(category),
		Message:       message,
		FixApplied:    fix,
	})
}

// lastErrorCategory picks the most recent diagnostic category for the
// history record. Empty when the job had no failures.
func lastErrorCategory(diags []model.DiagnosticEntry) model.ErrorCategory {
	for i := len(diags) - 1; i >= 0; i-- {
		if diags[i].ErrorCategory != "" {
			return model.ErrorCategory(diags[i].ErrorCategory)
		}
	}
	return ""
}
