package tracker

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/analysis-core/internal/model"
)

// ProgressFunc is how a task reports progress. Percent is clamped to a
// monotonically non-decreasing 0-100 range for the lifetime of one
// execution; out-of-order reports are raised to the high-water mark rather
// than dropped so their stage and message still reach the consumer.
type ProgressFunc func(percent int, stage, message string)

// Task is one externally supplied unit of work. Run must honor ctx
// cancellation at its next check-point and may call report any number of
// times. On failure it should return an error carrying one of the defined
// error categories (see resilience.CategorizedError); uncategorized errors
// are treated as transient by the inspector.
type Task interface {
	Run(ctx context.Context, report ProgressFunc) (*model.TaskOutput, error)
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc func(ctx context.Context, report ProgressFunc) (*model.TaskOutput, error)

// Run implements Task.
func (f TaskFunc) Run(ctx context.Context, report ProgressFunc) (*model.TaskOutput, error) {
	return f(ctx, report)
}

// Config tunes execution tracking.
type Config struct {
	// ProgressBuffer bounds the undelivered progress queue. On overflow the
	// oldest unread event is dropped, never the newest. Default: 64.
	ProgressBuffer int

	// GracePeriod is how long the tracker waits for a cancelled task to
	// return before declaring the terminal state without it. Default: 500ms.
	GracePeriod time.Duration
}

// DefaultConfig returns production tracking settings.
func DefaultConfig() Config {
	return Config{
		ProgressBuffer: 64,
		GracePeriod:    500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	if c.ProgressBuffer <= 0 {
		c.ProgressBuffer = 64
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = 500 * time.Millisecond
	}
	return c
}

// Tracker runs tasks with progress emission, cooperative cancellation, and
// a hard timeout. A single Tracker is safe for concurrent use; each Execute
// call owns its own state machine.
type Tracker struct {
	cfg Config
}

// New creates a Tracker.
func New(cfg Config) *Tracker {
	return &Tracker{cfg: cfg.withDefaults()}
}

type taskReturn struct {
	output *model.TaskOutput
	err    error
}

// Execute runs task with the given timeout, delivering progress events for
// jobID to sink. Delivery is asynchronous: a slow sink never stalls the
// task, and exactly one terminal state is reached. If the timeout elapses
// the task is cancelled and, after at most the grace period, the result is
// TimedOut regardless of task responsiveness.
func (t *Tracker) Execute(ctx context.Context, jobID string, task Task, timeout time.Duration, sink func(model.ProgressEvent)) model.ExecutionResult {
	start := time.Now()

	if task == nil {
		return model.ExecutionResult{
			State: model.ExecFailed,
			Err:   eris.New("tracker: nil task"),
		}
	}
	if timeout <= 0 {
		return model.ExecutionResult{
			State: model.ExecTimedOut,
			Err:   context.DeadlineExceeded,
		}
	}

	queue := newProgressQueue(t.cfg.ProgressBuffer, sink)
	defer queue.closeAndDrain()

	// state: Pending -> Running.
	monotonic := newPercentClamp()
	report := func(percent int, stage, message string) {
		queue.push(model.ProgressEvent{
			JobID:     jobID,
			Percent:   monotonic.clamp(percent),
			Stage:     stage,
			Message:   message,
			Timestamp: time.Now().UTC(),
		})
	}
	report(0, "execute", "task started")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	returned := make(chan taskReturn, 1)
	go func() {
		output, err := task.Run(runCtx, report)
		returned <- taskReturn{output: output, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-returned:
		return t.settle(jobID, r, report, start)

	case <-timer.C:
		cancel()
		t.awaitGrace(ctx, jobID, returned)
		report(monotonic.current(), "execute", "timed out")
		return model.ExecutionResult{
			State:    model.ExecTimedOut,
			Err:      context.DeadlineExceeded,
			Duration: time.Since(start),
		}

	case <-ctx.Done():
		cancel()
		t.awaitGrace(ctx, jobID, returned)
		report(monotonic.current(), "execute", "cancelled")
		return model.ExecutionResult{
			State:    model.ExecCancelled,
			Err:      ctx.Err(),
			Duration: time.Since(start),
		}
	}
}

// settle maps a task return into a terminal execution state.
func (t *Tracker) settle(jobID string, r taskReturn, report ProgressFunc, start time.Time) model.ExecutionResult {
	if r.err != nil {
		report(0, "execute", "task failed")
		// A task may hand back partial output alongside its error; the
		// orchestrator uses it for degraded results.
		return model.ExecutionResult{
			State:    model.ExecFailed,
			Output:   r.output,
			Err:      r.err,
			Duration: time.Since(start),
		}
	}
	report(100, "execute", "task complete")
	return model.ExecutionResult{
		State:    model.ExecSucceeded,
		Output:   r.output,
		Duration: time.Since(start),
	}
}

// awaitGrace gives a cancelled task one grace period to return, capped at
// whatever remains of the caller's deadline. The tracker never blocks past
// either bound waiting for cooperative cancellation.
func (t *Tracker) awaitGrace(ctx context.Context, jobID string, returned <-chan taskReturn) {
	grace := t.cfg.GracePeriod
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < grace {
			grace = remaining
		}
	}
	if grace <= 0 {
		return
	}

	graceTimer := time.NewTimer(grace)
	defer graceTimer.Stop()
	select {
	case <-returned:
	case <-graceTimer.C:
		zap.L().Warn("tracker: task did not honor cancellation within grace period",
			zap.String("job_id", jobID),
			zap.Duration("grace", grace),
		)
	}
}
