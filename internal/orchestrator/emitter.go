package orchestrator

import (
	"sync"
	"time"

	"github.com/sells-group/analysis-core/internal/model"
)

// Percent bands for the job-level progress stream. Attempt-level events from
// the tracker are rescaled into the executing band so the job stream stays
// monotonic across retries; the terminal event alone reaches 100.
const (
	percentClassified = 5
	percentExecBase   = 10
	percentExecSpan   = 85
)

// emitter folds per-attempt progress into one monotonic job-level stream.
// Attempt streams restart at 0 on every retry; the emitter's floor absorbs
// that so observers never see percent move backwards. Safe for concurrent
// use: the tracker's delivery goroutine and the orchestrator both emit.
type emitter struct {
	jobID string
	sink  func(model.ProgressEvent)

	mu    sync.Mutex
	floor int
	done  bool
}

func newEmitter(jobID string, sink func(model.ProgressEvent)) *emitter {
	return &emitter{jobID: jobID, sink: sink}
}

// emit publishes a job-level event at the given percent, clamped to the
// current floor and capped at 99. Only terminal may publish 100.
func (e *emitter) emit(percent int, stage, message string) {
	if e.sink == nil {
		return
	}
	if percent > 99 {
		percent = 99
	}

	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		return
	}
	if percent < e.floor {
		percent = e.floor
	}
	e.floor = percent
	e.mu.Unlock()

	e.sink(model.ProgressEvent{
		JobID:     e.jobID,
		Percent:   percent,
		Stage:     stage,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// attemptSink adapts the emitter into a tracker sink, rescaling the
// attempt's 0-100 range into the executing band.
func (e *emitter) attemptSink() func(model.ProgressEvent) {
	if e.sink == nil {
		return nil
	}
	return func(ev model.ProgressEvent) {
		scaled := percentExecBase + ev.Percent*percentExecSpan/100
		e.emit(scaled, ev.Stage, ev.Message)
	}
}

// terminal publishes the single percent-100 event that closes the stream.
// Further emits are dropped.
func (e *emitter) terminal(status model.OutcomeStatus) {
	if e.sink == nil {
		return
	}

	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		return
	}
	e.done = true
	e.mu.Unlock()

	e.sink(model.ProgressEvent{
		JobID:     e.jobID,
		Percent:   100,
		Stage:     "done",
		Message:   string(status),
		Timestamp: time.Now(),
	})
}
