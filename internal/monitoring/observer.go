package monitoring

import (
	"sync"

	"github.com/sells-group/analysis-core/internal/model"
)

// Observer tracks the latest progress event per job. Plug its Sink into an
// orchestrate call to make the job visible to status queries. Jobs are
// dropped from the active view once their terminal event arrives.
type Observer struct {
	mu     sync.RWMutex
	active map[string]model.ProgressEvent
}

// NewObserver creates an empty progress observer.
func NewObserver() *Observer {
	return &Observer{active: make(map[string]model.ProgressEvent)}
}

// Sink returns a progress sink suitable for Orchestrate.
func (o *Observer) Sink() func(model.ProgressEvent) {
	return o.observe
}

func (o *Observer) observe(ev model.ProgressEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ev.Percent >= 100 {
		delete(o.active, ev.JobID)
		return
	}
	o.active[ev.JobID] = ev
}

// Active returns the latest event for every in-flight job.
func (o *Observer) Active() []model.ProgressEvent {
	o.mu.RLock()
	defer o.mu.RUnlock()
	events := make([]model.ProgressEvent, 0, len(o.active))
	for _, ev := range o.active {
		events = append(events, ev)
	}
	return events
}

// Job returns the latest event for one job, if it is still in flight.
func (o *Observer) Job(jobID string) (model.ProgressEvent, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ev, ok := o.active[jobID]
	return ev, ok
}
