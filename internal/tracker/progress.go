package tracker

import (
	"sync"

	"github.com/sells-group/analysis-core/internal/model"
)

// percentClamp enforces the monotonic progress invariant for one execution.
type percentClamp struct {
	mu   sync.Mutex
	high int
}

func newPercentClamp() *percentClamp {
	return &percentClamp{}
}

// clamp raises percent to the running high-water mark and bounds it to
// [0, 100], recording the new mark.
func (p *percentClamp) clamp(percent int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent < p.high {
		percent = p.high
	}
	p.high = percent
	return percent
}

func (p *percentClamp) current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.high
}

// progressQueue decouples progress producers from the consumer with a
// bounded ring buffer. Overflow drops the oldest unread event so the
// producer never blocks and the newest event is never lost.
type progressQueue struct {
	mu     sync.Mutex
	buf    []model.ProgressEvent
	head   int
	count  int
	closed bool

	notify chan struct{}
	done   chan struct{}
}

func newProgressQueue(capacity int, sink func(model.ProgressEvent)) *progressQueue {
	q := &progressQueue{
		buf:    make([]model.ProgressEvent, capacity),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.deliver(sink)
	return q
}

// push enqueues an event, evicting the oldest unread one when full.
func (q *progressQueue) push(ev model.ProgressEvent) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if q.count == len(q.buf) {
		// Latest-wins: advance past the oldest unread event.
		q.head = (q.head + 1) % len(q.buf)
		q.count--
	}
	q.buf[(q.head+q.count)%len(q.buf)] = ev
	q.count++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// deliver drains the ring and hands events to the sink in order. Sink calls
// happen outside the lock so a slow consumer only delays delivery, never
// the producer.
func (q *progressQueue) deliver(sink func(model.ProgressEvent)) {
	defer close(q.done)
	for {
		q.mu.Lock()
		batch := make([]model.ProgressEvent, 0, q.count)
		for q.count > 0 {
			batch = append(batch, q.buf[q.head])
			q.head = (q.head + 1) % len(q.buf)
			q.count--
		}
		closed := q.closed
		q.mu.Unlock()

		if sink != nil {
			for _, ev := range batch {
				sink(ev)
			}
		}
		if closed && len(batch) == 0 {
			return
		}
		if closed {
			// Loop once more to pick up anything pushed before close won the lock.
			continue
		}
		<-q.notify
	}
}

// closeAndDrain stops accepting events and blocks until every already
// queued event has been delivered.
func (q *progressQueue) closeAndDrain() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	<-q.done
}
