package inmemory

import (
	"sync"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/jobs"
)

// Events is an in-memory implementation of Notifier.
// It fans run updates out to subscriber channels and is safe for concurrent
// use. This implementation is suitable for single-instance deployments; for
// multi-instance deployments, migrate to Pub/Sub or similar.
type Events struct {
	mu     sync.RWMutex
	subs   map[chan *jobs.Run]struct{}
	closed bool
}

// NewEvents creates a new in-memory run event fan-out.
func NewEvents() *Events {
	return &Events{
		subs: make(map[chan *jobs.Run]struct{}),
	}
}

// Subscribe registers an observer and returns its channel together with an
// unsubscribe function. bufferSize determines how many undelivered updates
// the observer may fall behind before further updates are dropped for it.
func (e *Events) Subscribe(bufferSize int) (<-chan *jobs.Run, func()) {
	ch := make(chan *jobs.Run, bufferSize)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	e.subs[ch] = struct{}{}
	e.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			e.mu.Lock()
			if _, ok := e.subs[ch]; ok {
				delete(e.subs, ch)
				close(ch)
			}
			e.mu.Unlock()
		})
	}
	return ch, unsubscribe
}

// RunUpdated implements the Notifier interface.
// It never blocks: a subscriber with a full buffer misses the update.
func (e *Events) RunUpdated(run *jobs.Run) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return
	}

	for ch := range e.subs {
		runCopy := *run
		select {
		case ch <- &runCopy:
		default:
		}
	}
}

// Close drops all subscribers and closes their channels. Further updates are
// discarded.
func (e *Events) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	for ch := range e.subs {
		delete(e.subs, ch)
		close(ch)
	}
}

// Ensure Events implements the Notifier interface.
var _ jobs.Notifier = (*Events)(nil)
