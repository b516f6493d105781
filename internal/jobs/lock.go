package jobs

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrJobBusy is returned when another run holds the job lease and the wait
// window expires before it is released.
var ErrJobBusy = errors.New("jobs: another run already holds the job lease")

// defaultPollInterval is how often Acquire re-checks a held lease.
const defaultPollInterval = 50 * time.Millisecond

type lease struct {
	token  uint64
	expiry time.Time
}

// Locks hands out named advisory leases so concurrent triggers of the same
// job identity never overlap. This is cooperative mutual exclusion at the
// orchestration layer, not a database lock. A lease expires after its TTL so
// a holder that never returns cannot block the job forever.
type Locks struct {
	mu     sync.Mutex
	leases map[string]lease
	next   uint64

	now          func() time.Time
	pollInterval time.Duration
}

// NewLocks creates an empty lease registry.
func NewLocks() *Locks {
	return &Locks{
		leases:       make(map[string]lease),
		now:          time.Now,
		pollInterval: defaultPollInterval,
	}
}

// Acquire claims the named lease, waiting up to wait for the current holder
// to release or expire. On success it returns a release function; the caller
// must invoke it when the run completes. If the wait window closes first,
// Acquire returns ErrJobBusy rather than blocking indefinitely.
func (l *Locks) Acquire(ctx context.Context, name string, wait, ttl time.Duration) (func(), error) {
	deadline := l.now().Add(wait)

	for {
		if release, ok := l.tryAcquire(name, ttl); ok {
			return release, nil
		}

		if !l.now().Before(deadline) {
			return nil, ErrJobBusy
		}

		timer := time.NewTimer(l.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire claims the lease if it is free or expired.
func (l *Locks) tryAcquire(name string, ttl time.Duration) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, held := l.leases[name]; held && l.now().Before(cur.expiry) {
		return nil, false
	}

	l.next++
	token := l.next
	l.leases[name] = lease{token: token, expiry: l.now().Add(ttl)}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		// Only remove the lease this caller still owns; an expired lease may
		// have been claimed by a newer run.
		if cur, held := l.leases[name]; held && cur.token == token {
			delete(l.leases, name)
		}
	}
	return release, true
}
