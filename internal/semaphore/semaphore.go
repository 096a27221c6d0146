// Package semaphore provides the global counting semaphore the Image
// Processor acquires to bound the number of concurrently in-flight image
// processors. It is local to the worker process — unlike the per-origin
// token budget, it is never shared across the fleet.
package semaphore

import "context"

// Semaphore is a counting semaphore backed by a buffered channel.
type Semaphore struct {
	slots chan struct{}
}

// New creates a Semaphore with the given capacity. Capacity below 1 is
// treated as 1, since a worker that admits nothing can never make
// progress.
func New(capacity int) *Semaphore {
	if capacity < 1 {
		capacity = 1
	}
	return &Semaphore{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a permit is available or ctx is cancelled. A
// cancelled acquisition releases no permit and returns promptly. An
// already-cancelled ctx always takes priority, even if a permit happens
// to be free, so callers never need to worry about Go's random choice
// among simultaneously ready select cases.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns one permit to the pool. Safe to call from a deferred
// statement on every exit path, including after a panic recovery.
func (s *Semaphore) Release() {
	select {
	case <-s.slots:
	default:
		// Release without a matching Acquire is a caller bug; ignored
		// rather than panicking so a single misuse can't take the
		// worker down.
	}
}

// InUse returns the number of permits currently held.
func (s *Semaphore) InUse() int {
	return len(s.slots)
}

// Capacity returns the semaphore's total permit count.
func (s *Semaphore) Capacity() int {
	return cap(s.slots)
}
