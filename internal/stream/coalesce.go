package stream

import (
	"sync"
	"time"
)

// Coalescer batches rapid enqueues into rate-limited flushes. At most one
// flush runs per minInterval; a flush always drains the entire pending
// queue in arrival order. If the timer fires early relative to the rate
// gate it reschedules itself instead of dropping the batch.
type Coalescer[T any] struct {
	mu          sync.Mutex
	pending     []T
	timer       *time.Timer
	lastFlush   time.Time
	minInterval time.Duration
	flush       func([]T)
	stopped     bool
	flushDone   chan struct{} // non-nil while a timer flush is in flight
}

// NewCoalescer creates a coalescer that hands full batches to flush. The
// flush callback runs on the coalescer's timer goroutine (or the caller's
// goroutine for synchronous Flush) and must not call back into the
// coalescer.
func NewCoalescer[T any](minInterval time.Duration, flush func([]T)) *Coalescer[T] {
	return &Coalescer[T]{
		minInterval: minInterval,
		flush:       flush,
		// gate the first flush too, so a burst right after creation
		// coalesces instead of splitting across two flushes
		lastFlush: time.Now(),
	}
}

// Enqueue appends an item and schedules a flush if none is pending.
func (c *Coalescer[T]) Enqueue(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	c.pending = append(c.pending, item)
	if c.timer == nil {
		delay := c.minInterval - time.Since(c.lastFlush)
		if delay < 0 {
			delay = 0
		}
		c.timer = time.AfterFunc(delay, c.fire)
	}
}

func (c *Coalescer[T]) fire() {
	c.mu.Lock()

	c.timer = nil
	if c.stopped || len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}

	// rate gate: too soon since the last flush, reschedule with the batch
	// intact
	if wait := c.minInterval - time.Since(c.lastFlush); wait > 0 {
		c.timer = time.AfterFunc(wait, c.fire)
		c.mu.Unlock()
		return
	}

	batch := c.pending
	c.pending = nil
	c.lastFlush = time.Now()
	done := make(chan struct{})
	c.flushDone = done
	c.mu.Unlock()

	c.flush(batch)

	c.mu.Lock()
	c.flushDone = nil
	c.mu.Unlock()
	close(done)
}

// Flush synchronously drains whatever is pending, bypassing the rate gate.
// Used before applying terminal state so no queued update is lost or
// reordered past it. A batch the timer has already taken but not yet
// delivered counts as pending: Flush waits for that delivery to finish.
func (c *Coalescer[T]) Flush() {
	c.mu.Lock()
	for c.flushDone != nil {
		done := c.flushDone
		c.mu.Unlock()
		<-done
		c.mu.Lock()
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	batch := c.pending
	c.pending = nil
	c.lastFlush = time.Now()
	stopped := c.stopped
	c.mu.Unlock()

	if !stopped && len(batch) > 0 {
		c.flush(batch)
	}
}

// Stop discards pending items and prevents further flushes. Idempotent.
func (c *Coalescer[T]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	c.pending = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
