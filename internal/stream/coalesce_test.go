package stream

import (
	"sync"
	"testing"
	"time"
)

func TestCoalescer_BurstDrainsIntoOneFlush(t *testing.T) {
	var mu sync.Mutex
	var batches [][]int

	c := NewCoalescer(50*time.Millisecond, func(batch []int) {
		mu.Lock()
		batches = append(batches, batch)
		mu.Unlock()
	})
	defer c.Stop()

	for i := 0; i < 10; i++ {
		c.Enqueue(i)
	}

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Fatalf("flush count = %d, want 1", len(batches))
	}
	if len(batches[0]) != 10 {
		t.Fatalf("batch size = %d, want 10 (full drain)", len(batches[0]))
	}
	for i, v := range batches[0] {
		if v != i {
			t.Errorf("batch[%d] = %d, want arrival order preserved", i, v)
		}
	}
}

func TestCoalescer_RateLimitBetweenFlushes(t *testing.T) {
	var mu sync.Mutex
	var flushTimes []time.Time

	interval := 60 * time.Millisecond
	c := NewCoalescer(interval, func(batch []int) {
		mu.Lock()
		flushTimes = append(flushTimes, time.Now())
		mu.Unlock()
	})
	defer c.Stop()

	c.Enqueue(1)
	time.Sleep(80 * time.Millisecond)
	c.Enqueue(2)
	time.Sleep(120 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(flushTimes) != 2 {
		t.Fatalf("flush count = %d, want 2", len(flushTimes))
	}
	if gap := flushTimes[1].Sub(flushTimes[0]); gap < interval-5*time.Millisecond {
		t.Errorf("flush gap = %v, want >= %v", gap, interval)
	}
}

func TestCoalescer_SynchronousFlush(t *testing.T) {
	var mu sync.Mutex
	var got []string

	c := NewCoalescer(time.Hour, func(batch []string) {
		mu.Lock()
		got = append(got, batch...)
		mu.Unlock()
	})
	defer c.Stop()

	c.Enqueue("a")
	c.Enqueue("b")

	// the timer gate is an hour out; Flush must drain right now
	c.Flush()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("flushed = %v, want [a b]", got)
	}
}

func TestCoalescer_FlushEmptyIsNoop(t *testing.T) {
	calls := 0
	c := NewCoalescer(time.Millisecond, func(batch []int) { calls++ })
	defer c.Stop()

	c.Flush()
	if calls != 0 {
		t.Errorf("flush callback ran %d times with nothing pending", calls)
	}
}

func TestCoalescer_StopDiscardsPending(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	c := NewCoalescer(10*time.Millisecond, func(batch []int) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	c.Enqueue(1)
	c.Stop()
	c.Stop() // idempotent
	c.Enqueue(2)
	c.Flush()

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("flush ran %d times after Stop", calls)
	}
}

func TestCoalescer_FlushWaitsForInFlightTimerFlush(t *testing.T) {
	var mu sync.Mutex
	var batches [][]int
	entered := make(chan struct{})
	blocked := make(chan struct{})
	first := true

	c := NewCoalescer(5*time.Millisecond, func(batch []int) {
		mu.Lock()
		isFirst := first
		first = false
		mu.Unlock()
		if isFirst {
			// hold the timer's delivery so a Flush can race it
			close(entered)
			<-blocked
		}
		mu.Lock()
		batches = append(batches, batch)
		mu.Unlock()
	})
	defer c.Stop()

	c.Enqueue(1)

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for timer flush")
	}

	flushReturned := make(chan struct{})
	go func() {
		c.Flush()
		close(flushReturned)
	}()

	select {
	case <-flushReturned:
		t.Fatal("Flush returned while a timer flush was still delivering its batch")
	case <-time.After(50 * time.Millisecond):
	}

	close(blocked)

	select {
	case <-flushReturned:
	case <-time.After(2 * time.Second):
		t.Fatal("Flush never returned after the timer flush finished")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 || len(batches[0]) != 1 || batches[0][0] != 1 {
		t.Errorf("batches = %v, want the taken batch delivered exactly once", batches)
	}
}
