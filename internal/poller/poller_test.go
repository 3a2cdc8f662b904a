package poller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tivly/tivly-cli/internal/api"
)

type clientFunc func(ctx context.Context, jobID string) (*api.JobStatus, error)

func (f clientFunc) JobStatus(ctx context.Context, jobID string) (*api.JobStatus, error) {
	return f(ctx, jobID)
}

// scriptedClient returns the scripted responses in order, repeating the last
// one once the script is exhausted.
func scriptedClient(script ...*api.JobStatus) clientFunc {
	var mu sync.Mutex
	i := 0
	return func(ctx context.Context, jobID string) (*api.JobStatus, error) {
		mu.Lock()
		defer mu.Unlock()
		s := script[i]
		if i < len(script)-1 {
			i++
		}
		return s, nil
	}
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %s", what)
	}
}

func TestPoller_QueuedThenCompleted(t *testing.T) {
	client := scriptedClient(
		&api.JobStatus{Status: "queued"},
		&api.JobStatus{Status: "completed", Stage: "done", Transcript: "hello world"},
	)

	done := make(chan struct{})
	var completions int32
	var got Result

	p := NewWithInterval(client, Callbacks{
		OnCompleted: func(r Result) {
			if atomic.AddInt32(&completions, 1) == 1 {
				got = r
				close(done)
			}
		},
		OnFailed: func(msg string) { t.Errorf("unexpected failure: %s", msg) },
	}, 5*time.Millisecond)

	p.Watch("m1")
	waitFor(t, done, "completion")
	p.Wait()

	if got.Transcript != "hello world" {
		t.Errorf("transcript = %q, want %q", got.Transcript, "hello world")
	}
	if n := atomic.LoadInt32(&completions); n != 1 {
		t.Errorf("completion fired %d times, want 1", n)
	}
	if p.Polling() {
		t.Error("poller should have stopped after completion")
	}
}

func TestPoller_SubsystemDoneSatisfiesOrRule(t *testing.T) {
	// stage is still "processing" but the identification subsystem reports
	// done: terminal per the OR arm of the completion rule
	client := scriptedClient(
		&api.JobStatus{Status: "queued"},
		&api.JobStatus{Status: "completed", Stage: "processing", SISStatus: "done", Transcript: "hello world"},
	)

	done := make(chan struct{})
	p := NewWithInterval(client, Callbacks{
		OnCompleted: func(r Result) {
			if r.Transcript != "hello world" {
				t.Errorf("transcript = %q", r.Transcript)
			}
			close(done)
		},
	}, 5*time.Millisecond)

	p.Watch("m1")
	waitFor(t, done, "completion")
	p.Wait()
}

func TestPoller_NoPrematureCompletion(t *testing.T) {
	// main status completed but neither stage nor subsystem is terminal:
	// the completion callback must NOT fire
	pending := &api.JobStatus{Status: "completed", Stage: "processing", SISStatus: "running", Transcript: "early text"}
	terminal := &api.JobStatus{Status: "completed", Stage: "done", SISStatus: "done", Transcript: "final text"}

	var calls int32
	client := clientFunc(func(ctx context.Context, jobID string) (*api.JobStatus, error) {
		if atomic.AddInt32(&calls, 1) < 4 {
			return pending, nil
		}
		return terminal, nil
	})

	done := make(chan struct{})
	p := NewWithInterval(client, Callbacks{
		OnCompleted: func(r Result) {
			if r.Transcript != "final text" {
				t.Errorf("completed with premature transcript %q", r.Transcript)
			}
			close(done)
		},
	}, 2*time.Millisecond)

	p.Watch("m1")
	waitFor(t, done, "completion")
	p.Wait()

	if n := atomic.LoadInt32(&calls); n < 4 {
		t.Errorf("completed after %d polls; should have kept polling past the pending responses", n)
	}
}

func TestPoller_IdempotentWatch(t *testing.T) {
	var inFlight, maxInFlight int32
	blocker := make(chan struct{})

	client := clientFunc(func(ctx context.Context, jobID string) (*api.JobStatus, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			old := atomic.LoadInt32(&maxInFlight)
			if n <= old || atomic.CompareAndSwapInt32(&maxInFlight, old, n) {
				break
			}
		}
		select {
		case <-blocker:
		case <-ctx.Done():
		}
		return &api.JobStatus{Status: "processing"}, nil
	})

	p := NewWithInterval(client, Callbacks{}, 2*time.Millisecond)

	// concurrent duplicate starts for the same job
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Watch("m1")
		}()
	}
	wg.Wait()

	time.Sleep(20 * time.Millisecond)
	close(blocker)
	p.Stop()
	p.Wait()

	if max := atomic.LoadInt32(&maxInFlight); max != 1 {
		t.Errorf("max concurrent requests = %d, want 1", max)
	}
}

func TestPoller_FailedStatus(t *testing.T) {
	client := scriptedClient(
		&api.JobStatus{Status: "failed", Error: "engine crashed"},
	)

	done := make(chan struct{})
	p := NewWithInterval(client, Callbacks{
		OnCompleted: func(Result) { t.Error("unexpected completion") },
		OnFailed: func(msg string) {
			if msg != "engine crashed" {
				t.Errorf("message = %q", msg)
			}
			close(done)
		},
	}, 2*time.Millisecond)

	p.Watch("m1")
	waitFor(t, done, "failure")
	p.Wait()

	if p.LastError() != "engine crashed" {
		t.Errorf("LastError() = %q", p.LastError())
	}
}

func TestPoller_FailedStatusDefaultMessage(t *testing.T) {
	client := scriptedClient(&api.JobStatus{Status: "error"})

	done := make(chan struct{})
	p := NewWithInterval(client, Callbacks{
		OnFailed: func(msg string) {
			if msg != DefaultFailureMessage {
				t.Errorf("message = %q, want default", msg)
			}
			close(done)
		},
	}, 2*time.Millisecond)

	p.Watch("m1")
	waitFor(t, done, "failure")
	p.Wait()
}

func TestPoller_TransientErrorContinues(t *testing.T) {
	var calls int32
	client := clientFunc(func(ctx context.Context, jobID string) (*api.JobStatus, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, fmt.Errorf("connection refused")
		}
		return &api.JobStatus{Status: "completed", Stage: "done", Transcript: "recovered"}, nil
	})

	done := make(chan struct{})
	p := NewWithInterval(client, Callbacks{
		OnCompleted: func(r Result) {
			if r.Transcript != "recovered" {
				t.Errorf("transcript = %q", r.Transcript)
			}
			close(done)
		},
		OnFailed: func(msg string) { t.Errorf("network error treated as terminal: %s", msg) },
	}, 2*time.Millisecond)

	p.Watch("m1")
	waitFor(t, done, "completion after transient error")
	p.Wait()
}

func TestPoller_JobChangeCancelsStaleLoop(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	served := map[string]int{}

	client := clientFunc(func(ctx context.Context, jobID string) (*api.JobStatus, error) {
		mu.Lock()
		served[jobID]++
		mu.Unlock()

		if jobID == "old" {
			// hold the old job's request until after the switch
			select {
			case <-release:
			case <-ctx.Done():
			}
			return &api.JobStatus{Status: "completed", Stage: "done", Transcript: "stale result"}, nil
		}
		return &api.JobStatus{Status: "completed", Stage: "done", Transcript: "fresh result"}, nil
	})

	done := make(chan struct{})
	p := NewWithInterval(client, Callbacks{
		OnCompleted: func(r Result) {
			if r.Transcript != "fresh result" {
				t.Errorf("stale loop committed result %q", r.Transcript)
			}
			select {
			case <-done:
				t.Error("completion fired more than once")
			default:
				close(done)
			}
		},
	}, 2*time.Millisecond)

	p.Watch("old")
	time.Sleep(10 * time.Millisecond)
	p.Watch("new")
	close(release)

	waitFor(t, done, "completion of new job")
	p.Wait()

	if snap := p.Snapshot(); snap != nil && snap.Transcript == "stale result" {
		t.Error("stale loop overwrote the snapshot")
	}
}

func TestPoller_JobChangeDuringStatusCallback(t *testing.T) {
	inStatus := make(chan struct{})
	resume := make(chan struct{})
	var completions int32
	var once sync.Once

	client := clientFunc(func(ctx context.Context, jobID string) (*api.JobStatus, error) {
		if jobID == "old" {
			return &api.JobStatus{Status: "completed", Stage: "done", Transcript: "stale result"}, nil
		}
		return &api.JobStatus{Status: "processing"}, nil
	})

	p := NewWithInterval(client, Callbacks{
		OnStatus: func(s api.JobStatus) {
			if s.Transcript == "stale result" {
				// hold the old job's publish until after the switch
				once.Do(func() {
					close(inStatus)
					<-resume
				})
			}
		},
		OnCompleted: func(r Result) {
			atomic.AddInt32(&completions, 1)
		},
		OnFailed: func(msg string) { t.Errorf("unexpected failure: %s", msg) },
	}, 5*time.Millisecond)

	p.Watch("old")
	waitFor(t, inStatus, "old job's status callback")
	p.Watch("new")
	close(resume)

	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt32(&completions); n != 0 {
		t.Errorf("completion fired %d times for the superseded job, want 0", n)
	}
	if !p.Polling() {
		t.Error("new job's loop should still be running")
	}
	if p.LastError() != "" {
		t.Errorf("superseded loop recorded error %q", p.LastError())
	}

	p.Stop()
	p.Wait()
}

func TestPoller_EmptyIDStops(t *testing.T) {
	var calls int32
	client := clientFunc(func(ctx context.Context, jobID string) (*api.JobStatus, error) {
		atomic.AddInt32(&calls, 1)
		return &api.JobStatus{Status: "processing"}, nil
	})

	p := NewWithInterval(client, Callbacks{}, 2*time.Millisecond)
	p.Watch("m1")
	time.Sleep(10 * time.Millisecond)
	p.Watch("")
	p.Wait()

	if p.Polling() {
		t.Error("poller still active after empty ID")
	}

	n := atomic.LoadInt32(&calls)
	time.Sleep(15 * time.Millisecond)
	if m := atomic.LoadInt32(&calls); m != n {
		t.Errorf("requests continued after stop: %d -> %d", n, m)
	}
}
