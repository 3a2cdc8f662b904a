// Package poller tracks a transcription job by repeatedly fetching its
// status until the job reaches a terminal state.
package poller

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/tivly/tivly-cli/internal/api"
)

// PollInterval is the fixed delay between status requests.
const PollInterval = 3 * time.Second

// DefaultFailureMessage is reported when the backend marks a job failed
// without an error message.
const DefaultFailureMessage = "transcription failed"

// StatusClient fetches one job status snapshot. *api.Client satisfies it.
type StatusClient interface {
	JobStatus(ctx context.Context, jobID string) (*api.JobStatus, error)
}

// Result carries everything captured at completion time.
type Result struct {
	Transcript   string
	Segments     []api.Segment
	Words        []api.Word
	Matches      []api.SpeakerMatch
	BestMatch    *api.SpeakerMatch
	Speakers     []string
	SpeakerNames map[string]string
}

// Callbacks are invoked from the polling goroutine. OnCompleted and OnFailed
// fire at most once per watched job.
type Callbacks struct {
	OnStatus    func(api.JobStatus)
	OnCompleted func(Result)
	OnFailed    func(message string)
}

// Poller runs at most one polling loop at a time. Watching a new job ID
// cancels the previous loop; a loop that lost its claim after an await never
// publishes state or fires callbacks.
type Poller struct {
	client   StatusClient
	interval time.Duration
	cb       Callbacks

	mu       sync.Mutex
	jobID    string
	gen      uint64
	polling  bool
	cancel   context.CancelFunc
	snapshot *api.JobStatus
	lastErr  string

	wg sync.WaitGroup
}

func New(client StatusClient, cb Callbacks) *Poller {
	return &Poller{
		client:   client,
		interval: PollInterval,
		cb:       cb,
	}
}

// NewWithInterval exists for tests; production code uses the fixed interval.
func NewWithInterval(client StatusClient, cb Callbacks, interval time.Duration) *Poller {
	p := New(client, cb)
	p.interval = interval
	return p
}

// Watch starts polling jobID. An empty ID stops any active loop. Watching
// the ID that is already being polled is a no-op, so concurrent duplicate
// starts collapse into one loop.
func (p *Poller) Watch(jobID string) {
	p.mu.Lock()

	if jobID == p.jobID && p.polling {
		p.mu.Unlock()
		return
	}

	// claim supersedes any in-flight loop
	p.gen++
	gen := p.gen
	p.jobID = jobID
	p.snapshot = nil
	p.lastErr = ""

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}

	if jobID == "" {
		p.polling = false
		p.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.polling = true
	p.wg.Add(1)
	p.mu.Unlock()

	go p.loop(ctx, jobID, gen)
}

// Stop cancels any active loop. It does not wait; use Wait for that.
func (p *Poller) Stop() {
	p.Watch("")
}

// Wait blocks until all polling goroutines have exited.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// Polling reports whether a loop is currently active.
func (p *Poller) Polling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polling
}

// Snapshot returns the most recently published status, or nil.
func (p *Poller) Snapshot() *api.JobStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snapshot == nil {
		return nil
	}
	copy := *p.snapshot
	return &copy
}

// LastError returns the failure message of the last failed job, if any.
func (p *Poller) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Poller) loop(ctx context.Context, jobID string, gen uint64) {
	defer p.wg.Done()
	defer func() {
		p.mu.Lock()
		if p.gen == gen {
			p.polling = false
		}
		p.mu.Unlock()
	}()

	for {
		status, err := p.client.JobStatus(ctx, jobID)

		// re-check the claim after every await: a stale loop must not
		// touch state that now belongs to a newer job
		if !p.claimed(gen) || ctx.Err() != nil {
			return
		}

		if err != nil {
			// transient; the next iteration is the retry
			log.Printf("poller: status request for %s failed: %v", jobID, err)
		} else {
			p.mu.Lock()
			if p.gen != gen {
				p.mu.Unlock()
				return
			}
			p.snapshot = status
			p.mu.Unlock()

			if p.cb.OnStatus != nil {
				p.cb.OnStatus(*status)
			}

			// OnStatus may have blocked while Watch moved on to another
			// job; every commit below re-checks the claim atomically
			if status.Failed() {
				msg := status.Error
				if msg == "" {
					msg = DefaultFailureMessage
				}
				if !p.commitTerminal(gen, msg) {
					return
				}
				if p.cb.OnFailed != nil {
					p.cb.OnFailed(msg)
				}
				return
			}

			if status.Complete() {
				result := buildResult(status)
				if !p.commitTerminal(gen, "") {
					return
				}
				if p.cb.OnCompleted != nil {
					p.cb.OnCompleted(result)
				}
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.interval):
		}
	}
}

func (p *Poller) claimed(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen == gen
}

// commitTerminal ends the loop's claim, recording the failure message when
// non-empty. The claim re-check and the state writes happen under one lock;
// a superseded loop gets false back and must not fire callbacks.
func (p *Poller) commitTerminal(gen uint64, failMsg string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		return false
	}
	if failMsg != "" {
		p.lastErr = failMsg
	}
	p.polling = false
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	return true
}

func buildResult(status *api.JobStatus) Result {
	result := Result{
		Transcript:   status.Transcript,
		Segments:     status.Segments,
		Words:        status.Words,
		Matches:      status.Matches,
		Speakers:     status.Speakers,
		SpeakerNames: status.SpeakerNames,
	}
	if best, ok := status.BestMatch(); ok {
		result.BestMatch = &best
	}
	return result
}
