// Package stream consumes a job's server-sent event stream and projects it
// into a throttled, render-ready snapshot. Events arrive in bursts (dozens
// per second for long recordings); applying each one individually would
// swamp the consumer, so everything funnels through a coalescing flush.
package stream

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	sse "github.com/r3labs/sse/v2"

	"github.com/tivly/tivly-cli/internal/api"
)

// MinFlushInterval is the floor between two batch applications.
const MinFlushInterval = 100 * time.Millisecond

// Stream event names emitted by the backend.
const (
	EventConnected = "connected"
	EventStatus    = "status"
	EventProgress  = "progress"
	EventChunk     = "chunk"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// rawEvent is one queued stream event awaiting a batched flush.
type rawEvent struct {
	Name string
	Data []byte
}

type statusPayload struct {
	Status   string   `json:"status"`
	Stage    string   `json:"stage"`
	Progress *float64 `json:"progress"`
}

type progressPayload struct {
	Progress *float64 `json:"progress"`
	Stage    string   `json:"stage"`
}

type chunkPayload struct {
	ChunkIndex        int      `json:"chunkIndex"`
	TotalChunks       int      `json:"totalChunks"`
	Transcript        string   `json:"transcript"`
	OrderedTranscript string   `json:"orderedTranscript"`
	Progress          *float64 `json:"progress"`
}

type completedPayload struct {
	Transcript string `json:"transcript"`
}

type failedPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Snapshot is the immutable projection published after each flush.
type Snapshot struct {
	Connected      bool
	LiveTranscript string
	Progress       float64
	Stage          string
	ChunksReceived int
	TotalChunks    int
	Completed      bool
	Failed         bool
	FailureMessage string
}

// Callbacks are invoked from the reconciler's goroutines. OnCompleted and
// OnFailed fire at most once per (job, enabled) session; OnProgress fires at
// most once per flushed batch.
type Callbacks struct {
	OnProgress  func(Snapshot)
	OnCompleted func(transcript string)
	OnFailed    func(payload []byte)
}

// Reconciler maintains at most one SSE connection keyed by (jobID, enabled).
// Changing either key tears the connection down and resets all accumulated
// state before reconnecting.
type Reconciler struct {
	baseURL  string
	token    api.TokenSource
	cb       Callbacks
	interval time.Duration

	mu       sync.Mutex
	jobID    string
	enabled  bool
	gen      uint64
	cancel   context.CancelFunc
	co       *Coalescer[rawEvent]
	snap     Snapshot
	terminal bool

	wg sync.WaitGroup
}

// New creates a reconciler for the given stream root (e.g.
// https://api.tivly.se). token is read fresh on every connection attempt.
func New(baseURL string, token api.TokenSource, cb Callbacks) *Reconciler {
	return &Reconciler{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		cb:       cb,
		interval: MinFlushInterval,
	}
}

// NewWithInterval exists for tests; production code uses MinFlushInterval.
func NewWithInterval(baseURL string, token api.TokenSource, cb Callbacks, interval time.Duration) *Reconciler {
	r := New(baseURL, token, cb)
	r.interval = interval
	return r
}

// SetJob points the reconciler at a job. Repeating the current (jobID,
// enabled) pair is a no-op. An empty ID or enabled=false disconnects.
// Without a stored token no connection is attempted; that is a silent no-op,
// not an error.
func (r *Reconciler) SetJob(jobID string, enabled bool) {
	r.mu.Lock()

	if jobID == r.jobID && enabled == r.enabled {
		r.mu.Unlock()
		return
	}

	r.teardownLocked()
	r.jobID = jobID
	r.enabled = enabled
	r.snap = Snapshot{}
	r.terminal = false
	r.gen++
	gen := r.gen

	if jobID == "" || !enabled {
		r.mu.Unlock()
		return
	}

	token := ""
	if r.token != nil {
		var err error
		token, err = r.token()
		if err != nil {
			log.Printf("stream: token unavailable: %v", err)
		}
	}
	if token == "" {
		log.Printf("stream: no auth token, not connecting")
		r.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.co = NewCoalescer(r.interval, func(batch []rawEvent) {
		r.applyBatch(gen, batch)
	})

	streamURL := r.baseURL + "/jobs/" + url.PathEscape(jobID) + "/stream?token=" + url.QueryEscape(token)
	r.wg.Add(1)
	r.mu.Unlock()

	go r.subscribe(ctx, gen, streamURL)
}

// Close disconnects and resets. Safe to call repeatedly.
func (r *Reconciler) Close() {
	r.mu.Lock()
	r.teardownLocked()
	r.jobID = ""
	r.enabled = false
	r.gen++
	r.mu.Unlock()
	r.wg.Wait()
}

// Snapshot returns the latest published projection.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// teardownLocked cancels the active connection and drops queued events.
func (r *Reconciler) teardownLocked() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.co != nil {
		r.co.Stop()
		r.co = nil
	}
}

func (r *Reconciler) subscribe(ctx context.Context, gen uint64, streamURL string) {
	defer r.wg.Done()

	client := sse.NewClient(streamURL)
	client.OnDisconnect(func(c *sse.Client) {
		// transport hiccup, not an application failure; the client's
		// reconnect strategy takes it from here
		log.Printf("stream: disconnected, awaiting reconnect")
	})

	err := client.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
		r.handleEvent(gen, string(msg.Event), msg.Data)
	})
	if err != nil && ctx.Err() == nil {
		log.Printf("stream: subscription ended: %v", err)
	}
}

// handleEvent runs on the SSE client's goroutine. Ordinary events are
// queued for a coalesced flush; terminal events first force a synchronous
// flush so nothing queued is lost or reordered past them.
func (r *Reconciler) handleEvent(gen uint64, name string, data []byte) {
	r.mu.Lock()
	if r.gen != gen || r.terminal {
		r.mu.Unlock()
		return
	}
	co := r.co
	r.mu.Unlock()

	switch name {
	case EventCompleted:
		if co != nil {
			co.Flush()
		}
		r.applyCompleted(gen, data)
	case EventFailed:
		if co != nil {
			co.Flush()
		}
		r.applyFailed(gen, data)
	default:
		if co != nil {
			co.Enqueue(rawEvent{Name: name, Data: data})
		}
	}
}

// applyBatch folds a drained batch into the snapshot in arrival order
// (last write per field wins), then publishes exactly one snapshot and one
// progress callback for the whole batch.
func (r *Reconciler) applyBatch(gen uint64, batch []rawEvent) {
	r.mu.Lock()
	if r.gen != gen || r.terminal {
		r.mu.Unlock()
		return
	}

	for _, ev := range batch {
		r.applyEventLocked(ev)
	}
	snap := r.snap
	r.mu.Unlock()

	if r.cb.OnProgress != nil {
		r.cb.OnProgress(snap)
	}
}

func (r *Reconciler) applyEventLocked(ev rawEvent) {
	switch ev.Name {
	case EventConnected:
		r.snap.Connected = true

	case EventStatus:
		var p statusPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			log.Printf("stream: malformed status payload: %v", err)
			return
		}
		if p.Stage != "" {
			r.snap.Stage = p.Stage
		}
		if p.Progress != nil {
			r.snap.Progress = *p.Progress
		}

	case EventProgress:
		var p progressPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			log.Printf("stream: malformed progress payload: %v", err)
			return
		}
		if p.Progress != nil {
			r.snap.Progress = *p.Progress
		}
		if p.Stage != "" {
			r.snap.Stage = p.Stage
		}

	case EventChunk:
		var p chunkPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			log.Printf("stream: malformed chunk payload: %v", err)
			return
		}
		r.snap.ChunksReceived++
		if p.TotalChunks > 0 {
			r.snap.TotalChunks = p.TotalChunks
		}
		// the server's ordered concatenation is authoritative; the
		// client never assembles fragments itself
		if p.OrderedTranscript != "" {
			r.snap.LiveTranscript = p.OrderedTranscript
		} else if p.Transcript != "" {
			r.snap.LiveTranscript = p.Transcript
		}
		if p.Progress != nil {
			r.snap.Progress = *p.Progress
		}

	default:
		log.Printf("stream: unknown event %q", ev.Name)
	}
}

func (r *Reconciler) applyCompleted(gen uint64, data []byte) {
	r.mu.Lock()
	if r.gen != gen || r.terminal {
		r.mu.Unlock()
		return
	}
	r.terminal = true

	var p completedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Printf("stream: malformed completed payload: %v", err)
	}
	transcript := p.Transcript
	if transcript == "" {
		transcript = r.snap.LiveTranscript
	}

	r.snap.LiveTranscript = transcript
	r.snap.Progress = 100
	r.snap.Completed = true
	r.teardownLocked()
	r.mu.Unlock()

	if r.cb.OnCompleted != nil {
		r.cb.OnCompleted(transcript)
	}
}

func (r *Reconciler) applyFailed(gen uint64, data []byte) {
	r.mu.Lock()
	if r.gen != gen || r.terminal {
		r.mu.Unlock()
		return
	}
	r.terminal = true

	// a malformed failure payload still fails the job, just with no detail
	payload := data
	var p failedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Printf("stream: malformed failed payload: %v", err)
		payload = nil
		p = failedPayload{}
	}

	msg := p.Message
	if msg == "" {
		msg = p.Error
	}
	if msg == "" {
		msg = "transcription failed"
	}

	r.snap.Failed = true
	r.snap.FailureMessage = msg
	r.teardownLocked()
	r.mu.Unlock()

	if r.cb.OnFailed != nil {
		r.cb.OnFailed(payload)
	}
}
