// Package realtime streams live microphone audio to the transcription
// socket and assembles the partial/final text pushed back by the server.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tivly/tivly-cli/internal/api"
	"github.com/tivly/tivly-cli/internal/audio"
)

// StopGracePeriod bounds how long Stop waits for the server's done
// acknowledgment before force-closing.
const StopGracePeriod = 2 * time.Second

// SubprotocolPrefix carries the bearer token during the websocket
// handshake; the endpoint does not accept custom headers.
const SubprotocolPrefix = "tivly-bearer."

// Server message envelope types.
const (
	msgPartial = "partial"
	msgFinal   = "final"
	msgDone    = "done"
	msgError   = "error"
	msgStop    = "stop"
)

type serverMessage struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Message    string `json:"message,omitempty"`
}

type stopMessage struct {
	Type string `json:"type"`
}

// Callbacks are invoked from the streamer's goroutines.
type Callbacks struct {
	OnTranscript func(full string)
	OnDone       func(final string)
	OnError      func(message string)
}

// Streamer owns one realtime socket session plus the capture pipeline
// feeding it. The session is tied to a single Connect call; there is no
// implicit job-change cancellation, only Stop and Close.
type Streamer struct {
	wsBase      string
	token       api.TokenSource
	captureRate int
	cb          Callbacks

	mu         sync.Mutex
	conn       *websocket.Conn
	connected  bool
	connecting bool
	errMsg     string
	committed  []string
	partial    string
	doneFired  bool
	doneCh     chan string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// capture pipeline, torn down independently of the socket so pause
	// and resume work without reconnecting
	source     audio.Source
	pumpCancel context.CancelFunc
	pumpWG     sync.WaitGroup
}

// New creates a streamer. wsBase is the websocket root (wss://...);
// captureRate is the native sample rate of the frames the sources deliver.
func New(wsBase string, token api.TokenSource, captureRate int, cb Callbacks) *Streamer {
	return &Streamer{
		wsBase:      strings.TrimRight(wsBase, "/"),
		token:       token,
		captureRate: captureRate,
		cb:          cb,
	}
}

// Connect opens the socket for jobID and starts streaming from source.
// Calling Connect while already connected is a no-op.
func (s *Streamer) Connect(ctx context.Context, jobID string, source audio.Source) error {
	s.mu.Lock()
	if s.connected || s.connecting {
		s.mu.Unlock()
		return nil
	}
	s.connecting = true
	s.errMsg = ""
	s.mu.Unlock()

	token := ""
	if s.token != nil {
		var err error
		token, err = s.token()
		if err != nil {
			s.failConnect(fmt.Sprintf("read token: %v", err))
			return fmt.Errorf("read token: %w", err)
		}
	}
	if token == "" {
		s.failConnect("no auth token")
		return fmt.Errorf("no auth token")
	}

	wsURL := s.wsBase + "/realtime?jobId=" + url.QueryEscape(jobID)
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{SubprotocolPrefix + token},
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			log.Printf("realtime: dial failed with status %d", resp.StatusCode)
		}
		s.failConnect(fmt.Sprintf("connect: %v", err))
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.connecting = false
	s.committed = nil
	s.partial = ""
	s.doneFired = false
	s.doneCh = make(chan string, 1)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	s.wg.Add(1)
	go s.readLoop()

	if err := s.attachSource(source); err != nil {
		log.Printf("realtime: capture start failed: %v", err)
		s.forceClose()
		return err
	}

	log.Printf("realtime: connected, job=%s", jobID)
	return nil
}

func (s *Streamer) failConnect(msg string) {
	s.mu.Lock()
	s.connecting = false
	s.errMsg = msg
	s.mu.Unlock()
	if s.cb.OnError != nil {
		s.cb.OnError(msg)
	}
}

// attachSource starts the capture pump feeding the socket. One frame is
// encoded and sent per capture callback; nothing is buffered beyond that,
// which bounds latency to roughly one frame period.
func (s *Streamer) attachSource(source audio.Source) error {
	if source == nil {
		return nil
	}

	pumpCtx, pumpCancel := context.WithCancel(context.Background())

	frames, errs, err := source.Start(pumpCtx)
	if err != nil {
		pumpCancel()
		return fmt.Errorf("start capture: %w", err)
	}

	s.mu.Lock()
	s.source = source
	s.pumpCancel = pumpCancel
	s.mu.Unlock()

	s.pumpWG.Add(1)
	go func() {
		defer s.pumpWG.Done()
		for {
			select {
			case <-pumpCtx.Done():
				return
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				if err != nil {
					log.Printf("realtime: capture error: %v", err)
				}
			case frame, ok := <-frames:
				if !ok {
					return
				}
				pcm := audio.EncodeFrame(frame.Data, s.captureRate)
				if len(pcm) == 0 {
					continue
				}
				if err := s.writeBinary(pcm); err != nil {
					log.Printf("realtime: send frame: %v", err)
					return
				}
			}
		}
	}()

	return nil
}

func (s *Streamer) writeBinary(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("no connection")
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (s *Streamer) readLoop() {
	defer s.wg.Done()

	s.mu.Lock()
	conn := s.conn
	ctx := s.ctx
	s.mu.Unlock()
	if conn == nil {
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}

			// no auto-retry: surface and let the caller reconnect
			log.Printf("realtime: read error: %v", err)
			s.mu.Lock()
			s.errMsg = fmt.Sprintf("connection lost: %v", err)
			s.connected = false
			s.connecting = false
			s.mu.Unlock()
			if s.cb.OnError != nil {
				s.cb.OnError("connection lost")
			}
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("realtime: malformed message: %v", err)
			continue
		}

		switch msg.Type {
		case msgPartial:
			s.mu.Lock()
			s.partial = msg.Text
			s.mu.Unlock()
			s.notifyTranscript()

		case msgFinal:
			s.mu.Lock()
			if msg.Text != "" {
				s.committed = append(s.committed, msg.Text)
			}
			s.partial = ""
			s.mu.Unlock()
			s.notifyTranscript()

		case msgDone:
			final := msg.Transcript
			s.mu.Lock()
			if final == "" {
				final = strings.Join(s.committed, " ")
			}
			fire := !s.doneFired
			s.doneFired = true
			doneCh := s.doneCh
			s.mu.Unlock()

			if doneCh != nil {
				select {
				case doneCh <- final:
				default:
				}
			}
			if fire && s.cb.OnDone != nil {
				s.cb.OnDone(final)
			}

		case msgError:
			// server-reported error does not close the socket
			log.Printf("realtime: server error: %s", msg.Message)
			s.mu.Lock()
			s.errMsg = msg.Message
			s.mu.Unlock()
			if s.cb.OnError != nil {
				s.cb.OnError(msg.Message)
			}

		default:
			log.Printf("realtime: unknown message type %q", msg.Type)
		}
	}
}

func (s *Streamer) notifyTranscript() {
	if s.cb.OnTranscript != nil {
		s.cb.OnTranscript(s.Transcript())
	}
}

// Transcript returns the committed text plus a trailing space-joined
// partial. It is recomputed on every call and never stored pre-joined.
func (s *Streamer) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	full := strings.Join(s.committed, " ")
	if s.partial != "" {
		if full != "" {
			full += " "
		}
		full += s.partial
	}
	return full
}

// Stop ends the session gracefully: it sends a stop control message, waits
// up to StopGracePeriod for the server's done acknowledgment, then
// force-closes and tears down capture regardless. Safe to call repeatedly
// and when never connected.
func (s *Streamer) Stop() error {
	s.mu.Lock()
	conn := s.conn
	doneCh := s.doneCh
	s.mu.Unlock()

	if conn != nil {
		if err := s.writeJSON(stopMessage{Type: msgStop}); err != nil {
			log.Printf("realtime: stop write: %v", err)
		} else if doneCh != nil {
			select {
			case <-doneCh:
				log.Printf("realtime: done acknowledged")
			case <-time.After(StopGracePeriod):
				log.Printf("realtime: stop grace period elapsed, closing")
			}
		}
	}

	s.forceClose()
	return nil
}

func (s *Streamer) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("no connection")
	}
	return s.conn.WriteJSON(v)
}

// Pause tears down only the capture pipeline; the socket stays open so
// Resume does not need to reconnect.
func (s *Streamer) Pause() {
	s.mu.Lock()
	source := s.source
	pumpCancel := s.pumpCancel
	s.source = nil
	s.pumpCancel = nil
	s.mu.Unlock()

	if pumpCancel != nil {
		pumpCancel()
	}
	if source != nil {
		_ = source.Stop()
	}
	s.pumpWG.Wait()
}

// Resume attaches a fresh capture source to the open socket.
func (s *Streamer) Resume(source audio.Source) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return fmt.Errorf("not connected")
	}
	if s.source != nil {
		s.mu.Unlock()
		return fmt.Errorf("capture already active")
	}
	s.mu.Unlock()

	return s.attachSource(source)
}

// Close force-closes the socket and capture without the stop handshake.
// Idempotent.
func (s *Streamer) Close() {
	s.forceClose()
}

func (s *Streamer) forceClose() {
	s.Pause()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.connecting = false
	s.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}

	s.wg.Wait()
}

// Connected reports whether the socket is up.
func (s *Streamer) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Connecting reports whether a dial is in flight.
func (s *Streamer) Connecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connecting
}

// Err returns the last error message, if any.
func (s *Streamer) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}
