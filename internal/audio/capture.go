package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Frame is one capture buffer worth of raw audio bytes in the capture
// format (see CaptureConfig.Format).
type Frame struct {
	Data      []byte
	Timestamp time.Time
}

type CaptureConfig struct {
	SampleRate        int
	Channels          int
	Format            string
	BufferSize        int
	Device            string
	ChannelBufferSize int
}

func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:        48000,
		Channels:          1,
		Format:            "f32le",
		BufferSize:        16384,
		Device:            "",
		ChannelBufferSize: 20,
	}
}

// Source delivers live audio frames until stopped. The realtime streamer
// consumes one Source per capture session; pause/resume swaps Sources while
// the socket stays up.
type Source interface {
	Start(ctx context.Context) (<-chan Frame, <-chan error, error)
	Stop() error
}

// Recorder captures microphone audio through pw-record. It implements
// Source.
type Recorder struct {
	config    CaptureConfig
	capturing atomic.Bool

	mu     sync.Mutex // guards cmd and cancel
	cmd    *exec.Cmd
	cancel context.CancelFunc

	wg sync.WaitGroup
}

func NewRecorder(config CaptureConfig) *Recorder {
	return &Recorder{config: config}
}

func (r *Recorder) IsCapturing() bool {
	return r.capturing.Load()
}

func (r *Recorder) Start(ctx context.Context) (<-chan Frame, <-chan error, error) {
	if r.capturing.Load() {
		return nil, nil, fmt.Errorf("already capturing")
	}

	if err := r.validateConfig(); err != nil {
		return nil, nil, err
	}

	if err := CheckPipeWireAvailable(ctx); err != nil {
		return nil, nil, fmt.Errorf("PipeWire not available: %w", err)
	}

	captureCtx, cancel := context.WithCancel(ctx)

	frameCh := make(chan Frame, r.config.ChannelBufferSize)
	errCh := make(chan error, 1)

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	r.capturing.Store(true)
	r.wg.Add(1)
	go r.captureLoop(captureCtx, frameCh, errCh)

	return frameCh, errCh, nil
}

// Stop requests capture shutdown. Safe to call multiple times and before
// Start.
func (r *Recorder) Stop() error {
	if !r.capturing.Load() {
		return nil
	}

	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// Wait blocks until the capture loop has fully exited.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) captureLoop(ctx context.Context, frameCh chan<- Frame, errCh chan<- error) {
	defer func() {
		close(frameCh)
		close(errCh)
		r.capturing.Store(false)

		// Reap any child process.
		r.mu.Lock()
		if r.cmd != nil {
			_ = r.cmd.Wait()
			r.cmd = nil
		}
		r.cancel = nil
		r.mu.Unlock()

		r.wg.Done()
	}()

	stdout, err := r.startPwRecord(ctx)
	if err != nil {
		r.emitErr(errCh, err)
		r.requestCancel()
		return
	}

	// ReadFull delivers fixed BufferSize frames, which is what the
	// realtime encoder wants; the short final read at stream end is
	// still delivered before returning.
	buf := make([]byte, r.config.BufferSize)
	drops := 0
	dropWindow := time.Now()

	for ctx.Err() == nil {
		n, readErr := io.ReadFull(stdout, buf)
		if n > 0 {
			frame := Frame{Data: append([]byte(nil), buf[:n]...), Timestamp: time.Now()}
			select {
			case frameCh <- frame:
			case <-ctx.Done():
				return
			default:
				// receiver too slow: drop rather than stall the pipe
				drops++
				if time.Since(dropWindow) >= time.Second {
					log.Printf("audio: receiver too slow, dropped %d frames in the last second", drops)
					drops = 0
					dropWindow = time.Now()
				}
			}
		}

		switch {
		case readErr == nil:
		case errors.Is(readErr, io.EOF), errors.Is(readErr, io.ErrUnexpectedEOF):
			return
		default:
			r.emitErr(errCh, fmt.Errorf("read audio: %w", readErr))
			r.requestCancel()
			return
		}
	}
}

// startPwRecord spawns pw-record writing raw samples to its stdout and
// forwards its stderr to the log.
func (r *Recorder) startPwRecord(ctx context.Context) (io.Reader, error) {
	cmd := exec.CommandContext(ctx, "pw-record", r.buildPwRecordArgs()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	r.mu.Lock()
	r.cmd = cmd
	r.mu.Unlock()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start pw-record: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Printf("audio: pw-record: %s", scanner.Text())
		}
	}()

	return stdout, nil
}

func (r *Recorder) requestCancel() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Recorder) emitErr(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
		// Best-effort; avoid blocking
	}
	log.Printf("audio: capture error: %v", err)
}

func (r *Recorder) buildPwRecordArgs() []string {
	args := []string{
		"--format", r.config.Format,
		"--rate", strconv.Itoa(r.config.SampleRate),
		"--channels", strconv.Itoa(r.config.Channels),
		"-", // stdout
	}
	if r.config.Device != "" {
		args = append(args, "--target", r.config.Device)
	}
	return args
}

func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := exec.CommandContext(checkCtx, "pw-cli", "info").Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}

func (r *Recorder) validateConfig() error {
	if r.config.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", r.config.SampleRate)
	}
	if r.config.Channels <= 0 {
		return fmt.Errorf("invalid Channels: %d", r.config.Channels)
	}
	if r.config.BufferSize <= 0 {
		return fmt.Errorf("invalid BufferSize: %d", r.config.BufferSize)
	}
	if r.config.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid ChannelBufferSize: %d", r.config.ChannelBufferSize)
	}
	if r.config.Format == "" {
		return fmt.Errorf("invalid Format: empty")
	}
	// f32le frames are 4 bytes per sample per channel
	if r.config.Format == "f32le" {
		frameBytes := 4 * r.config.Channels
		if r.config.BufferSize%frameBytes != 0 {
			log.Printf("audio: BufferSize %d not aligned to sample size %d; frames may split samples",
				r.config.BufferSize, frameBytes)
		}
	}
	return nil
}
