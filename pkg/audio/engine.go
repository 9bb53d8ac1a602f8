// Package audio wraps the platform audio device layer (miniaudio via malgo)
// behind small capture/playback interfaces so the call subsystem can be
// tested without hardware.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// Format describes interleaved signed 16-bit little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// BytesPerSecond returns the raw data rate for this format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * 2
}

// DefaultFormat is what the subsystem uses when callers do not care:
// voice-grade mono at 48 kHz.
var DefaultFormat = Format{SampleRate: 48000, Channels: 1}

// Sink accepts PCM for playback. Write enqueues without blocking on the
// device; the device callback drains the queue and zero-fills underruns.
type Sink interface {
	Format() Format
	Write(pcm []byte) (int, error)
	Close() error
}

// CaptureStream delivers timed PCM fragments from the microphone until Close.
type CaptureStream interface {
	Format() Format
	Fragments() <-chan []byte
	Close() error
}

// Engine owns one malgo context. Construction fails where no audio backend
// exists (headless CI, containers); callers degrade rather than abort.
type Engine struct {
	ctx *malgo.AllocatedContext
	log *slog.Logger

	mu     sync.Mutex
	closed bool
}

func NewEngine(log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		log.Debug("audio backend", "msg", msg)
	})
	if err != nil {
		return nil, fmt.Errorf("audio: context init failed: %w", err)
	}
	return &Engine{ctx: mctx, log: log}, nil
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	_ = e.ctx.Uninit()
	e.ctx.Free()
}

// OpenSink starts a playback device for the given format.
func (e *Engine) OpenSink(f Format) (Sink, error) {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		f = DefaultFormat
	}

	s := &deviceSink{format: f}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = uint32(f.Channels)
	cfg.SampleRate = uint32(f.SampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, _ uint32) {
			s.fill(output)
		},
	}

	dev, err := malgo.InitDevice(e.ctx.Context, cfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("audio: playback device init failed: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("audio: playback device start failed: %w", err)
	}
	s.dev = dev
	return s, nil
}

// OpenCapture starts a capture device that emits one fragment per interval.
func (e *Engine) OpenCapture(f Format, fragment time.Duration) (CaptureStream, error) {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		f = DefaultFormat
	}
	if fragment <= 0 {
		fragment = 100 * time.Millisecond
	}

	fragmentBytes := f.BytesPerSecond() * int(fragment.Milliseconds()) / 1000
	if fragmentBytes <= 0 {
		return nil, errors.New("audio: fragment interval too small")
	}

	c := &deviceCapture{
		format:        f,
		fragmentBytes: fragmentBytes,
		out:           make(chan []byte, 64),
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = uint32(f.Channels)
	cfg.SampleRate = uint32(f.SampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			c.push(input)
		},
	}

	dev, err := malgo.InitDevice(e.ctx.Context, cfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("audio: capture device init failed: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("audio: capture device start failed: %w", err)
	}
	c.dev = dev
	return c, nil
}

// deviceSink drains an in-memory queue into the playback device.
type deviceSink struct {
	format Format
	dev    *malgo.Device

	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (s *deviceSink) Format() Format { return s.format }

func (s *deviceSink) Write(pcm []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errors.New("audio: sink closed")
	}
	return s.buf.Write(pcm)
}

func (s *deviceSink) fill(output []byte) {
	s.mu.Lock()
	n, _ := s.buf.Read(output)
	s.mu.Unlock()
	// Zero-fill underruns so gaps play as silence instead of noise.
	for i := n; i < len(output); i++ {
		output[i] = 0
	}
}

func (s *deviceSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.dev != nil {
		_ = s.dev.Stop()
		s.dev.Uninit()
	}
	return nil
}

// deviceCapture slices the incoming device buffer into fixed fragments.
type deviceCapture struct {
	format        Format
	fragmentBytes int
	dev           *malgo.Device

	mu      sync.Mutex
	pending bytes.Buffer
	closed  bool

	out chan []byte
}

func (c *deviceCapture) Format() Format           { return c.format }
func (c *deviceCapture) Fragments() <-chan []byte { return c.out }

func (c *deviceCapture) push(input []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.pending.Write(input)
	for c.pending.Len() >= c.fragmentBytes {
		frag := make([]byte, c.fragmentBytes)
		_, _ = c.pending.Read(frag)
		select {
		case c.out <- frag:
		default:
			// Consumer stalled; drop the oldest fragment to keep latency bounded.
			select {
			case <-c.out:
			default:
			}
			select {
			case c.out <- frag:
			default:
			}
		}
	}
}

func (c *deviceCapture) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.dev != nil {
		_ = c.dev.Stop()
		c.dev.Uninit()
	}
	close(c.out)
	return nil
}
