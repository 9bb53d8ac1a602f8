// Package recorder captures a live microphone stream into an in-memory
// WAV artifact for voice notes.
package recorder

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/youpy/go-wav"

	"helpdesk-live/pkg/audio"
)

var (
	// ErrUnavailable means the capture format cannot be encoded.
	ErrUnavailable = errors.New("recorder: audio format not supported")

	// ErrAlreadyRecording is returned by Start while a session is active.
	ErrAlreadyRecording = errors.New("recorder: already recording")

	// ErrNotRecording is returned by Stop when no session is active.
	ErrNotRecording = errors.New("recorder: not recording")
)

const bitsPerSample = 16

// Source delivers timed PCM fragments from an acquired microphone.
// audio.CaptureStream satisfies it.
type Source interface {
	Format() audio.Format
	Fragments() <-chan []byte
}

// Artifact is one finished recording: immutable WAV bytes plus the elapsed
// duration the user saw while recording.
type Artifact struct {
	ID              string
	WAV             []byte
	DurationSeconds int
	Format          audio.Format
}

// Options tune a Recorder. Ticks overrides the 1-second elapsed timer so
// tests can drive time by hand; leave nil in production.
type Options struct {
	Ticks <-chan time.Time
}

// Recorder accumulates fragments from one Source at a time.
type Recorder struct {
	log   *slog.Logger
	ticks <-chan time.Time

	mu        sync.Mutex
	recording bool
	chunks    [][]byte
	elapsed   int
	format    audio.Format

	stopOnce *sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func New(log *slog.Logger, opts Options) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{log: log, ticks: opts.Ticks}
}

// Start begins collecting fragments and counting elapsed seconds.
func (r *Recorder) Start(src Source) error {
	f := src.Format()
	if f.SampleRate <= 0 || f.Channels < 1 || f.Channels > 2 {
		return fmt.Errorf("%w: %d Hz, %d channels", ErrUnavailable, f.SampleRate, f.Channels)
	}

	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.recording = true
	r.chunks = nil
	r.elapsed = 0
	r.format = f
	r.stopOnce = new(sync.Once)
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	go r.run(src, stopCh, doneCh)
	r.log.Debug("recording started", "sample_rate", f.SampleRate, "channels", f.Channels)
	return nil
}

func (r *Recorder) run(src Source, stopCh chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	ticks := r.ticks
	if ticks == nil {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-stopCh:
			// Flush whatever the source already produced.
			for {
				select {
				case frag, ok := <-src.Fragments():
					if !ok {
						return
					}
					r.append(frag)
				default:
					return
				}
			}
		case frag, ok := <-src.Fragments():
			if !ok {
				return
			}
			r.append(frag)
		case <-ticks:
			r.mu.Lock()
			r.elapsed++
			r.mu.Unlock()
		}
	}
}

func (r *Recorder) append(frag []byte) {
	c := make([]byte, len(frag))
	copy(c, frag)
	r.mu.Lock()
	r.chunks = append(r.chunks, c)
	r.mu.Unlock()
}

// Stop finalizes the session into one artifact. A recording with no
// fragments still yields an artifact, with empty audio data.
func (r *Recorder) Stop() (*Artifact, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	stopOnce, stopCh, doneCh := r.stopOnce, r.stopCh, r.doneCh
	r.mu.Unlock()

	stopOnce.Do(func() { close(stopCh) })
	<-doneCh

	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false

	data := bytes.Join(r.chunks, nil)
	wavBytes, err := encodeWAV(data, r.format)
	if err != nil {
		return nil, err
	}

	art := &Artifact{
		ID:              uuid.NewString(),
		WAV:             wavBytes,
		DurationSeconds: r.elapsed,
		Format:          r.format,
	}
	r.chunks = nil
	r.log.Info("recording finished", "artifact_id", art.ID, "duration_s", art.DurationSeconds, "bytes", len(art.WAV))
	return art, nil
}

// Cancel discards the session without producing an artifact. Safe to call
// when nothing is recording.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	stopOnce, stopCh, doneCh := r.stopOnce, r.stopCh, r.doneCh
	r.mu.Unlock()

	stopOnce.Do(func() { close(stopCh) })
	<-doneCh

	r.mu.Lock()
	r.recording = false
	r.chunks = nil
	r.elapsed = 0
	r.mu.Unlock()
	r.log.Debug("recording cancelled")
}

// Elapsed reports whole seconds since Start, as shown to the user.
func (r *Recorder) Elapsed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsed
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

func encodeWAV(pcm []byte, f audio.Format) ([]byte, error) {
	bytesPerFrame := f.Channels * bitsPerSample / 8
	numSamples := uint32(0)
	if bytesPerFrame > 0 {
		numSamples = uint32(len(pcm) / bytesPerFrame)
	}

	var buf bytes.Buffer
	w := wav.NewWriter(&buf, numSamples, uint16(f.Channels), uint32(f.SampleRate), bitsPerSample)
	if _, err := w.Write(pcm); err != nil {
		return nil, fmt.Errorf("recorder: wav encode failed: %w", err)
	}
	return buf.Bytes(), nil
}
