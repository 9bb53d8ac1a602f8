// Package ringtone synthesizes the outgoing-call ring cue. The pulse is
// generated in memory; no audio asset ships with the binary.
package ringtone

import (
	"encoding/binary"
	"log/slog"
	"math"
	"sync"
	"time"

	"helpdesk-live/pkg/audio"
)

// Sink is where pulses go. audio.Sink satisfies it.
type Sink interface {
	Format() audio.Format
	Write(pcm []byte) (int, error)
}

// Options tune the synthesized pulse. Zero values pick the defaults below.
type Options struct {
	Interval   time.Duration // gap between pulses
	ToneLowHz  float64
	ToneHighHz float64
	PulseLen   time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 2 * time.Second
	}
	if o.ToneLowHz <= 0 {
		o.ToneLowHz = 440
	}
	if o.ToneHighHz <= 0 {
		o.ToneHighHz = 480
	}
	if o.PulseLen <= 0 {
		o.PulseLen = 900 * time.Millisecond
	}
	return o
}

// Synthesizer emits a dual-tone pulse immediately on Start and then once per
// interval until Stop. A nil sink (the audio backend failed to come up)
// degrades to silence; ringing must never block call progress.
type Synthesizer struct {
	sink Sink
	log  *slog.Logger
	opts Options

	pulse []byte

	mu     sync.Mutex
	stopCh chan struct{}
}

func New(sink Sink, log *slog.Logger, opts Options) *Synthesizer {
	if log == nil {
		log = slog.Default()
	}
	opts = opts.withDefaults()

	s := &Synthesizer{sink: sink, log: log, opts: opts}
	if sink == nil {
		log.Warn("ringtone: no audio sink, ringing silently")
		return s
	}
	s.pulse = dualTonePulse(sink.Format(), opts)
	return s
}

// Start emits one pulse now and schedules repeats. No-op while already
// ringing or when no sink is available.
func (s *Synthesizer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil || s.stopCh != nil {
		return
	}
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	go s.ring(stopCh)
}

func (s *Synthesizer) ring(stopCh chan struct{}) {
	s.emit()
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.emit()
		}
	}
}

func (s *Synthesizer) emit() {
	if _, err := s.sink.Write(s.pulse); err != nil {
		s.log.Warn("ringtone: pulse write failed", "error", err)
	}
}

// Stop cancels the schedule. A pulse already handed to the sink plays out.
// Safe to call when not ringing.
func (s *Synthesizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	s.stopCh = nil
}

func (s *Synthesizer) Ringing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCh != nil
}

// dualTonePulse renders both frequencies summed under an exponential decay
// envelope as S16LE PCM in the sink's format.
func dualTonePulse(f audio.Format, opts Options) []byte {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		f = audio.DefaultFormat
	}
	frames := int(float64(f.SampleRate) * opts.PulseLen.Seconds())
	out := make([]byte, 0, frames*f.Channels*2)

	const amplitude = 0.35 * math.MaxInt16
	for i := 0; i < frames; i++ {
		t := float64(i) / float64(f.SampleRate)
		envelope := math.Exp(-3 * t / opts.PulseLen.Seconds())
		v := envelope * amplitude * (math.Sin(2*math.Pi*opts.ToneLowHz*t) + math.Sin(2*math.Pi*opts.ToneHighHz*t)) / 2
		sample := int16(v)
		for ch := 0; ch < f.Channels; ch++ {
			out = binary.LittleEndian.AppendUint16(out, uint16(sample))
		}
	}
	return out
}
