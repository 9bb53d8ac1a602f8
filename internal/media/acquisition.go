package media

import (
	"context"
	"sync"
)

// TrackKind distinguishes the two logical device slots.
type TrackKind string

const (
	TrackKindVideo TrackKind = "video"
	TrackKindAudio TrackKind = "audio"
)

// Track is one live capture-device handle supplied by a Backend.
// SetEnabled flips whether the track produces data without re-acquiring the
// underlying device; Stop releases the hardware and is terminal.
type Track interface {
	ID() string
	Kind() TrackKind
	SetEnabled(enabled bool)
	Enabled() bool
	Stop() error
}

// Constraints describes what to acquire and with which preferences.
// The zero preference values mean "backend default".
type Constraints struct {
	Video bool
	Audio bool

	// Video preferences.
	Width     int
	Height    int
	FrameRate float64

	// Audio preferences.
	SampleRate   int
	ChannelCount int
}

// Minimal strips every quality preference but keeps the requested device
// slots. Used for the one fallback retry after a constraint failure.
func (c Constraints) Minimal() Constraints {
	return Constraints{Video: c.Video, Audio: c.Audio}
}

func (c Constraints) deviceLabel() string {
	switch {
	case c.Video && c.Audio:
		return "camera+microphone"
	case c.Video:
		return "camera"
	default:
		return "microphone"
	}
}

// Backend is the platform capability that opens capture devices.
// Implementations must return every successfully opened track or none;
// a partial failure must close what it opened before returning.
type Backend interface {
	Open(ctx context.Context, c Constraints) ([]Track, error)
}

// Acquisition is a scoped handle over the tracks of one acquire call.
// It is owned exclusively by the feature that requested it and must be
// released on every exit path. Release is idempotent; error paths and
// teardown may call it again freely.
type Acquisition struct {
	purpose Purpose

	mu       sync.Mutex
	tracks   []Track
	released bool

	// onRelease detaches this acquisition from the manager's purpose slot.
	onRelease func()
}

// Release stops every track exactly once. Safe to call multiple times.
func (a *Acquisition) Release() {
	a.mu.Lock()
	if a.released {
		a.mu.Unlock()
		return
	}
	a.released = true
	tracks := a.tracks
	a.tracks = nil
	onRelease := a.onRelease
	a.mu.Unlock()

	for _, t := range tracks {
		_ = t.Stop()
	}
	if onRelease != nil {
		onRelease()
	}
}

// Released reports whether the handle has been released.
func (a *Acquisition) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}

// Purpose returns the slot this acquisition occupies.
func (a *Acquisition) Purpose() Purpose { return a.purpose }

// SetVideoEnabled flips the camera track. Returns false when no video track
// is held (reported, not fatal).
func (a *Acquisition) SetVideoEnabled(on bool) bool {
	return a.setEnabled(TrackKindVideo, on)
}

// SetAudioEnabled flips the microphone track. Returns false when no audio
// track is held.
func (a *Acquisition) SetAudioEnabled(on bool) bool {
	return a.setEnabled(TrackKindAudio, on)
}

// VideoEnabled reports the camera track state; false when absent.
func (a *Acquisition) VideoEnabled() bool { return a.enabled(TrackKindVideo) }

// AudioEnabled reports the microphone track state; false when absent.
func (a *Acquisition) AudioEnabled() bool { return a.enabled(TrackKindAudio) }

// AudioTrack returns the microphone track, or nil. Used to feed the recorder.
func (a *Acquisition) AudioTrack() Track { return a.track(TrackKindAudio) }

// VideoTrack returns the camera track, or nil.
func (a *Acquisition) VideoTrack() Track { return a.track(TrackKindVideo) }

func (a *Acquisition) setEnabled(kind TrackKind, on bool) bool {
	t := a.track(kind)
	if t == nil {
		return false
	}
	t.SetEnabled(on)
	return true
}

func (a *Acquisition) enabled(kind TrackKind) bool {
	t := a.track(kind)
	return t != nil && t.Enabled()
}

func (a *Acquisition) track(kind TrackKind) Track {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range a.tracks {
		if t.Kind() == kind {
			return t
		}
	}
	return nil
}
