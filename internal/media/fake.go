package media

import (
	"context"
	"fmt"
	"sync"
)

// FakeBackend is an in-memory Backend for tests and headless local mode.
// It hands out FakeTracks and can be told to fail with a given error kind.
type FakeBackend struct {
	mu sync.Mutex

	// FailKind, when non-empty, makes Open fail with that kind.
	FailKind ErrorKind
	// FailOnce limits the failure to the first Open call; used to exercise
	// the minimal-constraints fallback.
	FailOnce bool

	openCalls int
	tracks    []*FakeTrack
	nextID    int
}

func (b *FakeBackend) Open(ctx context.Context, c Constraints) ([]Track, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.openCalls++
	if b.FailKind != "" {
		kind := b.FailKind
		if b.FailOnce {
			b.FailKind = ""
		}
		return nil, &AcquireError{Kind: kind, Device: c.deviceLabel(), Err: fmt.Errorf("fake backend failure")}
	}

	var out []Track
	add := func(kind TrackKind) {
		b.nextID++
		t := &FakeTrack{id: fmt.Sprintf("fake-%d", b.nextID), kind: kind, enabled: true}
		b.tracks = append(b.tracks, t)
		out = append(out, t)
	}
	if c.Video {
		add(TrackKindVideo)
	}
	if c.Audio {
		add(TrackKindAudio)
	}
	return out, nil
}

// OpenCalls returns how many times Open ran.
func (b *FakeBackend) OpenCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openCalls
}

// LiveTracks counts tracks that were handed out and not yet stopped.
func (b *FakeBackend) LiveTracks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, t := range b.tracks {
		if !t.Stopped() {
			n++
		}
	}
	return n
}

// FakeTrack is a Track with no hardware behind it.
type FakeTrack struct {
	id   string
	kind TrackKind

	mu      sync.Mutex
	enabled bool
	stopped bool
}

func (t *FakeTrack) ID() string      { return t.id }
func (t *FakeTrack) Kind() TrackKind { return t.kind }

func (t *FakeTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

func (t *FakeTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && !t.stopped
}

func (t *FakeTrack) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	return nil
}

func (t *FakeTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
