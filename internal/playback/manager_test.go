package playback

import (
	"errors"
	"testing"
)

type fakePlayer struct {
	playing bool
	pos     int
	starts  int
	onDone  func()
	failErr error
}

func (p *fakePlayer) Start(onDone func()) error {
	if p.failErr != nil {
		return p.failErr
	}
	p.playing = true
	p.starts++
	p.onDone = onDone
	return nil
}

func (p *fakePlayer) Stop() {
	p.playing = false
	p.pos = 0
}

func (p *fakePlayer) Playing() bool { return p.playing }

type fakeFactory struct {
	players map[string]*fakePlayer
	fail    map[string]error
	built   map[string]int
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		players: make(map[string]*fakePlayer),
		fail:    make(map[string]error),
		built:   make(map[string]int),
	}
}

func (f *fakeFactory) NewPlayer(clipID, _ string) (Player, error) {
	if err := f.fail[clipID]; err != nil {
		return nil, err
	}
	f.built[clipID]++
	p := &fakePlayer{}
	f.players[clipID] = p
	return p, nil
}

func TestPlaySecondClipStopsAndRewindsFirst(t *testing.T) {
	f := newFakeFactory()
	m := NewManager(f, nil)

	if err := m.Play("a", "u/a.wav"); err != nil {
		t.Fatalf("play a: %v", err)
	}
	f.players["a"].pos = 5

	if err := m.Play("b", "u/b.wav"); err != nil {
		t.Fatalf("play b: %v", err)
	}
	if m.Current() != "b" {
		t.Fatalf("current = %q, want b", m.Current())
	}
	if f.players["a"].playing {
		t.Fatalf("clip a still playing")
	}
	if f.players["a"].pos != 0 {
		t.Fatalf("clip a position = %d, want rewind to 0", f.players["a"].pos)
	}
	if !f.players["b"].playing {
		t.Fatalf("clip b not playing")
	}
}

func TestToggleStopsCurrentClip(t *testing.T) {
	f := newFakeFactory()
	m := NewManager(f, nil)

	if err := m.Toggle("a", "u/a.wav"); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if m.Current() != "a" {
		t.Fatalf("current = %q, want a", m.Current())
	}
	if err := m.Toggle("a", "u/a.wav"); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if m.Current() != "" {
		t.Fatalf("current = %q after toggle off, want empty", m.Current())
	}
	if f.players["a"].playing {
		t.Fatalf("clip a still playing after toggle off")
	}
}

func TestPlayerCachedAcrossPlays(t *testing.T) {
	f := newFakeFactory()
	m := NewManager(f, nil)

	for i := 0; i < 3; i++ {
		if err := m.Toggle("a", "u/a.wav"); err != nil {
			t.Fatalf("toggle on: %v", err)
		}
		if err := m.Toggle("a", "u/a.wav"); err != nil {
			t.Fatalf("toggle off: %v", err)
		}
	}
	if f.built["a"] != 1 {
		t.Fatalf("factory built %d players for one clip, want 1", f.built["a"])
	}
}

func TestPlayAlreadyPlayingClipIsNoOp(t *testing.T) {
	f := newFakeFactory()
	m := NewManager(f, nil)

	if err := m.Play("a", "u/a.wav"); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := m.Play("a", "u/a.wav"); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if f.players["a"].starts != 1 {
		t.Fatalf("starts = %d, want 1", f.players["a"].starts)
	}
}

func TestDecodeFailureReportsUnsupportedAndClearsMarker(t *testing.T) {
	f := newFakeFactory()
	f.fail["bad"] = errors.New("not a riff file")
	m := NewManager(f, nil)

	if err := m.Play("a", "u/a.wav"); err != nil {
		t.Fatalf("play a: %v", err)
	}
	err := m.Play("bad", "u/bad.bin")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	if m.Current() != "" {
		t.Fatalf("current = %q after failure, want empty", m.Current())
	}
	// A later play of a healthy clip still works.
	if err := m.Play("a", "u/a.wav"); err != nil {
		t.Fatalf("play a after failure: %v", err)
	}
}

func TestNaturalFinishClearsMarker(t *testing.T) {
	f := newFakeFactory()
	m := NewManager(f, nil)

	if err := m.Play("a", "u/a.wav"); err != nil {
		t.Fatalf("play: %v", err)
	}
	f.players["a"].onDone()
	if m.Current() != "" {
		t.Fatalf("current = %q after clip finished, want empty", m.Current())
	}
}

func TestStopAll(t *testing.T) {
	f := newFakeFactory()
	m := NewManager(f, nil)

	if err := m.Play("a", "u/a.wav"); err != nil {
		t.Fatalf("play: %v", err)
	}
	m.StopAll()
	if m.Current() != "" || f.players["a"].playing {
		t.Fatalf("playback survived StopAll")
	}
}
