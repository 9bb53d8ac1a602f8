// Package playback serializes voice clip playback: across every clip in the
// ticket thread, at most one is audible at any instant.
package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrUnsupported means a clip could not be decoded or started.
var ErrUnsupported = errors.New("playback: clip format not supported")

// Player is one clip's reusable playback handle.
type Player interface {
	// Start begins playing from the current position and invokes onDone
	// once when the clip finishes naturally. onDone must be called from
	// the player's own goroutine, never from within Start.
	Start(onDone func()) error
	// Stop halts playback and rewinds the position to zero. Safe while
	// not playing.
	Stop()
	Playing() bool
}

// Factory builds a handle for a clip the first time it is played.
type Factory interface {
	NewPlayer(clipID, url string) (Player, error)
}

// Manager caches one Player per clip identity and enforces the
// single-playing-clip rule.
type Manager struct {
	factory Factory
	log     *slog.Logger

	mu      sync.Mutex
	players map[string]Player
	current string
}

func NewManager(factory Factory, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{factory: factory, log: log, players: make(map[string]Player)}
}

// Play starts the clip, first stopping and rewinding whichever clip is
// currently playing. Playing an already-playing clip is a no-op.
func (m *Manager) Play(clipID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playLocked(clipID, url)
}

// Toggle stops the clip if it is the one playing, otherwise plays it.
func (m *Manager) Toggle(clipID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == clipID {
		if p, ok := m.players[clipID]; ok {
			p.Stop()
		}
		m.current = ""
		return nil
	}
	return m.playLocked(clipID, url)
}

func (m *Manager) playLocked(clipID, url string) error {
	if m.current == clipID {
		return nil
	}
	if m.current != "" {
		if prev, ok := m.players[m.current]; ok {
			prev.Stop()
		}
		m.current = ""
	}

	p, ok := m.players[clipID]
	if !ok {
		var err error
		p, err = m.factory.NewPlayer(clipID, url)
		if err != nil {
			m.log.Warn("clip rejected", "clip_id", clipID, "error", err)
			return fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		m.players[clipID] = p
	}

	if err := p.Start(func() { m.finished(clipID) }); err != nil {
		m.log.Warn("clip start failed", "clip_id", clipID, "error", err)
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	m.current = clipID
	return nil
}

func (m *Manager) finished(clipID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == clipID {
		m.current = ""
	}
}

// Current returns the id of the clip playing now, or empty.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// StopAll halts playback, for teardown paths.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		p.Stop()
	}
	m.current = ""
}
