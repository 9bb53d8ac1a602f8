package media

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Purpose is the logical slot an acquisition occupies. At most one live
// acquisition exists per purpose; acquiring again for the same purpose
// releases the prior handle first.
type Purpose string

const (
	PurposeCall       Purpose = "call"
	PurposeCameraTest Purpose = "camera_test"
	PurposeMicTest    Purpose = "microphone_test"
)

// Manager is the sole owner of camera/microphone acquisition policy.
// Every feature that needs hardware goes through Acquire/Release here, which
// is what makes the no-concurrent-conflicting-acquisitions guarantee hold.
type Manager struct {
	backend Backend
	log     *slog.Logger

	mu    sync.Mutex
	held  map[Purpose]*Acquisition
	slots map[Purpose]*sync.Mutex
}

func NewManager(backend Backend, log *slog.Logger) (*Manager, error) {
	if backend == nil {
		return nil, errors.New("media: backend is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		backend: backend,
		log:     log,
		held:    make(map[Purpose]*Acquisition),
		slots:   make(map[Purpose]*sync.Mutex),
	}, nil
}

// Acquire opens the requested device slots with the ideal constraint set,
// retrying once with the minimal set on a constraint-class failure. On
// success the returned Acquisition occupies the purpose slot until released.
func (m *Manager) Acquire(ctx context.Context, purpose Purpose, c Constraints) (*Acquisition, error) {
	if !c.Video && !c.Audio {
		return nil, &AcquireError{Kind: KindConstraintsUnsatisfiable, Device: "none", Err: errors.New("no device slot requested")}
	}

	// One Acquire per purpose runs at a time. A concurrent call for the
	// same slot waits here and then sees this call's handle as its prior,
	// so two acquisitions for one purpose can never both stay live.
	slot := m.slot(purpose)
	slot.Lock()
	defer slot.Unlock()

	// Same-purpose exclusivity: drop the prior handle before touching
	// hardware again so the two acquisitions never overlap.
	m.mu.Lock()
	prior := m.held[purpose]
	m.mu.Unlock()
	if prior != nil {
		m.log.Debug("releasing prior acquisition", "purpose", string(purpose))
		prior.Release()
	}

	tracks, err := m.open(ctx, c)
	if err != nil {
		m.log.Warn("device acquisition failed",
			"purpose", string(purpose),
			"device", c.deviceLabel(),
			"kind", string(KindOf(err)),
			"err", err,
		)
		return nil, err
	}

	acq := &Acquisition{purpose: purpose, tracks: tracks}
	acq.onRelease = func() { m.clear(purpose, acq) }

	m.mu.Lock()
	m.held[purpose] = acq
	m.mu.Unlock()

	m.log.Info("devices acquired", "purpose", string(purpose), "device", c.deviceLabel(), "tracks", len(tracks))
	return acq, nil
}

// Release releases the acquisition currently holding the purpose slot.
// No-op when nothing is held.
func (m *Manager) Release(purpose Purpose) {
	m.mu.Lock()
	acq := m.held[purpose]
	m.mu.Unlock()
	if acq != nil {
		acq.Release()
	}
}

// ReleaseAll releases every held acquisition. Called on teardown.
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	var all []*Acquisition
	for _, acq := range m.held {
		all = append(all, acq)
	}
	m.mu.Unlock()
	for _, acq := range all {
		acq.Release()
	}
}

// Held returns the live acquisition for a purpose, or nil.
func (m *Manager) Held(purpose Purpose) *Acquisition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[purpose]
}

func (m *Manager) open(ctx context.Context, c Constraints) ([]Track, error) {
	tracks, err := m.backend.Open(ctx, c)
	if err == nil {
		return tracks, nil
	}

	kind := KindOf(err)
	if !retryWithMinimal(kind) {
		return nil, m.asAcquireError(err, c)
	}

	m.log.Debug("retrying acquisition with minimal constraints", "device", c.deviceLabel())
	tracks, retryErr := m.backend.Open(ctx, c.Minimal())
	if retryErr != nil {
		// Surface the retry failure; the ideal-set failure is context.
		return nil, m.asAcquireError(retryErr, c)
	}
	return tracks, nil
}

func (m *Manager) asAcquireError(err error, c Constraints) error {
	var ae *AcquireError
	if errors.As(err, &ae) {
		return err
	}
	return &AcquireError{Kind: KindUnsupported, Device: c.deviceLabel(), Err: err}
}

// slot returns the mutex serializing acquisitions for one purpose.
func (m *Manager) slot(purpose Purpose) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.slots[purpose]
	if !ok {
		l = &sync.Mutex{}
		m.slots[purpose] = l
	}
	return l
}

// clear removes acq from the purpose slot if it is still the occupant.
func (m *Manager) clear(purpose Purpose, acq *Acquisition) {
	m.mu.Lock()
	if m.held[purpose] == acq {
		delete(m.held, purpose)
	}
	m.mu.Unlock()
}
