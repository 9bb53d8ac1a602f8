package signaling

import (
	"context"
	"sort"
	"sync"
	"time"
)

// defaultTerminalRetention is how long a terminal session stays listable
// before the memory store drops it.
const defaultTerminalRetention = 5 * time.Minute

// MemoryRepo keeps call sessions in process memory. Used by tests and by
// local mode, where a single API instance is the only coordination point.
// Terminal sessions are evicted after a retention window, mirroring the
// TTL the Redis store applies, so local mode does not accumulate dead
// calls or keep replaying them to pollers.
type MemoryRepo struct {
	mu        sync.Mutex
	sessions  map[string]CallSession
	retention time.Duration
	clock     func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		sessions:  make(map[string]CallSession),
		retention: defaultTerminalRetention,
		clock:     time.Now,
	}
}

// WithRetention overrides how long terminal sessions stay visible.
func (r *MemoryRepo) WithRetention(d time.Duration) *MemoryRepo {
	r.retention = d
	return r
}

// evictLocked drops terminal sessions whose end predates the retention
// window. Callers hold r.mu.
func (r *MemoryRepo) evictLocked() {
	cutoff := r.clock().Add(-r.retention)
	for id, s := range r.sessions {
		if s.Status.IsTerminal() && s.EndedAt != nil && s.EndedAt.Before(cutoff) {
			delete(r.sessions, id)
		}
	}
}

func (r *MemoryRepo) Create(ctx context.Context, s CallSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.CallID] = s
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, callID string) (CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()
	s, ok := r.sessions[callID]
	if !ok {
		return CallSession{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) Transition(ctx context.Context, callID string, to CallStatus, at time.Time) (CallSession, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()

	s, ok := r.sessions[callID]
	if !ok {
		return CallSession{}, false, ErrNotFound
	}
	if !CanTransition(s.Status, to) {
		// Terminal sessions and repeated requests are no-ops, not errors.
		return s, false, nil
	}

	s.Status = to
	if to.IsTerminal() {
		ended := at
		s.EndedAt = &ended
		if d := int(at.Sub(s.StartedAt).Seconds()); d > 0 {
			s.DurationSeconds = d
		}
	}
	r.sessions[callID] = s
	return s, true, nil
}

func (r *MemoryRepo) ListForUser(ctx context.Context, email string) ([]CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()

	var out []CallSession
	for _, s := range r.sessions {
		if s.Involves(email) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}
