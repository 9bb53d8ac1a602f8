package history

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo keeps archived calls in process memory, for tests and local
// development without Postgres.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]CallRecord
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]CallRecord)}
}

func (r *MemoryRepo) Insert(_ context.Context, rec CallRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// One record per call; a re-archive of the same session wins by call id.
	for id, existing := range r.byID {
		if existing.CallID == rec.CallID {
			delete(r.byID, id)
		}
	}
	r.byID[rec.ID] = rec
	return nil
}

func (r *MemoryRepo) ListForUser(_ context.Context, email string, limit int) ([]CallRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]CallRecord, 0)
	for _, rec := range r.byID {
		if rec.CallerEmail == email || rec.ReceiverEmail == email {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArchivedAt.After(out[j].ArchivedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
