package signaling

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRepoEvictsOldTerminalSessions(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	repo := NewMemoryRepo().WithRetention(time.Minute)
	repo.clock = func() time.Time { return now }

	ctx := context.Background()
	for _, s := range []CallSession{
		{CallID: "dead", CallerEmail: "sam@desk.example.com", ReceiverEmail: "jane@desk.example.com", Status: CallStatusRinging, StartedAt: now.Add(-2 * time.Minute)},
		{CallID: "live", CallerEmail: "sam@desk.example.com", ReceiverEmail: "jane@desk.example.com", Status: CallStatusRinging, StartedAt: now},
	} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("create %s: %v", s.CallID, err)
		}
	}
	if _, applied, err := repo.Transition(ctx, "dead", CallStatusEnded, now); err != nil || !applied {
		t.Fatalf("transition: applied=%v err=%v", applied, err)
	}

	sessions, err := repo.ListForUser(ctx, "sam@desk.example.com")
	if err != nil || len(sessions) != 2 {
		t.Fatalf("inside retention window: %d sessions, err %v", len(sessions), err)
	}

	now = now.Add(2 * time.Minute)
	sessions, err = repo.ListForUser(ctx, "sam@desk.example.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 || sessions[0].CallID != "live" {
		t.Fatalf("after retention window: got %+v, want only the live session", sessions)
	}
	if _, err := repo.Get(ctx, "dead"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(dead) err = %v, want ErrNotFound", err)
	}
}
