package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"helpdesk-live/internal/signaling"
)

func terminalSession(callID string, status signaling.CallStatus, duration int) signaling.CallSession {
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ended := started.Add(time.Duration(duration) * time.Second)
	return signaling.CallSession{
		CallID:          callID,
		CallerEmail:     "agent@helpdesk.test",
		CallerName:      "Sam Agent",
		ReceiverEmail:   "jane@helpdesk.test",
		ReceiverName:    "Jane Doe",
		Status:          status,
		StartedAt:       started,
		EndedAt:         &ended,
		DurationSeconds: duration,
	}
}

func TestArchiveCallStoresTerminalSessions(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	ctx := context.Background()

	if err := svc.ArchiveCall(ctx, terminalSession("c1", signaling.CallStatusEnded, 120)); err != nil {
		t.Fatalf("ArchiveCall: %v", err)
	}
	recs, err := svc.ListForUser(ctx, "jane@helpdesk.test", 10)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	if recs[0].CallID != "c1" || recs[0].Status != "ended" || recs[0].DurationSeconds != 120 {
		t.Fatalf("unexpected record %+v", recs[0])
	}
}

func TestArchiveCallRejectsLiveSessions(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)

	err := svc.ArchiveCall(context.Background(), terminalSession("c1", signaling.CallStatusRinging, 0))
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("err = %v, want ErrInvalidRecord", err)
	}
	err = svc.ArchiveCall(context.Background(), terminalSession("c1", signaling.CallStatusAnswered, 0))
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("err = %v, want ErrInvalidRecord", err)
	}
}

func TestReArchiveSameCallKeepsOneRecord(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	ctx := context.Background()

	if err := svc.ArchiveCall(ctx, terminalSession("c1", signaling.CallStatusEnded, 60)); err != nil {
		t.Fatalf("first archive: %v", err)
	}
	if err := svc.ArchiveCall(ctx, terminalSession("c1", signaling.CallStatusEnded, 60)); err != nil {
		t.Fatalf("second archive: %v", err)
	}
	recs, err := svc.ListForUser(ctx, "agent@helpdesk.test", 10)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d after re-archive, want 1", len(recs))
	}
}

func TestSummaryForUser(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	ctx := context.Background()

	if err := svc.ArchiveCall(ctx, terminalSession("c1", signaling.CallStatusEnded, 120)); err != nil {
		t.Fatalf("archive c1: %v", err)
	}
	if err := svc.ArchiveCall(ctx, terminalSession("c2", signaling.CallStatusEnded, 30)); err != nil {
		t.Fatalf("archive c2: %v", err)
	}
	if err := svc.ArchiveCall(ctx, terminalSession("c3", signaling.CallStatusDeclined, 0)); err != nil {
		t.Fatalf("archive c3: %v", err)
	}

	sum, err := svc.SummaryForUser(ctx, "agent@helpdesk.test")
	if err != nil {
		t.Fatalf("SummaryForUser: %v", err)
	}
	if sum.TotalCalls != 3 || sum.CompletedCalls != 2 || sum.DeclinedCalls != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.TotalTalkSeconds != 150 || sum.LongestCallSecond != 120 {
		t.Fatalf("unexpected talk totals %+v", sum)
	}
}

func TestListForUserFiltersByInvolvement(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	ctx := context.Background()

	if err := svc.ArchiveCall(ctx, terminalSession("c1", signaling.CallStatusEnded, 10)); err != nil {
		t.Fatalf("archive: %v", err)
	}
	recs, err := svc.ListForUser(ctx, "stranger@helpdesk.test", 10)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("records = %d for uninvolved user, want 0", len(recs))
	}
}
