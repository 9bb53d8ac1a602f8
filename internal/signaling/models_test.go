package signaling

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestCallSessionWireFieldNames(t *testing.T) {
	ended := time.Unix(1700000045, 0).UTC()
	s := CallSession{
		CallID:          "call-1",
		CallerEmail:     "sam@desk.example.com",
		ReceiverEmail:   "jane@desk.example.com",
		Status:          CallStatusEnded,
		StartedAt:       time.Unix(1700000000, 0).UTC(),
		EndedAt:         &ended,
		DurationSeconds: 45,
	}

	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)
	for _, name := range []string{`"callId"`, `"callerEmail"`, `"receiverEmail"`, `"status"`, `"startedAt"`, `"endedAt"`, `"durationSeconds":45`} {
		if !strings.Contains(body, name) {
			t.Fatalf("wire body missing %s: %s", name, body)
		}
	}
	if strings.Contains(body, `"duration":`) {
		t.Fatalf("wire body carries a stale duration field: %s", body)
	}
}
