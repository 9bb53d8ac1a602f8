package history

import "time"

// CallRecord is one archived call session. Records are written once when a
// session reaches a terminal status and are immutable afterwards.
type CallRecord struct {
	ID              string    `json:"id"`
	CallID          string    `json:"callId"`
	CallerEmail     string    `json:"callerEmail"`
	CallerName      string    `json:"callerName"`
	ReceiverEmail   string    `json:"receiverEmail"`
	ReceiverName    string    `json:"receiverName"`
	Status          string    `json:"status"`
	StartedAt       time.Time `json:"startedAt"`
	EndedAt         time.Time `json:"endedAt"`
	DurationSeconds int64     `json:"durationSeconds"`
	ArchivedAt      time.Time `json:"archivedAt"`
}

// Summary aggregates a user's archived calls.
type Summary struct {
	UserEmail         string `json:"userEmail"`
	TotalCalls        int    `json:"totalCalls"`
	CompletedCalls    int    `json:"completedCalls"`
	DeclinedCalls     int    `json:"declinedCalls"`
	TotalTalkSeconds  int64  `json:"totalTalkSeconds"`
	LongestCallSecond int64  `json:"longestCallSeconds"`
}
