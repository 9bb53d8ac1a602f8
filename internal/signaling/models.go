package signaling

import "time"

// CallSession is one logical voice/video call between two identified
// endpoints, tracked through its status lifecycle by the coordination store.
//
// Wire contract: field names are part of the public signaling API and must
// stay stable (camelCase, consumed by independent client instances).
//
// Status invariant: transitions are monotone along
// ringing -> {answered, declined} -> ended; no transition may revisit ringing.
type CallSession struct {
	CallID        string     `json:"callId"`
	CallerEmail   string     `json:"callerEmail"`
	CallerName    string     `json:"callerName"`
	ReceiverEmail string     `json:"receiverEmail"`
	ReceiverName  string     `json:"receiverName"`
	Status        CallStatus `json:"status"`
	StartedAt     time.Time  `json:"startedAt"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`

	// DurationSeconds is populated when the session reaches a terminal state.
	DurationSeconds int `json:"durationSeconds,omitempty"`
}

type CallStatus string

const (
	CallStatusRinging  CallStatus = "ringing"
	CallStatusAnswered CallStatus = "answered"
	CallStatusDeclined CallStatus = "declined"
	CallStatusEnded    CallStatus = "ended"
)

// IsTerminal reports whether no further transitions are possible.
func (s CallStatus) IsTerminal() bool {
	return s == CallStatusDeclined || s == CallStatusEnded
}

// CanTransition reports whether moving from -> to is a legal lifecycle step.
// Declining is only reachable before the call was answered.
func CanTransition(from, to CallStatus) bool {
	switch from {
	case CallStatusRinging:
		return to == CallStatusAnswered || to == CallStatusDeclined || to == CallStatusEnded
	case CallStatusAnswered:
		return to == CallStatusEnded
	default:
		return false
	}
}

// Involves reports whether the given user is either endpoint of the session.
func (c CallSession) Involves(email string) bool {
	return c.CallerEmail == email || c.ReceiverEmail == email
}

// PeerOf returns the display name and email of the other endpoint.
func (c CallSession) PeerOf(email string) (name, peerEmail string) {
	if c.CallerEmail == email {
		return c.ReceiverName, c.ReceiverEmail
	}
	return c.CallerName, c.CallerEmail
}

// CreateCallRequest is the POST /video-calls body.
type CreateCallRequest struct {
	CallerEmail   string `json:"callerEmail"`
	CallerName    string `json:"callerName"`
	ReceiverEmail string `json:"receiverEmail"`
	ReceiverName  string `json:"receiverName"`
}
