package event

import "time"

type Type string

const (
	TypeUserRegistered   Type = "user.registered"
	TypeSessionCreated   Type = "session.created"
	TypeSessionReused    Type = "session.reused"
	TypeSessionRefreshed Type = "session.refreshed"
	TypeLoginFailed      Type = "login.failed"
	TypeAccessDenied     Type = "access.denied"
)

type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	UserID     int64     `json:"user_id,omitempty"`
	Username   string    `json:"username,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(Event) {}

func (Nop) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event)
	close(ch)
	return ch, func() {}
}
