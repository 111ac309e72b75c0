package domain

import (
	"log/slog"
	"sync"
	"time"
)

type Event interface {
	Type() string
	PublishedAt() time.Time
}

// Embed by value and never copy the embedding struct.
type Aggregate struct {
	mu     sync.Mutex
	events []Event
}

func (a *Aggregate) PushEvent(e Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *Aggregate) PopEvents() []Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	events := a.events
	a.events = nil
	return events
}

type Actor struct {
	UserID string
	Role   string
	Client string
}

func (a Actor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user_id", a.UserID),
		slog.String("role", a.Role),
		slog.String("client", a.Client),
	)
}
