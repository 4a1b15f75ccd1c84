package namespace

import (
	"context"
	"time"

	"go.jetify.com/typeid"
)

type eventPrefix struct{}

func (eventPrefix) Prefix() string { return "evt" }

// EventID uniquely identifies a namespace change Event.
type EventID struct {
	typeid.TypeID[eventPrefix]
}

func NewEventID() EventID {
	return typeid.Must(typeid.New[EventID]())
}

// EventType describes which mutation produced an Event.
type EventType string

const (
	EventTypeCreated EventType = "created"
	EventTypeUpdated EventType = "updated"
	EventTypeDropped EventType = "dropped"
)

// Event describes a committed namespace mutation.
type Event struct {
	ID         EventID           `json:"id"`
	Type       EventType         `json:"type"`
	Namespace  []string          `json:"namespace"`
	Properties map[string]string `json:"properties,omitempty"`
	Diff       *PropertiesDiff   `json:"diff,omitempty"`
	Time       time.Time         `json:"time"`
}

func newEvent(typ EventType, id Identity) Event {
	return Event{
		ID:        NewEventID(),
		Type:      typ,
		Namespace: id.Levels(),
		Time:      time.Now().UTC(),
	}
}

// Notifier is notified after a namespace mutation has been committed.
type Notifier interface {
	NotifyNamespaceEvent(ctx context.Context, event Event) error
}
