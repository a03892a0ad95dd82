package notify

import (
	"context"
	"log"
	"time"
)

// Publisher is the broker dependency of the notify emitters.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// Activity event names recorded by the messaging path.
const (
	ActivityRoomCreated = "chat.room_created"
	ActivityMessageSent = "chat.message_sent"
	ActivityRead        = "chat.read"
)

// ActivityEnvelope is the append-only activity-log record. It is a side
// channel: emitting never blocks or fails the triggering operation.
type ActivityEnvelope struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	OccurredAt    string         `json:"occurred_at"`
	Service       string         `json:"service"`
	Environment   string         `json:"environment"`
	ActorID       int64          `json:"actor_id,omitempty"`
	RoomID        string         `json:"room_id,omitempty"`
	Meta          map[string]any `json:"meta,omitempty"`
}

// ActivityEmitter records messaging activity on the broker.
type ActivityEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

// NewActivityEmitter constructs an emitter.
func NewActivityEmitter(publisher Publisher, routingKey, service, environment string) *ActivityEmitter {
	return &ActivityEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Record appends one activity event. Failures are logged and swallowed.
func (e *ActivityEmitter) Record(ctx context.Context, event string, actorID int64, roomID string, meta map[string]any) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := ActivityEnvelope{
		SchemaVersion: 1,
		EventType:     event,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		ActorID:       actorID,
		RoomID:        roomID,
		Meta:          meta,
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("activity publish failed: %v", err)
	}
}
