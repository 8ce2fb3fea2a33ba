package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

// Topics для Kafka
const (
	TopicEntityEvents = "rms.entity.events"
)

// Kafka headers
const (
	HeaderEventType  = "x-event-type"
	HeaderEntityKind = "x-entity-kind"
)

// EntityEventMessage — JSON-представление domain.EntityEvent в топике.
type EntityEventMessage struct {
	EventType  string    `json:"event_type"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEntityEventMessage переводит доменное событие в сообщение
func NewEntityEventMessage(event domain.EntityEvent) EntityEventMessage {
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return EntityEventMessage{
		EventType:  event.Name(),
		EntityKind: string(event.Kind),
		EntityID:   event.EntityID,
		Timestamp:  ts,
	}
}
