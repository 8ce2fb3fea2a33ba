package domain

import "time"

// EntityKind — тип сущности в событиях, метриках и логах.
type EntityKind string

const (
	KindClient  EntityKind = "client"
	KindDish    EntityKind = "dish"
	KindMenu    EntityKind = "menu"
	KindInvoice EntityKind = "invoice"
)

// EventType — что произошло с сущностью.
type EventType string

const (
	EventCreated         EventType = "created"
	EventUpdated         EventType = "updated"
	EventDeleted         EventType = "deleted"
	EventReportGenerated EventType = "report_generated"
)

// EntityEvent — событие жизненного цикла сущности.
type EntityEvent struct {
	Kind       EntityKind
	Type       EventType
	EntityID   string
	OccurredAt time.Time
}

// NewEntityEvent создаёт событие с текущим временем.
func NewEntityEvent(kind EntityKind, eventType EventType, entityID string) EntityEvent {
	return EntityEvent{
		Kind:       kind,
		Type:       eventType,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}
}

// Name возвращает имя события вида "invoice.created".
func (e EntityEvent) Name() string {
	return string(e.Kind) + "." + string(e.Type)
}
