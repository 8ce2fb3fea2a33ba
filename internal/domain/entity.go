package domain

import "github.com/google/uuid"

// Entity — сущность, идентификатор которой назначает хранилище при первом сохранении.
type Entity[T any, ID comparable] interface {
	GetID() ID
	// WithID возвращает копию сущности с новым идентификатором.
	WithID(id ID) T
}

// Validator реализуют сущности с собственными инвариантами.
type Validator interface {
	Validate() error
}

// Normalizer приводит сущность к виду, в котором она лежит в хранилище.
type Normalizer[T any] interface {
	Normalize() T
}

// StoredMerger переносит в новую версию сущности поля, которыми владеет сервер.
// Вызывается при обновлении с текущим сохранённым состоянием.
type StoredMerger[T any] interface {
	MergeStored(stored T) T
}

// Cloner реализуют сущности со ссылочными полями (слайсами).
type Cloner[T any] interface {
	Clone() T
}

// NewID выдаёт UUIDv7: идентификаторы упорядочены по времени создания.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
