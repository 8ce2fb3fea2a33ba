package domain

import (
	"context"
	"iter"
)

// Repository — порт хранилища для одного типа сущностей.
type Repository[T any, ID comparable] interface {
	// Save вставляет или перезаписывает сущность. Пустой ID назначается хранилищем.
	Save(ctx context.Context, entity T) (T, error)
	// FindByID возвращает сущность или ErrNotFound.
	FindByID(ctx context.Context, id ID) (T, error)
	// FindAll лениво перечисляет все сущности. Последовательность конечна и
	// при повторном вызове перечитывает хранилище.
	FindAll(ctx context.Context) iter.Seq2[T, error]
	// DeleteByID удаляет сущность или возвращает ErrNotFound.
	DeleteByID(ctx context.Context, id ID) error
}

// Counter реализуют хранилища, которые считают записи без полного чтения.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

type (
	ClientRepository  = Repository[Client, string]
	DishRepository    = Repository[Dish, string]
	MenuRepository    = Repository[Menu, string]
	InvoiceRepository = Repository[Invoice, string]
)

// ReportRenderer превращает параметры и строки отчёта в документ.
type ReportRenderer interface {
	Render(ctx context.Context, templateRef string, params map[string]any, rows []InvoiceDetail) ([]byte, error)
}

// EventPublisher публикует события жизненного цикла сущностей.
type EventPublisher interface {
	Publish(ctx context.Context, event EntityEvent) error
}
