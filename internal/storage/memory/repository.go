package memory

import (
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

// Repository — in-memory реализация порта хранилища для любой сущности со строковым ID.
type Repository[T domain.Entity[T, string]] struct {
	mu    sync.RWMutex
	items map[string]T
	newID func() string
}

// NewRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewRepository[T domain.Entity[T, string]]() *Repository[T] {
	return &Repository[T]{
		items: make(map[string]T),
		newID: domain.NewID,
	}
}

// Save вставляет или перезаписывает сущность, назначая ID при необходимости.
func (r *Repository[T]) Save(ctx context.Context, entity T) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	if entity.GetID() == "" {
		entity = entity.WithID(r.newID())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[entity.GetID()] = clone(entity)
	return clone(entity), nil
}

// FindByID возвращает сущность или domain.ErrNotFound.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.items[id]
	if !ok {
		return zero, domain.ErrNotFound
	}
	return clone(entity), nil
}

// FindAll отдаёт снимок хранилища, упорядоченный по ID.
// Блокировка снимается до первого yield.
func (r *Repository[T]) FindAll(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, entity := range r.snapshot() {
			if err := ctx.Err(); err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !yield(entity, nil) {
				return
			}
		}
	}
}

// DeleteByID удаляет сущность или возвращает domain.ErrNotFound.
func (r *Repository[T]) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// Len возвращает количество сущностей.
func (r *Repository[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Repository[T]) snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	result := make([]T, 0, len(ids))
	for _, id := range ids {
		result = append(result, clone(r.items[id]))
	}
	return result
}

func clone[T any](entity T) T {
	if c, ok := any(entity).(domain.Cloner[T]); ok {
		return c.Clone()
	}
	return entity
}

var (
	_ domain.ClientRepository  = (*Repository[domain.Client])(nil)
	_ domain.DishRepository    = (*Repository[domain.Dish])(nil)
	_ domain.MenuRepository    = (*Repository[domain.Menu])(nil)
	_ domain.InvoiceRepository = (*Repository[domain.Invoice])(nil)
)
