package mongodb

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

// Repository реализует domain.Repository поверх одной коллекции.
// Идентификатор сущности хранится в _id.
type Repository[T domain.Entity[T, string]] struct {
	coll *mongo.Collection
}

// NewRepository создаёт репозиторий над коллекцией.
func NewRepository[T domain.Entity[T, string]](coll *mongo.Collection) *Repository[T] {
	return &Repository[T]{coll: coll}
}

func byID(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

// Save вставляет или заменяет документ. Пустой ID заменяется на UUIDv7.
func (r *Repository[T]) Save(ctx context.Context, entity T) (T, error) {
	var zero T
	if entity.GetID() == "" {
		entity = entity.WithID(domain.NewID())
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, byID(entity.GetID()), entity, opts); err != nil {
		return zero, fmt.Errorf("upsert %s %s: %w", r.coll.Name(), entity.GetID(), err)
	}
	return entity, nil
}

// FindByID возвращает документ или domain.ErrNotFound.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (T, error) {
	var entity T
	if err := r.coll.FindOne(ctx, byID(id)).Decode(&entity); err != nil {
		var zero T
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, domain.ErrNotFound
		}
		return zero, fmt.Errorf("find %s %s: %w", r.coll.Name(), id, err)
	}
	return entity, nil
}

// FindAll перечисляет документы курсором в порядке _id.
func (r *Repository[T]) FindAll(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
		cur, err := r.coll.Find(ctx, bson.D{}, opts)
		if err != nil {
			yield(zero, fmt.Errorf("list %s: %w", r.coll.Name(), err))
			return
		}
		defer func() { _ = cur.Close(context.WithoutCancel(ctx)) }()

		for cur.Next(ctx) {
			var entity T
			if err := cur.Decode(&entity); err != nil {
				yield(zero, fmt.Errorf("decode %s: %w", r.coll.Name(), err))
				return
			}
			if !yield(entity, nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(zero, fmt.Errorf("iterate %s: %w", r.coll.Name(), err))
		}
	}
}

// DeleteByID удаляет документ или возвращает domain.ErrNotFound.
func (r *Repository[T]) DeleteByID(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, byID(id))
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", r.coll.Name(), id, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count возвращает количество документов в коллекции.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.coll.Name(), err)
	}
	return n, nil
}

// Repositories — набор репозиториев всех сущностей над одной базой.
type Repositories struct {
	Clients  *Repository[domain.Client]
	Dishes   *Repository[domain.Dish]
	Menus    *Repository[domain.Menu]
	Invoices *Repository[domain.Invoice]
}

var (
	_ domain.ClientRepository  = (*Repository[domain.Client])(nil)
	_ domain.DishRepository    = (*Repository[domain.Dish])(nil)
	_ domain.MenuRepository    = (*Repository[domain.Menu])(nil)
	_ domain.InvoiceRepository = (*Repository[domain.Invoice])(nil)
)
