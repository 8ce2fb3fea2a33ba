// Package sqldoc хранит сущности как JSON-документы в SQL-таблицах (id, doc, created_at, updated_at).
// Общий код для PostgreSQL и SQLite; различия описывает Dialect.
package sqldoc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

// Таблицы сущностей.
const (
	TableClients  = "clients"
	TableDishes   = "dishes"
	TableMenus    = "menus"
	TableInvoices = "invoices"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Dialect описывает особенности SQL-диалекта.
type Dialect struct {
	Name string
	// DocParam — выражение для параметра с JSON-документом в INSERT.
	DocParam string
	// DocColumn — выражение для чтения документа как текста.
	DocColumn string
	// TranslateError уточняет ошибки драйвера. Может быть nil.
	TranslateError func(error) error
}

func (d Dialect) translate(err error) error {
	if d.TranslateError == nil {
		return err
	}
	return d.TranslateError(err)
}

// Repository реализует domain.Repository поверх одной таблицы.
type Repository[T domain.Entity[T, string]] struct {
	db      *sqlx.DB
	dialect Dialect
	table   string
	now     func() time.Time

	upsertQuery string
	findQuery   string
	listQuery   string
	deleteQuery string
	countQuery  string
}

// NewRepository собирает запросы для таблицы table.
func NewRepository[T domain.Entity[T, string]](db *sqlx.DB, dialect Dialect, table string) (*Repository[T], error) {
	if db == nil {
		return nil, errors.New("sqldoc: db is nil")
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("sqldoc: invalid table name %q", table)
	}

	return &Repository[T]{
		db:      db,
		dialect: dialect,
		table:   table,
		now:     func() time.Time { return time.Now().UTC() },
		upsertQuery: db.Rebind(fmt.Sprintf(`
			INSERT INTO %s (id, doc, created_at, updated_at)
			VALUES (?, %s, ?, ?)
			ON CONFLICT (id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
			table, dialect.DocParam)),
		findQuery:   db.Rebind(fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, dialect.DocColumn, table)),
		listQuery:   fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, dialect.DocColumn, table),
		deleteQuery: db.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table)),
		countQuery:  fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table),
	}, nil
}

// Save вставляет или перезаписывает документ. Пустой ID заменяется на UUIDv7.
func (r *Repository[T]) Save(ctx context.Context, entity T) (T, error) {
	var zero T
	if entity.GetID() == "" {
		entity = entity.WithID(domain.NewID())
	}

	doc, err := json.Marshal(entity)
	if err != nil {
		return zero, fmt.Errorf("marshal %s document: %w", r.table, err)
	}

	now := r.now()
	if _, err := r.db.ExecContext(ctx, r.upsertQuery, entity.GetID(), string(doc), now, now); err != nil {
		return zero, fmt.Errorf("upsert %s %s: %w", r.table, entity.GetID(), r.dialect.translate(err))
	}
	return entity, nil
}

// FindByID возвращает документ или domain.ErrNotFound.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	var raw string
	if err := r.db.GetContext(ctx, &raw, r.findQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, domain.ErrNotFound
		}
		return zero, fmt.Errorf("select %s %s: %w", r.table, id, r.dialect.translate(err))
	}
	return r.decode(raw)
}

// FindAll читает документы курсором в порядке ID.
// Курсор держит соединение до конца перечисления.
func (r *Repository[T]) FindAll(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		rows, err := r.db.QueryxContext(ctx, r.listQuery)
		if err != nil {
			yield(zero, fmt.Errorf("list %s: %w", r.table, r.dialect.translate(err)))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				yield(zero, fmt.Errorf("scan %s: %w", r.table, err))
				return
			}
			entity, err := r.decode(raw)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(entity, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, fmt.Errorf("iterate %s: %w", r.table, r.dialect.translate(err)))
		}
	}
}

// DeleteByID удаляет документ или возвращает domain.ErrNotFound.
func (r *Repository[T]) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.deleteQuery, id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", r.table, id, r.dialect.translate(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s rows affected: %w", r.table, id, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count возвращает количество документов в таблице.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, r.countQuery); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.table, r.dialect.translate(err))
	}
	return n, nil
}

func (r *Repository[T]) decode(raw string) (T, error) {
	var entity T
	if err := json.Unmarshal([]byte(raw), &entity); err != nil {
		var zero T
		return zero, fmt.Errorf("unmarshal %s document: %w", r.table, err)
	}
	return entity, nil
}

// Repositories — набор репозиториев всех сущностей над одной БД.
type Repositories struct {
	Clients  *Repository[domain.Client]
	Dishes   *Repository[domain.Dish]
	Menus    *Repository[domain.Menu]
	Invoices *Repository[domain.Invoice]
}

// NewRepositories создаёт репозитории для стандартных таблиц.
func NewRepositories(db *sqlx.DB, dialect Dialect) (*Repositories, error) {
	clients, err := NewRepository[domain.Client](db, dialect, TableClients)
	if err != nil {
		return nil, err
	}
	dishes, err := NewRepository[domain.Dish](db, dialect, TableDishes)
	if err != nil {
		return nil, err
	}
	menus, err := NewRepository[domain.Menu](db, dialect, TableMenus)
	if err != nil {
		return nil, err
	}
	invoices, err := NewRepository[domain.Invoice](db, dialect, TableInvoices)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Clients:  clients,
		Dishes:   dishes,
		Menus:    menus,
		Invoices: invoices,
	}, nil
}

var (
	_ domain.ClientRepository  = (*Repository[domain.Client])(nil)
	_ domain.InvoiceRepository = (*Repository[domain.Invoice])(nil)
)
