// Package sqlite — встраиваемое файловое хранилище на modernc.org/sqlite.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/vladislavdragonenkov/rms/internal/storage/sqldoc"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS clients (
    id TEXT PRIMARY KEY,
    doc TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS dishes (
    id TEXT PRIMARY KEY,
    doc TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS menus (
    id TEXT PRIMARY KEY,
    doc TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS invoices (
    id TEXT PRIMARY KEY,
    doc TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// Dialect — JSON хранится как TEXT.
var Dialect = sqldoc.Dialect{
	Name:      "sqlite",
	DocParam:  "?",
	DocColumn: "doc",
	TranslateError: func(err error) error {
		if err != nil && strings.Contains(err.Error(), "database is locked") {
			return fmt.Errorf("sqlite busy: %w", err)
		}
		return err
	},
}

// Store оборачивает подключение к файлу SQLite.
type Store struct {
	db *sqlx.DB
}

// Open открывает (или создаёт) файл базы и применяет схему.
// Одно соединение: SQLite сериализует запись, а открытый курсор FindAll
// занимает его до конца перечисления.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB возвращает sqlx-подключение.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Repositories возвращает репозитории всех сущностей.
func (s *Store) Repositories() (*sqldoc.Repositories, error) {
	return sqldoc.NewRepositories(s.db, Dialect)
}

// Ping проверяет доступность подключения.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite store is not initialized")
	}
	return s.db.PingContext(ctx)
}

// Close закрывает подключение к БД.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
