// Package mongodb хранит сущности в коллекциях MongoDB, по одной на тип.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second
)

// Коллекции сущностей.
const (
	CollectionClients  = "clients"
	CollectionDishes   = "dishes"
	CollectionMenus    = "menus"
	CollectionInvoices = "invoices"
)

// Store держит клиент MongoDB и выбранную базу.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open подключается к MongoDB и проверяет доступность primary.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errors.New("mongo uri is empty")
	}
	if strings.TrimSpace(database) == "" {
		return nil, errors.New("mongo database is empty")
	}

	opts := options.Client().
		ApplyURI(uri).
		SetRegistry(NewRegistry()).
		SetConnectTimeout(defaultConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	store := &Store{client: client, db: client.Database(database)}
	if err := store.Ping(ctx); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	return store, nil
}

// Ping проверяет доступность сервера.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return errors.New("mongo store is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := s.client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

// Repositories возвращает репозитории всех сущностей.
func (s *Store) Repositories() (*Repositories, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("mongo store is not initialized")
	}
	return &Repositories{
		Clients:  NewRepository[domain.Client](s.db.Collection(CollectionClients)),
		Dishes:   NewRepository[domain.Dish](s.db.Collection(CollectionDishes)),
		Menus:    NewRepository[domain.Menu](s.db.Collection(CollectionMenus)),
		Invoices: NewRepository[domain.Invoice](s.db.Collection(CollectionInvoices)),
	}, nil
}

// Close отключает клиент.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
