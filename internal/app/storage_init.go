package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/rms/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/rms/internal/health"
	"github.com/vladislavdragonenkov/rms/internal/storage/memory"
	"github.com/vladislavdragonenkov/rms/internal/storage/mongodb"
	"github.com/vladislavdragonenkov/rms/internal/storage/postgres"
	"github.com/vladislavdragonenkov/rms/internal/storage/sqlite"
)

const storageCloseTimeout = 5 * time.Second

// runtimeDependencies — хранилища выбранного драйвера.
type runtimeDependencies struct {
	clients  domain.ClientRepository
	dishes   domain.DishRepository
	menus    domain.MenuRepository
	invoices domain.InvoiceRepository

	// storageChecker nil для memory.
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	logger = logger.WithField("storage_driver", string(cfg.StorageDriver))

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		logger.Info("using in-memory storage")
		return &runtimeDependencies{
			clients:  memory.NewRepository[domain.Client](),
			dishes:   memory.NewRepository[domain.Dish](),
			menus:    memory.NewRepository[domain.Menu](),
			invoices: memory.NewRepository[domain.Invoice](),
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres dsn is required for %s storage", cfg.StorageDriver)
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		repos, err := store.Repositories()
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.Info("using postgres storage")
		return &runtimeDependencies{
			clients:        repos.Clients,
			dishes:         repos.Dishes,
			menus:          repos.Menus,
			invoices:       repos.Invoices,
			storageChecker: healthcheck.NewStorageChecker("postgres", store),
			closeFn:        store.Close,
		}, nil

	case StorageDriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path is required for %s storage", cfg.StorageDriver)
		}
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		repos, err := store.Repositories()
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.WithField("path", cfg.SQLitePath).Info("using sqlite storage")
		return &runtimeDependencies{
			clients:        repos.Clients,
			dishes:         repos.Dishes,
			menus:          repos.Menus,
			invoices:       repos.Invoices,
			storageChecker: healthcheck.NewStorageChecker("sqlite", store),
			closeFn:        store.Close,
		}, nil

	case StorageDriverMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("mongo uri is required for %s storage", cfg.StorageDriver)
		}
		store, err := mongodb.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		repos, err := store.Repositories()
		if err != nil {
			_ = store.Close(context.WithoutCancel(ctx))
			return nil, err
		}
		logger.WithField("database", cfg.MongoDatabase).Info("using mongo storage")
		return &runtimeDependencies{
			clients:        repos.Clients,
			dishes:         repos.Dishes,
			menus:          repos.Menus,
			invoices:       repos.Invoices,
			storageChecker: healthcheck.NewStorageChecker("mongo", store),
			closeFn: func() error {
				closeCtx, cancel := context.WithTimeout(context.Background(), storageCloseTimeout)
				defer cancel()
				return store.Close(closeCtx)
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}
