package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/ims/internal/health"
	"github.com/vladislavdragonenkov/ims/internal/storage/memory"
	"github.com/vladislavdragonenkov/ims/internal/storage/postgres"
)

const storagePingTimeout = 2 * time.Second

// runtimeDependencies собирает репозитории, health-проверку хранилища и
// функцию закрытия подключения.
type runtimeDependencies struct {
	products    domain.ProductRepository
	categories  domain.CategoryRepository
	customers   domain.CustomerRepository
	users       domain.UserRepository
	orders      domain.OrderRepository
	movements   domain.MovementRepository
	outbox      domain.OutboxRepository
	idempotency domain.IdempotencyRepository

	storageChecker healthcheck.Checker
	closeFn        func() error
}

// initRuntimeDependencies создаёт репозитории выбранного драйвера хранилища.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		categories := memory.NewCategoryRepository()
		return &runtimeDependencies{
			products:    memory.NewProductRepository(categories),
			categories:  categories,
			customers:   memory.NewCustomerRepository(),
			users:       memory.NewUserRepository(),
			orders:      memory.NewOrderRepository(),
			movements:   memory.NewMovementRepository(),
			outbox:      memory.NewOutboxRepository(),
			idempotency: memory.NewIdempotencyRepository(),
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage driver requires a DSN")
		}

		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}

		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}

		return &runtimeDependencies{
			products:       postgres.NewProductRepository(store),
			categories:     postgres.NewCategoryRepository(store),
			customers:      postgres.NewCustomerRepository(store),
			users:          postgres.NewUserRepository(store),
			orders:         postgres.NewOrderRepository(store),
			movements:      postgres.NewMovementRepository(store),
			outbox:         postgres.NewOutboxRepository(store),
			idempotency:    postgres.NewIdempotencyRepository(store),
			storageChecker: healthcheck.NewPingChecker("postgres", storagePingTimeout, store.Ping),
			closeFn:        store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}
