package app

import (
	"context"
	"fmt"

	"pheezes/internal/core/idempotency"
	"pheezes/internal/domain/cash"
	"pheezes/internal/domain/catalog"
	"pheezes/internal/domain/orders"
	"pheezes/internal/domain/stock"
	"pheezes/internal/infrastructure/storage/memory"
	"pheezes/internal/infrastructure/storage/postgres"
	"pheezes/internal/infrastructure/storage/postgres/cash_repo"
	"pheezes/internal/infrastructure/storage/postgres/catalog_repo"
	"pheezes/internal/infrastructure/storage/postgres/order_repo"
	"pheezes/internal/infrastructure/storage/postgres/register_repo"
	"pheezes/pkg/logger"
	"pheezes/pkg/numerator"
)

// Pinger checks the storage backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the domain services wired to one storage backend.
type Services struct {
	Catalog *catalog.Service
	Orders  *orders.Engine
	Cash    *cash.Service
	Storage Pinger

	// Idempotency backs the Idempotency-Key header of create endpoints.
	Idempotency idempotency.Store

	closeFn func()
}

// Close releases storage resources.
func (s *Services) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// NewServices wires the services to the storage driver selected by cfg.
func NewServices(ctx context.Context, cfg *Config) (*Services, error) {
	switch cfg.StorageDriver {
	case DriverMemory:
		return NewMemoryServices(memory.New(), cfg)
	case DriverPostgres:
		return NewPostgresServices(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// NewMemoryServices wires the services to an in-memory store.
func NewMemoryServices(store *memory.Store, cfg *Config) (*Services, error) {
	cashCfg, err := cfg.CashConfig()
	if err != nil {
		return nil, err
	}
	cashService, err := cash.NewService(store.Cash(), cashCfg)
	if err != nil {
		return nil, err
	}

	ledger := stock.NewLedger(store.Stock())
	numbers := store.Numbers(numerator.DefaultConfig(cfg.OrderNumberPrefix))

	return &Services{
		Catalog: catalog.NewService(store.Catalog(), store, ledger, store.Stock()),
		Orders:  orders.NewEngine(store.Orders(), ledger, numbers, orders.WithAuditor(store.Audit())),
		Cash:    cashService,
		Storage: store,

		Idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
	}, nil
}

// NewPostgresServices connects to PostgreSQL, applies migrations and wires
// the services to the PostgreSQL repositories.
func NewPostgresServices(ctx context.Context, cfg *Config) (*Services, error) {
	cashCfg, err := cfg.CashConfig()
	if err != nil {
		return nil, err
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	txm := postgres.NewTxManager(pool).WithStatementTimeout(cfg.DBStatementTimeout)
	if err := postgres.Migrate(ctx, txm); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	audit, err := postgres.NewAuditService(txm)
	if err != nil {
		pool.Close()
		return nil, err
	}

	cashService, err := cash.NewService(cash_repo.NewTransactionRepo(txm), cashCfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	stockRepo := register_repo.NewStockRepo(txm)
	ledger := stock.NewLedger(stockRepo)
	numbers := numerator.New(txm).Sequence(numerator.DefaultConfig(cfg.OrderNumberPrefix))

	keys := postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL)
	if removed, err := keys.CleanupExpired(ctx); err != nil {
		logger.Warn(ctx, "idempotency cleanup failed", "error", err)
	} else if removed > 0 {
		logger.Info(ctx, "expired idempotency keys removed", "count", removed)
	}

	logger.Info(ctx, "postgres storage ready", "max_conns", poolCfg.MaxConns)

	return &Services{
		Catalog: catalog.NewService(catalog_repo.NewProductRepo(txm), txm, ledger, stockRepo),
		Orders:  orders.NewEngine(order_repo.NewStore(txm, stockRepo), ledger, numbers, orders.WithAuditor(audit)),
		Cash:    cashService,
		Storage: txm,

		Idempotency: keys,
		closeFn: func() {
			postgres.LogPoolStats(context.Background(), pool)
			pool.Close()
		},
	}, nil
}
