package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"saldo/internal/domain/account"
	"saldo/internal/domain/category"
	"saldo/internal/domain/ledger"
	"saldo/internal/domain/transaction"
	"saldo/internal/domain/user"
	"saldo/internal/infrastructure/memory"
	"saldo/internal/infrastructure/postgres"
	"saldo/internal/infrastructure/redislock"
	httphandlers "saldo/internal/interfaces/http"
	"saldo/internal/interfaces/scheduler"
	"saldo/internal/shared/auth"
	"saldo/internal/shared/config"
)

// ledgerStore opens atomic units for both account and transaction
// mutations.
type ledgerStore interface {
	account.Store
	transaction.Store
}

// Storage is the set of repositories backing the services.
type Storage struct {
	Users        user.Repository
	Categories   category.Repository
	Accounts     account.Repository
	Transactions transaction.Repository
	Ledger       ledgerStore
	Health       httphandlers.Pinger

	close func() error
}

// OpenStorage connects the configured driver. Postgres migrations run first
// when MigrateOnStart is set.
func OpenStorage(cfg *config.Config, logger zerolog.Logger) (*Storage, error) {
	if cfg.Database.Driver == "memory" {
		store := memory.New()
		logger.Warn().Msg("using in-memory storage; data is lost on exit")
		return &Storage{
			Users:        store.Users(),
			Categories:   store.Categories(),
			Accounts:     store.Accounts(),
			Transactions: store.Transactions(),
			Ledger:       store,
			Health:       store,
			close:        func() error { return nil },
		}, nil
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	logger.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("connected to database")

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(db, cfg.Database.DBName, logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Storage{
		Users:        postgres.NewUserRepository(db),
		Categories:   postgres.NewCategoryRepository(db),
		Accounts:     postgres.NewAccountRepository(db),
		Transactions: postgres.NewTransactionRepository(db),
		Ledger:       postgres.NewLedgerStore(db),
		Health:       db,
		close:        db.Close,
	}, nil
}

func (s *Storage) Close() error {
	return s.close()
}

// NewLocker returns the Redis-backed locker when an address is configured,
// otherwise nil so the coordinator falls back to in-process locks.
func NewLocker(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (ledger.Locker, *redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis account locks")

	locker := redislock.New(client, redislock.Options{
		Expiry:     cfg.Redis.LockExpiry,
		Tries:      cfg.Redis.LockTries,
		RetryDelay: cfg.Redis.LockRetryDelay,
	}, logger)
	return locker, client, nil
}

// Dependencies holds all initialized application components.
type Dependencies struct {
	Storage *Storage
	Redis   *redis.Client

	// Domain services
	Users      *user.Service
	Categories *category.Service
	Accounts   *account.Service
	Engine     *transaction.Engine
	Reconciler *transaction.Reconciler

	Handlers httphandlers.Handlers

	// JWT is nil when authentication is disabled.
	JWT *auth.JWT
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	storage, err := OpenStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	locker, redisClient, err := NewLocker(ctx, cfg, logger)
	if err != nil {
		storage.Close()
		return nil, err
	}
	coord := ledger.NewCoordinator(locker, cfg.Ledger.LockTimeout)

	d := &Dependencies{Storage: storage, Redis: redisClient}

	d.Users = user.NewService(storage.Users, logger)
	d.Categories = category.NewService(storage.Categories, logger)
	d.Accounts = account.NewService(storage.Accounts, storage.Ledger, storage.Users, coord, logger)
	d.Engine = transaction.NewEngine(storage.Transactions, storage.Ledger, storage.Accounts, d.Categories, coord, logger)
	d.Reconciler = transaction.NewReconciler(storage.Ledger, coord, logger, cfg.Ledger.ReconcileWorkers)

	d.Handlers = httphandlers.Handlers{
		Health:      httphandlers.NewHealthHandler(storage.Health, logger),
		User:        httphandlers.NewUserHandler(d.Users, d.Accounts, logger),
		Account:     httphandlers.NewAccountHandler(d.Accounts, d.Engine, logger),
		Transaction: httphandlers.NewTransactionHandler(d.Engine, logger),
		Category:    httphandlers.NewCategoryHandler(d.Categories, logger),
	}

	if cfg.Auth.Enabled {
		d.JWT = auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	}

	return d, nil
}

// NewReconcileScheduler returns a scheduler that reports balance drift at
// the configured times of day, or nil when no schedule is set.
func NewReconcileScheduler(d *Dependencies, cfg *config.Config, logger zerolog.Logger) (*scheduler.Scheduler, error) {
	if len(cfg.Ledger.ReconcileSchedule) == 0 {
		return nil, nil
	}
	job := scheduler.NewReconcileJob(d.Storage.Accounts, d.Reconciler, false, logger)
	s, err := scheduler.New(job, scheduler.Config{
		ScheduleTimes: cfg.Ledger.ReconcileSchedule,
		RunOnStartup:  cfg.Ledger.ReconcileOnStartup,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule: %w", err)
	}
	return s, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		d.Redis.Close()
	}
	if d.Storage != nil {
		d.Storage.Close()
	}
}
