// internal/app/storage.go
package app

import (
	"context"
	"fmt"

	"vas-billing-service/internal/config"
	"vas-billing-service/internal/db"
	"vas-billing-service/internal/domain/admin"
	"vas-billing-service/internal/pkg/otp"
	"vas-billing-service/internal/pkg/session"
	"vas-billing-service/internal/repository/memory"
	"vas-billing-service/internal/repository/postgres"
	authUsecase "vas-billing-service/internal/service/auth"
	catalogUsecase "vas-billing-service/internal/service/catalog"
	subscriptionUsecase "vas-billing-service/internal/service/subscription"
	transactionUsecase "vas-billing-service/internal/service/transaction"

	"go.uber.org/zap"
)

type subscriptionRepository interface {
	subscriptionUsecase.SubscriptionStore
	ActiveUsersPerService(ctx context.Context) ([]*admin.ActiveUsersPerService, error)
}

// storage is the persistence the services run on: postgres and redis in
// production, process memory for local runs and tests.
type storage struct {
	users         authUsecase.UserStore
	services      catalogUsecase.ServiceStore
	subscriptions subscriptionRepository
	transactions  transactionUsecase.TransactionStore
	ledger        subscriptionUsecase.Ledger

	otps      otp.Store
	blacklist session.Blacklist
	limiter   session.Limiter

	closers []func()
}

func openStorage(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		return openMemoryStorage(cfg), nil
	case config.StorageDriverPostgres:
		return openPostgresStorage(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func openMemoryStorage(cfg config.AppConfig) *storage {
	store := memory.NewStore()
	return &storage{
		users:         store.Users(),
		services:      store.Services(),
		subscriptions: store.Subscriptions(),
		transactions:  store.Transactions(),
		ledger:        store.Ledger(),
		otps:          otp.NewMemoryStore(),
		blacklist:     session.NewMemoryBlacklist(),
		limiter:       session.NewMemoryRateLimiter(cfg.OTPSendLimit, cfg.OTPSendWindow),
	}
}

func openPostgresStorage(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*storage, error) {
	pool, err := db.NewPostgresPool(ctx, db.PostgresConfig{URL: cfg.DatabaseURL, MaxConns: 20})
	if err != nil {
		return nil, err
	}
	logger.Info("connected to postgres")

	if cfg.Migrations {
		if err := db.ApplyMigrations(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	redisClient, err := db.NewRedisClient(ctx, db.RedisConfig{
		Address:  cfg.RedisAddr,
		Password: cfg.RedisPass,
		PoolSize: 10,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	users := postgres.NewUserRepository(pool)
	subs := postgres.NewSubscriptionRepository(pool)
	txns := postgres.NewTransactionRepository(pool)

	return &storage{
		users:         users,
		services:      postgres.NewServiceRepository(pool),
		subscriptions: subs,
		transactions:  txns,
		ledger:        postgres.NewLedgerRepository(postgres.NewDB(pool), users, subs, txns),
		otps:          otp.NewRedisStore(redisClient),
		blacklist:     session.NewRedisBlacklist(redisClient),
		limiter:       session.NewRateLimiter(redisClient, cfg.OTPSendLimit, cfg.OTPSendWindow),
		closers: []func(){
			func() { _ = redisClient.Close() },
			pool.Close,
		},
	}, nil
}

func (s *storage) Close() {
	for _, closeFn := range s.closers {
		closeFn()
	}
}
