// Package storage opens the record store selected by STORAGE_DRIVER.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/segyhp/sacco-loans/internal/config"
	"github.com/segyhp/sacco-loans/internal/repository"
	"github.com/segyhp/sacco-loans/internal/repository/memory"
	"github.com/segyhp/sacco-loans/internal/repository/postgres"
	redisrepo "github.com/segyhp/sacco-loans/internal/repository/redis"

	"go.uber.org/zap"
)

// Stores bundles the repositories of one backend with its readiness checks.
type Stores struct {
	Loans    repository.LoanRepository
	Payments repository.PaymentRepository
	Checks   map[string]func(ctx context.Context) error

	closers []func() error
}

// Close releases backend connections.
func (s *Stores) Close() error {
	var firstErr error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Open connects to the configured backend.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		db, err := postgres.Connect(ctx, cfg.Database.DSN(), cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			return nil, err
		}
		db.SetConnMaxLifetime(30 * time.Minute)

		logger.Info("connected to postgres", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Name))
		return &Stores{
			Loans:    postgres.NewLoanRepository(db),
			Payments: postgres.NewPaymentRepository(db),
			Checks:   map[string]func(ctx context.Context) error{"database": db.PingContext},
			closers:  []func() error{db.Close},
		}, nil

	case config.StorageDriverRedis:
		rdb, err := redisrepo.Connect(ctx, redisrepo.ConnectionInfo{
			Addr:        cfg.Redis.Addr(),
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			MaxRetries:  3,
			DialTimeout: 5 * time.Second,
			Timeout:     3 * time.Second,
		})
		if err != nil {
			return nil, err
		}

		logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr()), zap.String("prefix", cfg.Redis.Prefix))
		return &Stores{
			Loans:    redisrepo.NewLoanRepository(rdb, cfg.Redis.Prefix),
			Payments: redisrepo.NewPaymentRepository(rdb, cfg.Redis.Prefix),
			Checks: map[string]func(ctx context.Context) error{
				"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			},
			closers: []func() error{rdb.Close},
		}, nil

	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage, records are lost on restart")
		return &Stores{
			Loans:    memory.NewLoanRepository(),
			Payments: memory.NewPaymentRepository(),
			Checks:   map[string]func(ctx context.Context) error{},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
