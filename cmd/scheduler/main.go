package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segyhp/sacco-loans/internal/config"
	"github.com/segyhp/sacco-loans/internal/domain"
	"github.com/segyhp/sacco-loans/internal/metrics"
	"github.com/segyhp/sacco-loans/internal/service"
	"github.com/segyhp/sacco-loans/internal/storage"
	"github.com/segyhp/sacco-loans/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = 5 * time.Minute

// reconciler is the part of the loan service the scheduled jobs drive
type reconciler interface {
	ReconcileStatuses(ctx context.Context) (int, error)
	Dashboard(ctx context.Context) (*domain.DashboardStats, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New("sacco-loans-scheduler", cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting loan scheduler")

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), cfg.GetHealthTimeout())
	stores, err := storage.Open(connectCtx, cfg, zapLogger)
	cancelConnect()
	if err != nil {
		zapLogger.Fatal("failed to initialize storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer stores.Close()

	loanService := service.NewLoanService(stores.Loans, stores.Payments, metrics.NewCollector(), zapLogger)

	cronLogger := cron.PrintfLogger(zap.NewStdLog(zapLogger.Named("cron")))
	location := cfg.GetSchedulerLocation()
	if location != time.UTC {
		zapLogger.Warn("reconciliation scheduled outside UTC, loan dates follow the UTC calendar",
			zap.String("timezone", location.String()))
	}

	c := cron.New(
		cron.WithParser(config.CronParser),
		cron.WithLocation(location),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	if err := setupCronJobs(c, cfg, loanService, zapLogger); err != nil {
		zapLogger.Fatal("failed to schedule jobs", zap.Error(err))
	}

	c.Start()
	zapLogger.Info("scheduler started",
		zap.String("reconcile_spec", cfg.Scheduler.ReconcileSpec),
		zap.String("timezone", cfg.Scheduler.Timezone),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down scheduler")
	<-c.Stop().Done()
	zapLogger.Info("scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, svc reconciler, zapLogger *zap.Logger) error {
	// Daily job refreshing stored loan statuses, runs at midnight in the configured timezone
	if _, err := c.AddFunc(cfg.Scheduler.ReconcileSpec, reconcileJob(svc, zapLogger)); err != nil {
		return err
	}

	zapLogger.Info("cron jobs scheduled", zap.Int("jobs", len(c.Entries())))
	return nil
}

// reconcileJob writes derived statuses back to the store and logs the resulting portfolio
func reconcileJob(svc reconciler, zapLogger *zap.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		updated, err := svc.ReconcileStatuses(ctx)
		if err != nil {
			zapLogger.Error("status reconciliation failed", zap.Int("updated", updated), zap.Error(err))
			return
		}

		stats, err := svc.Dashboard(ctx)
		if err != nil {
			zapLogger.Error("portfolio summary failed", zap.Error(err))
			return
		}

		zapLogger.Info("status reconciliation finished",
			zap.Int("updated", updated),
			zap.Int("total", stats.Total),
			zap.Int("active", stats.Active),
			zap.Int("paid", stats.Paid),
			zap.Int("defaulted", stats.Defaulted),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
