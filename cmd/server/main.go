package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segyhp/sacco-loans/internal/config"
	"github.com/segyhp/sacco-loans/internal/handler"
	"github.com/segyhp/sacco-loans/internal/metrics"
	"github.com/segyhp/sacco-loans/internal/service"
	"github.com/segyhp/sacco-loans/internal/storage"
	"github.com/segyhp/sacco-loans/pkg/logger"
	"github.com/segyhp/sacco-loans/pkg/response"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New("sacco-loans-api", cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	// Initialize storage
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), cfg.GetHealthTimeout())
	stores, err := storage.Open(connectCtx, cfg, zapLogger)
	cancelConnect()
	if err != nil {
		zapLogger.Fatal("failed to initialize storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer stores.Close()

	collector := metrics.NewCollector()

	// Initialize service
	loanService := service.NewLoanService(stores.Loans, stores.Payments, collector, zapLogger)
	loanHandler := handler.NewLoanHandler(loanService, zapLogger)

	checks := make(map[string]handler.CheckFunc, len(stores.Checks))
	for name, check := range stores.Checks {
		checks[name] = check
	}
	healthHandler := handler.NewHealthHandler(checks, cfg.GetHealthTimeout())

	// Setup routes
	router := setupRoutes(loanHandler, healthHandler, collector, zapLogger)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	zapLogger.Info("server exited")
}

func setupRoutes(loanHandler *handler.LoanHandler, healthHandler *handler.HealthHandler, collector *metrics.Collector, zapLogger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.CORSMiddleware)
	router.Use(response.LoggingMiddleware(zapLogger, collector.ObserveRequest))

	healthHandler.Register(router)
	router.Handle("/metrics", collector.Handler()).Methods(http.MethodGet)
	loanHandler.Register(router)

	return router
}
