package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/config"
	"github.com/mamadbah2/inventory/internal/repository"
	"github.com/mamadbah2/inventory/internal/repository/memory"
	"github.com/mamadbah2/inventory/internal/repository/mongodb"
	"github.com/mamadbah2/inventory/internal/repository/sheets"
	"github.com/mamadbah2/inventory/internal/scheduler"
	"github.com/mamadbah2/inventory/internal/server/handlers"
	"github.com/mamadbah2/inventory/internal/server/router"
	expirysvc "github.com/mamadbah2/inventory/internal/service/expiry"
	inventorysvc "github.com/mamadbah2/inventory/internal/service/inventory"
	"github.com/mamadbah2/inventory/pkg/clients/notifier"
	"github.com/mamadbah2/inventory/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	// Amounts and prices are JSON numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true

	store, err := openStore(context.Background(), cfg)
	if err != nil {
		baseLogger.Fatal("failed to init document store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close document store", zap.Error(err))
		}
	}()

	inventorySvc, err := inventorysvc.NewService(context.Background(), store, baseLogger.Named("svc.inventory"))
	if err != nil {
		baseLogger.Fatal("failed to init inventory service", zap.Error(err))
	}

	var webhook notifier.Client
	if cfg.Expiry.WebhookURL != "" {
		webhook = notifier.NewClient(cfg.Expiry)
		baseLogger.Info("expiry webhook enabled")
	} else {
		baseLogger.Warn("expiry webhook url missing, digests disabled")
	}

	var sheetsRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		repo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetsRepo = repo
	}

	expirySvc := expirysvc.NewService(inventorySvc, webhook, sheetsRepo, baseLogger.Named("svc.expiry"))

	sched, err := scheduler.NewScheduler(cfg.Expiry, expirySvc, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	inventoryHandler := handlers.NewInventoryHandler(inventorySvc, baseLogger.Named("handlers.inventory"))
	engine := router.New(inventoryHandler, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config) (repository.DocumentStore, error) {
	if cfg.Store.Driver == config.DriverMemory {
		return memory.NewStore(), nil
	}
	return mongodb.NewMongoDBRepository(ctx, cfg.MongoDB)
}
