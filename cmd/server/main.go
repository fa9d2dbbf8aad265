package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/partsdesk/internal/config"
	"github.com/mamadbah2/partsdesk/internal/metrics"
	"github.com/mamadbah2/partsdesk/internal/repository/mongodb"
	"github.com/mamadbah2/partsdesk/internal/repository/sheets"
	"github.com/mamadbah2/partsdesk/internal/scheduler"
	"github.com/mamadbah2/partsdesk/internal/server/handlers"
	"github.com/mamadbah2/partsdesk/internal/server/router"
	exportsvc "github.com/mamadbah2/partsdesk/internal/service/export"
	inventorysvc "github.com/mamadbah2/partsdesk/internal/service/inventory"
	"github.com/mamadbah2/partsdesk/internal/service/mutations"
	"github.com/mamadbah2/partsdesk/internal/service/notify"
	inventoryclient "github.com/mamadbah2/partsdesk/pkg/clients/inventory"
	"github.com/mamadbah2/partsdesk/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	var snapshotRepo mongodb.Repository
	if cfg.MongoDB.Enabled() {
		mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		snapshotRepo = mongoRepo
	} else {
		baseLogger.Warn("MONGODB_URI missing, snapshot history disabled")
	}

	var sheetsRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		sheetsRepo, err = sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
	} else {
		baseLogger.Warn("GOOGLE_SHEET_DATABASE_ID missing, sheets export disabled")
	}

	var m *metrics.Metrics
	var queueObserver mutations.Observer
	var recorder inventorysvc.Recorder
	if cfg.Metrics.Enabled {
		m = metrics.New()
		queueObserver = m
		recorder = m
	}

	apiClient := inventoryclient.NewClient(cfg.InventoryAPI)
	feed := notify.NewFeed(cfg.Dashboard.NotificationLimit)
	queue := mutations.NewQueue(baseLogger.Named("queue"), queueObserver)
	defer queue.Close()

	store := inventorysvc.NewStore(apiClient, queue, inventorysvc.Options{
		Notifier:          notify.Multi{feed, notify.NewLogNotifier(baseLogger.Named("notify"))},
		Confirmer:         inventorysvc.ContextConfirmer(),
		Recorder:          recorder,
		Logger:            baseLogger.Named("svc.inventory"),
		PerPage:           cfg.Dashboard.PerPage,
		LowStockThreshold: cfg.Dashboard.LowStockThreshold,
	})

	exporter := exportsvc.NewService(apiClient, exportsvc.Options{
		Sheets:     sheetsRepo,
		SheetRange: cfg.Sheets.Range,
		Dir:        cfg.Export.Dir,
		Logger:     baseLogger.Named("svc.export"),
	})

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), cfg.InventoryAPI.Timeout)
	if _, err := store.Refresh(startupCtx); err != nil {
		baseLogger.Warn("initial inventory load failed", zap.Error(err))
	}
	cancelStartup()

	dashboardHandler := handlers.NewDashboardHandler(handlers.Deps{
		Store:     store,
		Sales:     apiClient,
		Exporter:  exporter,
		Feed:      feed,
		Snapshots: snapshotRepo,
		Logger:    baseLogger.Named("handlers.dashboard"),
	})

	var metricsHandler http.Handler
	if m != nil {
		metricsHandler = m.Handler()
	}
	engine := router.New(dashboardHandler, metricsHandler, baseLogger.Named("router"))

	var syncer scheduler.SheetsSyncer
	if sheetsRepo != nil {
		syncer = exporter
	}
	sched, err := scheduler.NewScheduler(cfg.Scheduler, store, snapshotRepo, syncer, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
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
