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

	"github.com/poultrypro/backend/internal/auth"
	"github.com/poultrypro/backend/internal/config"
	sheetsexport "github.com/poultrypro/backend/internal/export/sheets"
	"github.com/poultrypro/backend/internal/repository/mongodb"
	"github.com/poultrypro/backend/internal/scheduler"
	"github.com/poultrypro/backend/internal/server/handlers"
	"github.com/poultrypro/backend/internal/server/router"
	"github.com/poultrypro/backend/internal/service/audit"
	eventsvc "github.com/poultrypro/backend/internal/service/events"
	ledgersvc "github.com/poultrypro/backend/internal/service/ledger"
	reportingsvc "github.com/poultrypro/backend/internal/service/reporting"
	"github.com/poultrypro/backend/pkg/clients/advisor"
	"github.com/poultrypro/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store, err := mongodb.New(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongodb"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	ledgerSvc := ledgersvc.NewService(store.Batches(), store.Mortality(), store, baseLogger.Named("svc.ledger"))
	eventsSvc := eventsvc.NewService(store.Batches(), store.Feed(), store.Eggs(), store.Vaccinations(), store, baseLogger.Named("svc.events"))
	reportingSvc := reportingsvc.NewService(store.Batches(), store.Feed(), store.Mortality(), store.Eggs(), store.Vaccinations(),
		reportingsvc.Config{
			UnitEggPrice:           decimal.NewFromFloat(cfg.Reporting.UnitEggPrice),
			AvgEggsPerBirdLifetime: cfg.Reporting.AvgEggsPerBirdLifetime,
		}, baseLogger.Named("svc.reporting"))

	var advisorClient advisor.Client
	if cfg.Advisor.AnthropicKey != "" {
		advisorClient = advisor.NewClient(cfg.Advisor.AnthropicKey)
		baseLogger.Info("advisor api client enabled")
	} else {
		advisorClient = advisor.NewFallback()
		baseLogger.Warn("advisor api key missing, using canned answers")
	}

	var exporter scheduler.ReportExporter
	if cfg.Sheets.Enabled() {
		sheetsExporter, err := sheetsexport.NewExporter(context.Background(), cfg.Sheets, baseLogger.Named("export.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets exporter", zap.Error(err))
		}
		exporter = sheetsExporter
		baseLogger.Info("report export to sheets enabled")
	}

	sched, err := scheduler.NewScheduler(cfg.Scheduler, store.Batches(), store.Vaccinations(), reportingSvc, exporter, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// The audit stream is observability only; it must never block startup.
	go func() {
		watcher := audit.NewWatcher(store.Batches(), baseLogger.Named("svc.audit"))
		if err := watcher.Run(ctx); err != nil {
			baseLogger.Warn("batch audit stream unavailable", zap.Error(err))
		}
	}()

	engine := router.New(router.Handlers{
		Batches: handlers.NewBatchHandler(ledgerSvc, baseLogger.Named("handlers.batches")),
		Events:  handlers.NewEventHandler(eventsSvc, ledgerSvc, baseLogger.Named("handlers.events")),
		Reports: handlers.NewReportHandler(reportingSvc, baseLogger.Named("handlers.reports")),
		Advisor: handlers.NewAdvisorHandler(advisorClient, baseLogger.Named("handlers.advisor")),
	}, tokens, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

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
