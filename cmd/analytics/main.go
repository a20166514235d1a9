package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	analysisjob "github.com/orderhub-lab/orderhub-analytics/internal/analysis"
	"github.com/orderhub-lab/orderhub-analytics/internal/config"
	"github.com/orderhub-lab/orderhub-analytics/internal/core/storage/postgres"
	"github.com/orderhub-lab/orderhub-analytics/internal/migrations"
	"github.com/orderhub-lab/orderhub-analytics/internal/projection"
	revenuejob "github.com/orderhub-lab/orderhub-analytics/internal/revenue"
	"github.com/orderhub-lab/orderhub-analytics/internal/scheduler"
	"github.com/orderhub-lab/orderhub-analytics/internal/server"
)

func main() {
	configPath := flag.String("config", "orderhub.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	loc, err := cfg.Analytics.Location()
	if err != nil {
		slog.Error("Failed to resolve timezone", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 2.1. Run Database Migrations
	if err := migrations.Run(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// 3. Initialize Storage Adapters
	salesSource := postgres.NewSalesAdapter(dbAdapter.DB(), loc)
	referenceStore := postgres.NewReferenceAdapter(dbAdapter.DB())
	analysisStore := postgres.NewAnalysisAdapter(dbAdapter.DB(), loc)
	coordinator := postgres.NewCoordinator(dbAdapter.DB())

	// 4. Initialize Jobs
	analysisRunner := analysisjob.NewRunner(
		salesSource,
		referenceStore,
		analysisStore,
		coordinator,
		loc,
		cfg.Analytics.WorkerCount,
	)
	var revenueRunner scheduler.RevenueJobs
	if cfg.Revenue.Enabled {
		revenueRunner = revenuejob.NewRunner(salesSource, coordinator, loc)
	} else {
		slog.Info("Revenue refresh disabled by config")
	}

	sched := scheduler.New(
		analysisRunner,
		revenueRunner,
		cfg.Analytics.BootstrapDelayDuration(),
		cfg.Analytics.RefreshClock(),
		cfg.Revenue.RefreshClock(),
		loc,
	)

	// 5. Initialize Projection (query API)
	projectionSvc := projection.NewService(analysisStore, referenceStore, analysisStore, loc)

	// 6. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), dbAdapter.DB(), cfg.Server.Mode)
	projectionSvc.RegisterRoutes(srv.Engine)

	// 7. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Analytics.Enabled {
		go func() {
			if err := sched.Start(ctx); err != nil {
				slog.Error("Scheduler stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Analytics scheduler disabled by config")
	}

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
