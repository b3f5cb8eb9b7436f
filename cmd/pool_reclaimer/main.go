package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	corepg "github.com/pawsline/relay/internal/core/repository/postgres"
	poolapp "github.com/pawsline/relay/internal/numberpool/app"
	poolpg "github.com/pawsline/relay/internal/numberpool/repository/postgres"
	"github.com/pawsline/relay/internal/platform/clock"
	"github.com/pawsline/relay/internal/platform/config"
	"github.com/pawsline/relay/internal/platform/database"
	"github.com/pawsline/relay/internal/platform/logger"
)

const serviceName = "pool_reclaimer"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewFor(serviceName, cfg.LogLevel)
	appLogger.Info("pool reclaimer starting", "schedule", cfg.ReclaimerSchedule)

	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	threadRepo := corepg.NewPgThreadRepository(appLogger)
	numberRepo := poolpg.NewPgNumberRepository(appLogger)
	settingsRepo := poolpg.NewPgSettingsRepository(appLogger)

	reclaimer := poolapp.NewReclaimerService(dbPool, numberRepo, threadRepo, settingsRepo, clock.System(), appLogger)

	c := cron.New()
	_, err = c.AddFunc(cfg.ReclaimerSchedule, func() {
		released, err := reclaimer.Sweep(mainCtx)
		if err != nil {
			appLogger.ErrorContext(mainCtx, "reclamation sweep failed", "error", err)
			return
		}
		if released > 0 {
			appLogger.InfoContext(mainCtx, "reclamation sweep released numbers", "released", released)
		}
	})
	if err != nil {
		appLogger.Error("invalid reclaimer schedule", "schedule", cfg.ReclaimerSchedule, "error", err)
		os.Exit(1)
	}

	c.Start()
	appLogger.Info("pool reclaimer running")

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
	<-quitChan

	appLogger.Info("shutdown signal received, stopping scheduler")
	<-c.Stop().Done()
	appLogger.Info("pool reclaimer shut down")
}
