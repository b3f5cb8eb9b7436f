package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	corepg "github.com/pawsline/relay/internal/core/repository/postgres"
	poolapp "github.com/pawsline/relay/internal/numberpool/app"
	poolpg "github.com/pawsline/relay/internal/numberpool/repository/postgres"
	"github.com/pawsline/relay/internal/platform/clock"
	"github.com/pawsline/relay/internal/platform/config"
	"github.com/pawsline/relay/internal/platform/database"
	"github.com/pawsline/relay/internal/platform/logger"
	"github.com/pawsline/relay/internal/platform/messagebroker"
	"github.com/pawsline/relay/internal/reconciler/adapters/directory"
	"github.com/pawsline/relay/internal/reconciler/adapters/transport"
	reconcilerapp "github.com/pawsline/relay/internal/reconciler/app"
	reconcilerpg "github.com/pawsline/relay/internal/reconciler/repository/postgres"
	apihttp "github.com/pawsline/relay/internal/relay_api/transport/http"
	routingapp "github.com/pawsline/relay/internal/routing/app"
	routingpg "github.com/pawsline/relay/internal/routing/repository/postgres"
)

const serviceName = "relay_api"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewFor(serviceName, cfg.LogLevel)
	appLogger.Info("relay API starting", "port", cfg.APIPort)

	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("connected to PostgreSQL")

	natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		appLogger.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	appLogger.Info("connected to NATS")

	clk := clock.System()

	threadRepo := corepg.NewPgThreadRepository(appLogger)
	windowRepo := routingpg.NewPgWindowRepository(appLogger)
	overrideRepo := routingpg.NewPgOverrideRepository(appLogger)
	decisionLogRepo := routingpg.NewPgDecisionLogRepository(appLogger)
	numberRepo := poolpg.NewPgNumberRepository(appLogger)
	settingsRepo := poolpg.NewPgSettingsRepository(appLogger)
	messageRepo := reconcilerpg.NewPgMessageRepository(appLogger)

	routingService := routingapp.NewRoutingService(
		dbPool, threadRepo, windowRepo, overrideRepo, decisionLogRepo,
		clk, natsClient, cfg.DecisionRecordedSubject, appLogger,
	)
	windowService := routingapp.NewWindowService(dbPool, windowRepo, routingService, clk, appLogger)
	overrideService := routingapp.NewOverrideService(dbPool, overrideRepo, routingService, clk, appLogger)

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	allocatorService := poolapp.NewAllocatorService(dbPool, numberRepo, threadRepo, settingsRepo, clk, rnd, appLogger)
	settingsService := poolapp.NewSettingsService(dbPool, settingsRepo, appLogger)

	var messageTransport transport.MessageTransport
	if cfg.ProviderBaseURL != "" {
		messageTransport = transport.NewHTTPTransport(appLogger, cfg.ProviderName, cfg.ProviderBaseURL, cfg.ProviderAPIToken, nil)
	} else {
		appLogger.Warn("no provider base URL configured, using mock transport")
		messageTransport = transport.NewMockTransport(appLogger)
	}
	clientDirectory := directory.NewStaticDirectory()

	senderService := reconcilerapp.NewSenderService(
		dbPool, messageRepo, threadRepo, numberRepo, routingService,
		clientDirectory, messageTransport, clk, cfg.MaxSendAttempts, appLogger,
	)
	inboundService := reconcilerapp.NewInboundService(
		dbPool, messageRepo, threadRepo, numberRepo, routingService,
		clientDirectory, messageTransport, clk, appLogger,
	)
	bookingProcessor := reconcilerapp.NewBookingProcessor(
		dbPool, threadRepo, windowRepo, routingService, clk, appLogger,
	)

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Routing:   routingService,
		Windows:   windowService,
		Overrides: overrideService,
		Allocator: allocatorService,
		Settings:  settingsService,
		Sender:    senderService,
		Bookings:  bookingProcessor,
		Inbound:   inboundService,
		Logger:    appLogger,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.APIPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quitChan := make(chan os.Signal, 1)
		signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quitChan:
			appLogger.Info("shutdown signal received", "signal", sig.String())
		case <-groupCtx.Done():
		}

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelShutdown()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("relay API exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("relay API shut down")
}
