package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	corepg "github.com/pawsline/relay/internal/core/repository/postgres"
	"github.com/pawsline/relay/internal/platform/clock"
	"github.com/pawsline/relay/internal/platform/config"
	"github.com/pawsline/relay/internal/platform/database"
	"github.com/pawsline/relay/internal/platform/logger"
	"github.com/pawsline/relay/internal/platform/messagebroker"
	reconcilerapp "github.com/pawsline/relay/internal/reconciler/app"
	reconcilerdomain "github.com/pawsline/relay/internal/reconciler/domain"
	routingapp "github.com/pawsline/relay/internal/routing/app"
	routingpg "github.com/pawsline/relay/internal/routing/repository/postgres"
)

const serviceName = "booking_consumer"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewFor(serviceName, cfg.LogLevel)
	appLogger.Info("booking consumer starting",
		"confirmed_subject", cfg.BookingConfirmedSubject,
		"cancelled_subject", cfg.BookingCancelledSubject,
		"queue_group", cfg.BookingQueueGroup,
	)

	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		appLogger.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()

	clk := clock.System()
	threadRepo := corepg.NewPgThreadRepository(appLogger)
	windowRepo := routingpg.NewPgWindowRepository(appLogger)
	overrideRepo := routingpg.NewPgOverrideRepository(appLogger)
	decisionLogRepo := routingpg.NewPgDecisionLogRepository(appLogger)

	routingService := routingapp.NewRoutingService(
		dbPool, threadRepo, windowRepo, overrideRepo, decisionLogRepo,
		clk, natsClient, cfg.DecisionRecordedSubject, appLogger,
	)
	processor := reconcilerapp.NewBookingProcessor(
		dbPool, threadRepo, windowRepo, routingService, clk, appLogger,
	)

	confirmedSub, err := natsClient.Subscribe(mainCtx, cfg.BookingConfirmedSubject, cfg.BookingQueueGroup, func(msg *nats.Msg) {
		var ev reconcilerdomain.BookingConfirmedEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			appLogger.ErrorContext(mainCtx, "malformed booking confirmed event", "subject", msg.Subject, "error", err)
			return
		}
		result, err := processor.ProcessConfirmed(mainCtx, ev)
		if err != nil {
			appLogger.ErrorContext(mainCtx, "booking confirmed event failed", "event_id", ev.EventID, "booking_id", ev.BookingID, "error", err)
			return
		}
		appLogger.InfoContext(mainCtx, "booking confirmed event processed",
			"event_id", ev.EventID, "thread_id", result.ThreadID,
			"thread_created", result.ThreadCreated, "window_created", result.WindowCreated,
		)
	})
	if err != nil {
		appLogger.Error("failed to subscribe to booking confirmed subject", "error", err)
		os.Exit(1)
	}
	defer confirmedSub.Unsubscribe()

	cancelledSub, err := natsClient.Subscribe(mainCtx, cfg.BookingCancelledSubject, cfg.BookingQueueGroup, func(msg *nats.Msg) {
		var ev reconcilerdomain.BookingCancelledEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			appLogger.ErrorContext(mainCtx, "malformed booking cancelled event", "subject", msg.Subject, "error", err)
			return
		}
		if err := processor.ProcessCancelled(mainCtx, ev); err != nil {
			appLogger.ErrorContext(mainCtx, "booking cancelled event failed", "event_id", ev.EventID, "booking_id", ev.BookingID, "error", err)
			return
		}
		appLogger.InfoContext(mainCtx, "booking cancelled event processed", "event_id", ev.EventID, "booking_id", ev.BookingID)
	})
	if err != nil {
		appLogger.Error("failed to subscribe to booking cancelled subject", "error", err)
		os.Exit(1)
	}
	defer cancelledSub.Unsubscribe()

	appLogger.Info("booking consumer running")
	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
	<-quitChan
	appLogger.Info("shutdown signal received, draining subscriptions")
}
