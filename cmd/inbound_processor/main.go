package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5"

	"github.com/pawdesk/messaging-core/internal/messaging_service/app"
	"github.com/pawdesk/messaging-core/internal/messaging_service/repository"
	"github.com/pawdesk/messaging-core/internal/messaging_service/repository/postgres"
	"github.com/pawdesk/messaging-core/internal/platform/config"
	"github.com/pawdesk/messaging-core/internal/platform/database"
	"github.com/pawdesk/messaging-core/internal/platform/logger"
	"github.com/pawdesk/messaging-core/internal/platform/messagebroker"
)

const serviceName = "inbound_processor"

func main() {
	cfg, err := config.Load("./configs", "config.defaults")
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	appLogger.Info("Inbound processor starting...", "subject", cfg.InboundSubject)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewDBPool(ctx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Connected to PostgreSQL")

	natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	appLogger.Info("Connected to NATS")

	threadRepo := postgres.NewPgThreadRepository(dbPool, appLogger)
	numberRepo := postgres.NewPgNumberRepository(dbPool, appLogger)
	windowRepo := postgres.NewPgWindowRepository(dbPool, appLogger)
	eventRepo := postgres.NewPgMessageEventRepository(appLogger)
	violationRepo := postgres.NewPgViolationRepository(appLogger)

	inTx := func(ctx context.Context, fn func(tx repository.DBTX) error) error {
		return pgx.BeginFunc(ctx, dbPool, func(tx pgx.Tx) error { return fn(tx) })
	}

	processor := app.NewInboundProcessor(
		threadRepo, numberRepo, windowRepo, eventRepo, violationRepo,
		app.NewPolicyScanner(), natsClient,
		cfg.InboundSubject, cfg.InboundQueueGroup,
		dbPool, inTx, appLogger,
	)

	if err := processor.Start(ctx); err != nil {
		appLogger.Error("Failed to start inbound processor", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	appLogger.Info("Shutdown signal received, stopping inbound processor...")
	processor.Stop()
	appLogger.Info("Inbound processor shut down.")
}
