package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/pawdesk/messaging-core/internal/messaging_service/app"
	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
	"github.com/pawdesk/messaging-core/internal/messaging_service/middleware"
	"github.com/pawdesk/messaging-core/internal/messaging_service/provider"
	"github.com/pawdesk/messaging-core/internal/messaging_service/repository/postgres"
	httptransport "github.com/pawdesk/messaging-core/internal/messaging_service/transport/http"
	"github.com/pawdesk/messaging-core/internal/platform/config"
	"github.com/pawdesk/messaging-core/internal/platform/database"
	"github.com/pawdesk/messaging-core/internal/platform/logger"
	"github.com/pawdesk/messaging-core/internal/platform/messagebroker"
)

const serviceName = "messaging_api"

func main() {
	cfg, err := config.Load("./configs", "config.defaults")
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	appLogger.Info("Messaging API starting...", "port", cfg.HTTPPort)

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

	smsProvider := buildProvider(cfg, appLogger)
	appLogger.Info("SMS provider configured", "provider", smsProvider.GetName())

	scanner := app.NewPolicyScanner()
	resolver := app.NewRoutingResolver(threadRepo, windowRepo, numberRepo, appLogger)
	orchestrator := app.NewSendOrchestrator(
		dbPool, threadRepo, numberRepo, eventRepo, violationRepo,
		resolver, scanner, smsProvider, natsClient, cfg.AuditSubjectRoot, appLogger,
	)

	messageHandler := httptransport.NewMessageHandler(orchestrator, resolver, cfg.EnableDebugEndpoints, appLogger)
	violationHandler := httptransport.NewViolationHandler(violationRepo, dbPool, appLogger)
	numberHandler := httptransport.NewNumberHandler(numberRepo, appLogger)

	authMW := middleware.AuthMiddleware(cfg.JWTAccessSecret, appLogger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(httptransport.PrometheusMetricsMiddleware)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(authMW)
		messageHandler.RegisterRoutes(v1)

		// Violation review and number lifecycle are owner/admin territory.
		v1.Group(func(adminRouter chi.Router) {
			adminRouter.Use(middleware.RequireRoles(appLogger, domain.RoleOwner, domain.RoleAdmin))
			violationHandler.RegisterRoutes(adminRouter)
			numberHandler.RegisterRoutes(adminRouter)
		})
	})

	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.HTTPPort), Handler: r}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.MetricsPort), Handler: metricsMux}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info(fmt.Sprintf("HTTP server listening on port %d", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		appLogger.Info(fmt.Sprintf("Metrics server listening on port %d", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		appLogger.Info("Shutdown signal received, shutting down HTTP servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("HTTP server shutdown failed", "error", err)
		}
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Messaging API exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Messaging API shut down.")
}

func buildProvider(cfg *config.Config, appLogger *slog.Logger) provider.SMSSenderProvider {
	switch cfg.ProviderName {
	case "openphone":
		return provider.NewOpenPhoneProvider(appLogger, cfg.ProviderAPIURL, cfg.ProviderAPIKey, nil)
	default:
		appLogger.Warn("Using mock SMS provider; outbound messages will not be delivered", "provider", cfg.ProviderName)
		return provider.NewMockSMSProvider(appLogger, false, 0)
	}
}
