package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/otzarri/fleetplan/internal/adapters/hereapi"
	"github.com/otzarri/fleetplan/internal/adapters/http"
	natsadapter "github.com/otzarri/fleetplan/internal/adapters/nats"
	"github.com/otzarri/fleetplan/internal/adapters/postgres"
	"github.com/otzarri/fleetplan/internal/adapters/valkey"
	"github.com/otzarri/fleetplan/internal/core/ports"
	"github.com/otzarri/fleetplan/internal/core/usecases"
	"github.com/otzarri/fleetplan/internal/pkg/config"
	"github.com/otzarri/fleetplan/internal/pkg/logging"
	"github.com/otzarri/fleetplan/internal/pkg/metrics"
	"github.com/otzarri/fleetplan/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("fleetplan-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("fleetplan-api", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
	}

	// NATS
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Routing provider
	provider := hereapi.New(
		cfg.Provider.BaseURL,
		cfg.Provider.APIKey,
		time.Duration(cfg.Provider.TimeoutSeconds)*time.Second,
		cfg.Provider.MaxRetries,
	)

	// Repos
	sessionRepo := postgres.NewSessionRepo(db)
	settingsRepo := postgres.NewSettingsRepo(db)
	vehicleRepo := postgres.NewVehiclePositionRepo(db)
	reportRepo := postgres.NewTollReportRepo(db)

	// Optional collaborators are passed as untyped nils when unavailable so
	// the services' nil checks work.
	var routeCache ports.CacheService
	if cache != nil {
		routeCache = cache
	}
	var publisher ports.EventPublisher
	if pub != nil {
		publisher = pub
	}

	// Use cases
	sessionSvc := usecases.NewSessionService(sessionRepo)
	settingsSvc := usecases.NewSettingsService(settingsRepo)
	plannerSvc := usecases.NewPlannerService(sessionRepo, provider, settingsSvc, routeCache, publisher)
	trackerSvc := usecases.NewTrackerService(vehicleRepo, publisher)

	deps := &http.Dependencies{
		Sessions: sessionSvc,
		Planner:  plannerSvc,
		Settings: settingsSvc,
		Tracker:  trackerSvc,
		Reports:  reportRepo,
		NATS:     natsConn,
		DB:       db,
		Cache:    cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "FleetPlan API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.fleetplan.io",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Export pgx pool gauges
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
