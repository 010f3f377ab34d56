package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/otzarri/fleetplan/internal/adapters/nats"
	"github.com/otzarri/fleetplan/internal/adapters/postgres"
	"github.com/otzarri/fleetplan/internal/core/ports"
	"github.com/otzarri/fleetplan/internal/pkg/config"
	"github.com/otzarri/fleetplan/internal/pkg/logging"
	"github.com/otzarri/fleetplan/internal/workflows"
)

func main() {
	cfg, err := config.Load("fleetplan-reporter")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("fleetplan-reporter", logLevel, "json")

	ctx := context.Background()

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// NATS (optional: reports still get stored without a broadcast target)
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, reports will not be broadcast", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.TollReportWorkflow)
	w.RegisterActivity(&workflows.TollReportActivities{
		Sessions:  postgres.NewSessionRepo(db),
		Reports:   postgres.NewTollReportRepo(db),
		Publisher: publisher,
	})

	slog.Info("reporter worker started", "taskQueue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
