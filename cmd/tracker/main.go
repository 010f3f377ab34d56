package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/otzarri/fleetplan/internal/adapters/nats"
	"github.com/otzarri/fleetplan/internal/adapters/postgres"
	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/core/ports"
	"github.com/otzarri/fleetplan/internal/core/usecases"
	"github.com/otzarri/fleetplan/internal/pkg/config"
	"github.com/otzarri/fleetplan/internal/pkg/logging"
	"github.com/otzarri/fleetplan/internal/pkg/metrics"
)

// feedResponse is the telematics gateway's poll payload.
type feedResponse struct {
	Positions []domain.VehiclePosition `json:"positions"`
}

func main() {
	cfg, err := config.Load("fleetplan-tracker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("fleetplan-tracker", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Without a feed URL the tracker runs as a JetStream consumer instead:
	// agents publish positions to the broker and this process persists them.
	if cfg.Tracker.FeedURL == "" {
		runConsumer(ctx, cfg, db)
		return
	}

	// NATS
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, positions will not be relayed", "error", err)
	} else {
		defer pub.Close()
	}

	// A typed-nil publisher behind the interface would defeat the
	// service's nil check, so only assign when the connect succeeded.
	var publisher ports.EventPublisher
	if pub != nil {
		publisher = pub
	}
	tracker := usecases.NewTrackerService(postgres.NewVehiclePositionRepo(db), publisher)

	client := &http.Client{Timeout: 30 * time.Second}
	pollInterval := time.Duration(cfg.Tracker.PollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	slog.Info("tracker poller starting", "feed", cfg.Tracker.FeedURL, "interval", pollInterval.String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Run once immediately
	poll(ctx, tracker, client, cfg.Tracker.FeedURL)

	for {
		select {
		case <-ticker.C:
			poll(ctx, tracker, client, cfg.Tracker.FeedURL)
		case <-ctx.Done():
			return
		case sig := <-quit:
			slog.Info("shutting down tracker poller", "signal", sig.String())
			cancel()
			// Give the in-flight poll time to finish
			time.Sleep(2 * time.Second)
			return
		}
	}
}

// runConsumer drains vehicle positions from JetStream into the database.
// Positions arriving this way were already published, so the tracker service
// is given no publisher and will not echo them back onto the broker.
func runConsumer(ctx context.Context, cfg *config.Config, db *postgres.DB) {
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	tracker := usecases.NewTrackerService(postgres.NewVehiclePositionRepo(db), nil)

	err = sub.SubscribeVehiclePositions(ctx, func(ctx context.Context, vp *domain.VehiclePosition) error {
		if err := tracker.ProcessPosition(ctx, vp); err != nil {
			return err
		}
		metrics.PositionsIngested.Inc()
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("tracker consumer started", "nats", cfg.NATS.URL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutting down tracker consumer", "signal", sig.String())
}

func poll(ctx context.Context, tracker *usecases.TrackerService, client *http.Client, feedURL string) {
	start := time.Now()

	positions, err := fetchFeed(ctx, client, feedURL)
	metrics.FeedPollDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FeedPollErrors.Inc()
		slog.Error("feed poll failed", "error", err)
		return
	}
	if len(positions) == 0 {
		return
	}

	accepted, err := tracker.ProcessBatch(ctx, positions)
	if err != nil {
		slog.Error("store positions", "error", err)
		return
	}
	metrics.PositionsIngested.Add(float64(accepted))
	slog.Info("positions ingested", "received", len(positions), "accepted", accepted)
}

func fetchFeed(ctx context.Context, client *http.Client, feedURL string) ([]domain.VehiclePosition, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, feedURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	// The gateway wraps positions in an envelope; older firmware sends a
	// bare array.
	var envelope feedResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Positions != nil {
		return envelope.Positions, nil
	}
	var bare []domain.VehiclePosition
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return bare, nil
}
