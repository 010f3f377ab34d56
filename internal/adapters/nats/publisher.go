package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/otzarri/fleetplan/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "FLEET_POSITIONS",
			Subjects:  []string{"fleet.vehicle.>"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "FLEET_ROUTES",
			Subjects:  []string{"fleet.route.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist — try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// routeComputedEvent is the payload published when a session's route is
// recomputed. The full geometry stays in the database; subscribers refetch.
type routeComputedEvent struct {
	SessionID       string `json:"session_id"`
	LengthMeters    int    `json:"length_meters"`
	DurationSeconds int    `json:"duration_seconds"`
	Cleared         bool   `json:"cleared"`
}

func (p *Publisher) PublishRouteComputed(ctx context.Context, sessionID string, route *domain.AssembledRoute) error {
	event := routeComputedEvent{SessionID: sessionID, Cleared: route == nil}
	if route != nil {
		event.LengthMeters = route.LengthMeters
		event.DurationSeconds = route.DurationSeconds
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("fleet.route.computed."+sessionID, data)
	return err
}

func (p *Publisher) PublishVehiclePosition(ctx context.Context, vp *domain.VehiclePosition) error {
	data, err := json.Marshal(vp)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("fleet.vehicle."+vp.VehicleID, data)
	return err
}

func (p *Publisher) PublishBroadcast(ctx context.Context, data []byte) error {
	return p.conn.Publish("fleet.updates.broadcast", data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
