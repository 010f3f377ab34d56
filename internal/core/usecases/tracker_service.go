package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/core/ports"
)

// TrackerService processes incoming fleet vehicle positions.
type TrackerService struct {
	vehicles  ports.VehiclePositionRepository
	publisher ports.EventPublisher
}

// NewTrackerService creates a new TrackerService.
func NewTrackerService(vehicles ports.VehiclePositionRepository, publisher ports.EventPublisher) *TrackerService {
	return &TrackerService{vehicles: vehicles, publisher: publisher}
}

// ProcessPosition stores a position and broadcasts it to subscribers.
func (s *TrackerService) ProcessPosition(ctx context.Context, vp *domain.VehiclePosition) error {
	if vp.VehicleID == "" {
		return fmt.Errorf("vehicle position missing vehicle id")
	}
	if !vp.Location.InRange() {
		return fmt.Errorf("vehicle %s position out of range", vp.VehicleID)
	}
	if vp.Time.IsZero() {
		vp.Time = time.Now()
	}

	if err := s.vehicles.Insert(ctx, vp); err != nil {
		return fmt.Errorf("insert vehicle position: %w", err)
	}

	// Serialization is left to the publisher implementation.
	if s.publisher != nil {
		_ = s.publisher.PublishVehiclePosition(ctx, vp)
	}

	return nil
}

// ProcessBatch stores a poll's worth of positions, skipping invalid entries.
func (s *TrackerService) ProcessBatch(ctx context.Context, vps []domain.VehiclePosition) (int, error) {
	valid := make([]domain.VehiclePosition, 0, len(vps))
	for i := range vps {
		vp := vps[i]
		if vp.VehicleID == "" || !vp.Location.InRange() {
			continue
		}
		if vp.Time.IsZero() {
			vp.Time = time.Now()
		}
		valid = append(valid, vp)
	}
	if len(valid) == 0 {
		return 0, nil
	}

	if err := s.vehicles.InsertBatch(ctx, valid); err != nil {
		return 0, fmt.Errorf("insert vehicle positions: %w", err)
	}
	if s.publisher != nil {
		for i := range valid {
			_ = s.publisher.PublishVehiclePosition(ctx, &valid[i])
		}
	}
	return len(valid), nil
}

// LatestPositions returns the most recent position per vehicle.
func (s *TrackerService) LatestPositions(ctx context.Context, limit int) ([]domain.VehiclePosition, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.vehicles.Latest(ctx, limit)
}

// History returns a vehicle's positions since a given time.
func (s *TrackerService) History(ctx context.Context, vehicleID string, since time.Time, limit int) ([]domain.VehiclePosition, error) {
	if vehicleID == "" {
		return nil, fmt.Errorf("vehicle id is required")
	}
	if limit <= 0 || limit > 5000 {
		limit = 1000
	}
	if since.IsZero() {
		since = time.Now().Add(-24 * time.Hour)
	}
	return s.vehicles.History(ctx, vehicleID, since, limit)
}
