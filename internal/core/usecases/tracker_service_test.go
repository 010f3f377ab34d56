package usecases_test

import (
	"context"
	"testing"
	"time"

	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/core/usecases"
)

// --- Mock VehiclePositionRepository ---

type mockVehicleRepo struct {
	insertFn      func(ctx context.Context, vp *domain.VehiclePosition) error
	insertBatchFn func(ctx context.Context, vps []domain.VehiclePosition) error
	latestFn      func(ctx context.Context, limit int) ([]domain.VehiclePosition, error)
	historyFn     func(ctx context.Context, vehicleID string, since time.Time, limit int) ([]domain.VehiclePosition, error)
}

func (m *mockVehicleRepo) Insert(ctx context.Context, vp *domain.VehiclePosition) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, vp)
	}
	return nil
}

func (m *mockVehicleRepo) InsertBatch(ctx context.Context, vps []domain.VehiclePosition) error {
	if m.insertBatchFn != nil {
		return m.insertBatchFn(ctx, vps)
	}
	return nil
}

func (m *mockVehicleRepo) Latest(ctx context.Context, limit int) ([]domain.VehiclePosition, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockVehicleRepo) History(ctx context.Context, vehicleID string, since time.Time, limit int) ([]domain.VehiclePosition, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, vehicleID, since, limit)
	}
	return nil, nil
}

func TestTrackerService_ProcessPosition(t *testing.T) {
	var inserted *domain.VehiclePosition
	repo := &mockVehicleRepo{
		insertFn: func(ctx context.Context, vp *domain.VehiclePosition) error {
			inserted = vp
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewTrackerService(repo, pub)

	err := svc.ProcessPosition(context.Background(), &domain.VehiclePosition{
		VehicleID: "truck-42",
		Location:  domain.GeoPoint{Lat: 43.26, Lon: -2.93},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted == nil {
		t.Fatal("expected position to be stored")
	}
	if inserted.Time.IsZero() {
		t.Error("expected missing timestamp to be filled in")
	}
	if pub.positions != 1 {
		t.Errorf("expected 1 published position, got %d", pub.positions)
	}
}

func TestTrackerService_RejectsInvalidPosition(t *testing.T) {
	svc := usecases.NewTrackerService(&mockVehicleRepo{}, &mockPublisher{})
	ctx := context.Background()

	if err := svc.ProcessPosition(ctx, &domain.VehiclePosition{Location: domain.GeoPoint{Lat: 1, Lon: 1}}); err == nil {
		t.Error("expected error for missing vehicle id")
	}
	if err := svc.ProcessPosition(ctx, &domain.VehiclePosition{VehicleID: "v", Location: domain.GeoPoint{Lat: 95, Lon: 0}}); err == nil {
		t.Error("expected error for out-of-range location")
	}
}

func TestTrackerService_BatchSkipsInvalid(t *testing.T) {
	var batch []domain.VehiclePosition
	repo := &mockVehicleRepo{
		insertBatchFn: func(ctx context.Context, vps []domain.VehiclePosition) error {
			batch = vps
			return nil
		},
	}
	svc := usecases.NewTrackerService(repo, &mockPublisher{})

	n, err := svc.ProcessBatch(context.Background(), []domain.VehiclePosition{
		{VehicleID: "a", Location: domain.GeoPoint{Lat: 1, Lon: 1}},
		{Location: domain.GeoPoint{Lat: 2, Lon: 2}},                  // no id
		{VehicleID: "c", Location: domain.GeoPoint{Lat: 99, Lon: 0}}, // out of range
		{VehicleID: "d", Location: domain.GeoPoint{Lat: 3, Lon: 3}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 || len(batch) != 2 {
		t.Fatalf("expected 2 valid positions, got n=%d len=%d", n, len(batch))
	}
	if batch[0].VehicleID != "a" || batch[1].VehicleID != "d" {
		t.Errorf("unexpected batch contents: %v", batch)
	}
}

func TestTrackerService_HistoryRequiresVehicle(t *testing.T) {
	svc := usecases.NewTrackerService(&mockVehicleRepo{}, &mockPublisher{})
	if _, err := svc.History(context.Background(), "", time.Time{}, 10); err == nil {
		t.Error("expected error for empty vehicle id")
	}
}
