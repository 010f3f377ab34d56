package ports

import (
	"context"
	"time"

	"github.com/otzarri/fleetplan/internal/core/domain"
)

// SessionRepository persists route-edit sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.PlanSession) error
	Get(ctx context.Context, id string) (*domain.PlanSession, error)
	List(ctx context.Context) ([]domain.PlanSession, error)
	Update(ctx context.Context, session *domain.PlanSession) error
	Delete(ctx context.Context, id string) error

	// BumpGeneration atomically increments the session's generation counter
	// and returns the new value. Every route fetch starts with a bump.
	BumpGeneration(ctx context.Context, id string) (int64, error)

	// StoreRoute attaches an assembled route to a session only if the given
	// generation is still current, and reports whether it was applied.
	// A false return means a newer fetch superseded this one.
	StoreRoute(ctx context.Context, id string, generation int64, route *domain.AssembledRoute) (bool, error)
}

// SettingsRepository is an opaque key-value store for dashboard settings.
// Values are stored as-is; encoding is the caller's concern.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ErrNotFound is returned by repositories for missing records. Declared here
// so usecases do not depend on storage drivers.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "not found" }

// VehiclePositionRepository persists real-time vehicle positions.
type VehiclePositionRepository interface {
	Insert(ctx context.Context, vp *domain.VehiclePosition) error
	InsertBatch(ctx context.Context, vps []domain.VehiclePosition) error
	Latest(ctx context.Context, limit int) ([]domain.VehiclePosition, error)
	History(ctx context.Context, vehicleID string, since time.Time, limit int) ([]domain.VehiclePosition, error)
}

// TollReportRepository persists aggregated toll reports.
type TollReportRepository interface {
	Store(ctx context.Context, report *domain.TollReport) error
	Delete(ctx context.Context, id string) error
	Latest(ctx context.Context) (*domain.TollReport, error)
}
