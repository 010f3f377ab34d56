package ports

import (
	"context"

	"github.com/otzarri/fleetplan/internal/core/domain"
)

// RouteRequest is everything the routing provider needs for one route
// computation. Waypoints are already in travel order and avoid areas are
// already encoded; building both is the planner's job, not the adapter's.
type RouteRequest struct {
	Origin      domain.GeoPoint
	Destination domain.GeoPoint
	Via         []domain.GeoPoint
	AvoidAreas  []string // encoded tokens, sent pipe-joined as one parameter
	TollProfile *domain.TollProfile
}

// RouteProvider calls the external routing/tolling service and returns the
// raw per-leg sections for assembly. A nil error with zero sections means
// the provider found no route.
type RouteProvider interface {
	FetchRoute(ctx context.Context, req RouteRequest) ([]domain.RouteSection, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRouteComputed(ctx context.Context, sessionID string, route *domain.AssembledRoute) error
	PublishVehiclePosition(ctx context.Context, vp *domain.VehiclePosition) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeVehiclePositions(ctx context.Context, handler func(ctx context.Context, vp *domain.VehiclePosition) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
