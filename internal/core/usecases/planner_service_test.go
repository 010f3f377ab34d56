package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/core/ports"
	"github.com/otzarri/fleetplan/internal/core/usecases"
	"github.com/otzarri/fleetplan/internal/pkg/flexpolyline"
)

// --- Mock RouteProvider ---

type mockProvider struct {
	fetchFn func(ctx context.Context, req ports.RouteRequest) ([]domain.RouteSection, error)
}

func (m *mockProvider) FetchRoute(ctx context.Context, req ports.RouteRequest) ([]domain.RouteSection, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, req)
	}
	return nil, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	routeComputed int
	positions     int
}

func (m *mockPublisher) PublishRouteComputed(ctx context.Context, sessionID string, route *domain.AssembledRoute) error {
	m.routeComputed++
	return nil
}

func (m *mockPublisher) PublishVehiclePosition(ctx context.Context, vp *domain.VehiclePosition) error {
	m.positions++
	return nil
}

func (m *mockPublisher) PublishBroadcast(ctx context.Context, data []byte) error { return nil }

// --- Mock CacheService ---

type mockCache struct {
	store map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{store: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := m.store[key]; ok {
		return data, nil
	}
	return nil, errors.New("cache miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.store[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.store, key)
	return nil
}

func mustEncode(t *testing.T, pts []flexpolyline.Point) string {
	t.Helper()
	s, err := flexpolyline.Encode(pts, 5)
	if err != nil {
		t.Fatalf("encode polyline: %v", err)
	}
	return s
}

func plannerFixture(session *domain.PlanSession, provider *mockProvider) (*usecases.PlannerService, *mockSessionRepo, *mockPublisher) {
	repo := &mockSessionRepo{
		getFn: func(ctx context.Context, id string) (*domain.PlanSession, error) {
			return session, nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewPlannerService(repo, provider, nil, nil, pub)
	return svc, repo, pub
}

func routableSession() *domain.PlanSession {
	return &domain.PlanSession{
		ID:          "sess-1",
		Origin:      &domain.GeoPoint{Lat: 0, Lon: 0},
		Destination: &domain.GeoPoint{Lat: 10, Lon: 10},
		Waypoints: []domain.Waypoint{
			{ID: "far", Location: domain.GeoPoint{Lat: 9, Lon: 9}},
			{ID: "near", Location: domain.GeoPoint{Lat: 1, Lon: 1}},
		},
		Shapes: []domain.Shape{
			{ID: "a", Kind: domain.ShapeRectangle, West: -5, South: 0, East: 5, North: 10},
		},
	}
}

func TestPlannerService_GenerateRoute(t *testing.T) {
	session := routableSession()
	var gotReq ports.RouteRequest
	provider := &mockProvider{
		fetchFn: func(ctx context.Context, req ports.RouteRequest) ([]domain.RouteSection, error) {
			gotReq = req
			return []domain.RouteSection{{
				Polyline: mustEncode(t, []flexpolyline.Point{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}),
				Summary:  domain.SectionSummary{LengthMeters: 1000, DurationSeconds: 60},
			}}, nil
		},
	}
	svc, _, pub := plannerFixture(session, provider)

	route, err := svc.GenerateRoute(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(route.Coordinates) != 2 {
		t.Fatalf("expected 2 coordinates, got %d", len(route.Coordinates))
	}

	// Waypoints must reach the provider nearest-first, not in insert order.
	if len(gotReq.Via) != 2 || gotReq.Via[0].Lat != 1 || gotReq.Via[1].Lat != 9 {
		t.Errorf("expected via points ordered nearest-first, got %v", gotReq.Via)
	}
	if len(gotReq.AvoidAreas) != 1 || !strings.HasPrefix(gotReq.AvoidAreas[0], "bbox:") {
		t.Errorf("expected one bbox avoid token, got %v", gotReq.AvoidAreas)
	}
	if pub.routeComputed != 1 {
		t.Errorf("expected 1 route-computed event, got %d", pub.routeComputed)
	}
}

func TestPlannerService_SupersededResultDiscarded(t *testing.T) {
	session := routableSession()
	provider := &mockProvider{
		fetchFn: func(ctx context.Context, req ports.RouteRequest) ([]domain.RouteSection, error) {
			return []domain.RouteSection{{
				Polyline: mustEncode(t, []flexpolyline.Point{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}),
			}}, nil
		},
	}
	svc, repo, pub := plannerFixture(session, provider)
	repo.storeRouteFn = func(ctx context.Context, id string, generation int64, route *domain.AssembledRoute) (bool, error) {
		return false, nil // a newer fetch already landed
	}

	_, err := svc.GenerateRoute(context.Background(), "sess-1")
	if !errors.Is(err, usecases.ErrRouteSuperseded) {
		t.Fatalf("expected ErrRouteSuperseded, got %v", err)
	}
	if pub.routeComputed != 0 {
		t.Errorf("expected no event for a superseded result, got %d", pub.routeComputed)
	}
}

func TestPlannerService_ProviderFailureClearsRoute(t *testing.T) {
	session := routableSession()
	provider := &mockProvider{
		fetchFn: func(ctx context.Context, req ports.RouteRequest) ([]domain.RouteSection, error) {
			return nil, errors.New("upstream 502")
		},
	}
	svc, repo, _ := plannerFixture(session, provider)

	var clearedWith *domain.AssembledRoute = &domain.AssembledRoute{} // sentinel
	repo.storeRouteFn = func(ctx context.Context, id string, generation int64, route *domain.AssembledRoute) (bool, error) {
		clearedWith = route
		return true, nil
	}

	_, err := svc.GenerateRoute(context.Background(), "sess-1")
	if err == nil {
		t.Fatal("expected error from failed fetch")
	}
	if clearedWith != nil {
		t.Error("expected stored route cleared to nil on provider failure")
	}
}

func TestPlannerService_NoRouteFound(t *testing.T) {
	session := routableSession()
	provider := &mockProvider{
		fetchFn: func(ctx context.Context, req ports.RouteRequest) ([]domain.RouteSection, error) {
			return nil, nil
		},
	}
	svc, _, _ := plannerFixture(session, provider)

	_, err := svc.GenerateRoute(context.Background(), "sess-1")
	if !errors.Is(err, usecases.ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}

func TestPlannerService_MissingEndpoints(t *testing.T) {
	session := &domain.PlanSession{ID: "sess-1"}
	svc, _, _ := plannerFixture(session, &mockProvider{})

	if _, err := svc.GenerateRoute(context.Background(), "sess-1"); err == nil {
		t.Fatal("expected error for session without endpoints")
	}
}

func TestPlannerService_CacheHitSkipsProvider(t *testing.T) {
	session := routableSession()
	calls := 0
	provider := &mockProvider{
		fetchFn: func(ctx context.Context, req ports.RouteRequest) ([]domain.RouteSection, error) {
			calls++
			return []domain.RouteSection{{
				Polyline: mustEncode(t, []flexpolyline.Point{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}),
			}}, nil
		},
	}
	repo := &mockSessionRepo{
		getFn: func(ctx context.Context, id string) (*domain.PlanSession, error) {
			return session, nil
		},
	}
	svc := usecases.NewPlannerService(repo, provider, nil, newMockCache(), &mockPublisher{})
	ctx := context.Background()

	if _, err := svc.GenerateRoute(ctx, "sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GenerateRoute(ctx, "sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single provider call for identical inputs, got %d", calls)
	}
}
