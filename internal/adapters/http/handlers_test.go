package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/otzarri/fleetplan/internal/adapters/http"
	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/core/ports"
	"github.com/otzarri/fleetplan/internal/core/usecases"
	"github.com/otzarri/fleetplan/internal/pkg/flexpolyline"
)

// ---- Mock repositories ----

// memSessionRepo is an in-memory ports.SessionRepository.
type memSessionRepo struct {
	sessions     map[string]*domain.PlanSession
	storeRouteFn func(ctx context.Context, id string, generation int64, route *domain.AssembledRoute) (bool, error)
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[string]*domain.PlanSession{}}
}

func (m *memSessionRepo) Create(ctx context.Context, s *domain.PlanSession) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessionRepo) Get(ctx context.Context, id string) (*domain.PlanSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return s, nil
}

func (m *memSessionRepo) List(ctx context.Context) ([]domain.PlanSession, error) {
	var out []domain.PlanSession
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (m *memSessionRepo) Update(ctx context.Context, s *domain.PlanSession) error {
	if _, ok := m.sessions[s.ID]; !ok {
		return ports.ErrNotFound
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessionRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return ports.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memSessionRepo) BumpGeneration(ctx context.Context, id string) (int64, error) {
	s, ok := m.sessions[id]
	if !ok {
		return 0, ports.ErrNotFound
	}
	s.Generation++
	return s.Generation, nil
}

func (m *memSessionRepo) StoreRoute(ctx context.Context, id string, generation int64, route *domain.AssembledRoute) (bool, error) {
	if m.storeRouteFn != nil {
		return m.storeRouteFn(ctx, id, generation, route)
	}
	s, ok := m.sessions[id]
	if !ok {
		return false, ports.ErrNotFound
	}
	if s.Generation != generation {
		return false, nil
	}
	s.LastRoute = route
	return true, nil
}

type mockSettingsRepo struct {
	store map[string]string
}

func newMockSettingsRepo() *mockSettingsRepo { return &mockSettingsRepo{store: map[string]string{}} }

func (m *mockSettingsRepo) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.store[key]
	if !ok {
		return "", ports.ErrNotFound
	}
	return v, nil
}
func (m *mockSettingsRepo) Set(ctx context.Context, key, value string) error {
	m.store[key] = value
	return nil
}
func (m *mockSettingsRepo) Delete(ctx context.Context, key string) error {
	delete(m.store, key)
	return nil
}

type mockVehicleRepo struct {
	inserted []domain.VehiclePosition
	latestFn func(ctx context.Context, limit int) ([]domain.VehiclePosition, error)
}

func (m *mockVehicleRepo) Insert(ctx context.Context, vp *domain.VehiclePosition) error {
	m.inserted = append(m.inserted, *vp)
	return nil
}
func (m *mockVehicleRepo) InsertBatch(ctx context.Context, vps []domain.VehiclePosition) error {
	m.inserted = append(m.inserted, vps...)
	return nil
}
func (m *mockVehicleRepo) Latest(ctx context.Context, limit int) ([]domain.VehiclePosition, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx, limit)
	}
	return nil, nil
}
func (m *mockVehicleRepo) History(ctx context.Context, vehicleID string, since time.Time, limit int) ([]domain.VehiclePosition, error) {
	return nil, nil
}

type mockPublisher struct{}

func (m *mockPublisher) PublishRouteComputed(ctx context.Context, sessionID string, route *domain.AssembledRoute) error {
	return nil
}
func (m *mockPublisher) PublishVehiclePosition(ctx context.Context, vp *domain.VehiclePosition) error {
	return nil
}
func (m *mockPublisher) PublishBroadcast(ctx context.Context, data []byte) error { return nil }

type mockProvider struct {
	fetchFn func(ctx context.Context, req ports.RouteRequest) ([]domain.RouteSection, error)
}

func (m *mockProvider) FetchRoute(ctx context.Context, req ports.RouteRequest) ([]domain.RouteSection, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, req)
	}
	return nil, nil
}

// ---- Test helpers ----

type testEnv struct {
	app      *fiber.App
	sessions *memSessionRepo
	provider *mockProvider
	vehicles *mockVehicleRepo
}

func setupApp(t *testing.T) *testEnv {
	t.Helper()

	sessions := newMemSessionRepo()
	provider := &mockProvider{}
	vehicles := &mockVehicleRepo{}
	settings := usecases.NewSettingsService(newMockSettingsRepo())

	deps := &handler.Dependencies{
		Sessions: usecases.NewSessionService(sessions),
		Planner:  usecases.NewPlannerService(sessions, provider, settings, nil, &mockPublisher{}),
		Settings: settings,
		Tracker:  usecases.NewTrackerService(vehicles, &mockPublisher{}),
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return &testEnv{app: app, sessions: sessions, provider: provider, vehicles: vehicles}
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, b
}

type sessionBody struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Waypoints  []domain.Waypoint `json:"waypoints"`
	Shapes     []domain.Shape   `json:"shapes"`
	Drawing    string           `json:"drawing"`
	AvoidAreas []string         `json:"avoid_areas"`
}

func createSession(t *testing.T, env *testEnv) sessionBody {
	t.Helper()
	status, body := doJSON(t, env.app, "POST", "/v1/sessions",
		`{"name":"dispatch","origin":{"lat":43.26,"lon":-2.93},"destination":{"lat":43.31,"lon":-1.98}}`)
	if status != 201 {
		t.Fatalf("create session: expected 201, got %d: %s", status, body)
	}
	var s sessionBody
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return s
}

// ---- Session handler tests ----

func TestCreateSession(t *testing.T) {
	env := setupApp(t)
	s := createSession(t, env)
	if s.ID == "" {
		t.Error("expected session id")
	}
	if len(s.AvoidAreas) != 0 {
		t.Errorf("expected no avoid areas on a new session, got %v", s.AvoidAreas)
	}
}

func TestListSessions_Pagination(t *testing.T) {
	env := setupApp(t)
	for i := 0; i < 5; i++ {
		doJSON(t, env.app, "POST", "/v1/sessions", fmt.Sprintf(`{"name":"s%d"}`, i))
	}

	status, body := doJSON(t, env.app, "GET", "/v1/sessions?offset=2&limit=2", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	var result struct {
		Data       []json.RawMessage `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 sessions in page, got %d", len(result.Data))
	}
}

func TestGetSession_NotFound(t *testing.T) {
	env := setupApp(t)
	status, body := doJSON(t, env.app, "GET", "/v1/sessions/nope", "")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
	var apiErr struct {
		Code string `json:"code"`
	}
	json.Unmarshal(body, &apiErr)
	if apiErr.Code != "not_found" {
		t.Errorf("expected not_found, got %s", apiErr.Code)
	}
}

func TestAddWaypoint(t *testing.T) {
	env := setupApp(t)
	s := createSession(t, env)

	status, body := doJSON(t, env.app, "POST", "/v1/sessions/"+s.ID+"/waypoints",
		`{"location":{"lat":43.29,"lon":-2.5}}`)
	if status != 201 {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}
	var got sessionBody
	json.Unmarshal(body, &got)
	if len(got.Waypoints) != 1 || got.Waypoints[0].ID == "" {
		t.Errorf("expected 1 waypoint with id, got %+v", got.Waypoints)
	}
}

func TestAddWaypoint_OutOfRange(t *testing.T) {
	env := setupApp(t)
	s := createSession(t, env)

	status, _ := doJSON(t, env.app, "POST", "/v1/sessions/"+s.ID+"/waypoints",
		`{"location":{"lat":91,"lon":0}}`)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
}

// ---- Drawing flow tests ----

func TestDrawingFlow_Rectangle(t *testing.T) {
	env := setupApp(t)
	s := createSession(t, env)

	status, body := doJSON(t, env.app, "POST", "/v1/sessions/"+s.ID+"/drawing", `{"tool":"rectangle"}`)
	if status != 200 {
		t.Fatalf("select tool: expected 200, got %d: %s", status, body)
	}
	var got sessionBody
	json.Unmarshal(body, &got)
	if got.Drawing != "drawing_rectangle" {
		t.Fatalf("expected drawing_rectangle state, got %s", got.Drawing)
	}

	status, body = doJSON(t, env.app, "POST", "/v1/sessions/"+s.ID+"/drawing/complete",
		`{"west":-5,"south":0,"east":5,"north":10}`)
	if status != 201 {
		t.Fatalf("complete: expected 201, got %d: %s", status, body)
	}
	json.Unmarshal(body, &got)
	if got.Drawing != "idle" {
		t.Errorf("expected idle after completion, got %s", got.Drawing)
	}
	if len(got.Shapes) != 1 || got.Shapes[0].Kind != domain.ShapeRectangle {
		t.Fatalf("expected 1 rectangle shape, got %+v", got.Shapes)
	}
	if len(got.AvoidAreas) != 1 || got.AvoidAreas[0] != "bbox:-5,0,5,10" {
		t.Errorf("expected bbox token, got %v", got.AvoidAreas)
	}
}

func TestDrawingFlow_PolygonTooFewPoints(t *testing.T) {
	env := setupApp(t)
	s := createSession(t, env)

	doJSON(t, env.app, "POST", "/v1/sessions/"+s.ID+"/drawing", `{"tool":"polygon"}`)
	status, _ := doJSON(t, env.app, "POST", "/v1/sessions/"+s.ID+"/drawing/complete",
		`{"points":[{"lat":1,"lon":1},{"lat":2,"lon":2}]}`)
	if status != 400 {
		t.Fatalf("expected 400 for a two-point polygon, got %d", status)
	}

	// Drawing state must survive the failed completion.
	_, body := doJSON(t, env.app, "GET", "/v1/sessions/"+s.ID, "")
	var got sessionBody
	json.Unmarshal(body, &got)
	if got.Drawing != "drawing_polygon" {
		t.Errorf("expected drawing_polygon after failed completion, got %s", got.Drawing)
	}
}

func TestDrawingFlow_Cancel(t *testing.T) {
	env := setupApp(t)
	s := createSession(t, env)

	doJSON(t, env.app, "POST", "/v1/sessions/"+s.ID+"/drawing", `{"tool":"circle"}`)
	status, body := doJSON(t, env.app, "DELETE", "/v1/sessions/"+s.ID+"/drawing", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var got sessionBody
	json.Unmarshal(body, &got)
	if got.Drawing != "idle" {
		t.Errorf("expected idle after cancel, got %s", got.Drawing)
	}
	if len(got.Shapes) != 0 {
		t.Errorf("expected no shapes after cancel, got %d", len(got.Shapes))
	}
}

func TestAvoidAreasEndpoint(t *testing.T) {
	env := setupApp(t)
	s := createSession(t, env)

	doJSON(t, env.app, "POST", "/v1/sessions/"+s.ID+"/drawing", `{"tool":"rectangle"}`)
	doJSON(t, env.app, "POST", "/v1/sessions/"+s.ID+"/drawing/complete",
		`{"west":-5,"south":0,"east":5,"north":10}`)
	doJSON(t, env.app, "POST", "/v1/sessions/"+s.ID+"/drawing", `{"tool":"polygon"}`)
	doJSON(t, env.app, "POST", "/v1/sessions/"+s.ID+"/drawing/complete",
		`{"points":[{"lat":1,"lon":1},{"lat":2,"lon":2},{"lat":3,"lon":1}]}`)

	status, body := doJSON(t, env.app, "GET", "/v1/sessions/"+s.ID+"/avoid-areas", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var result struct {
		Tokens []string `json:"tokens"`
		Param  string   `json:"param"`
	}
	json.Unmarshal(body, &result)
	if len(result.Tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %v", result.Tokens)
	}
	if result.Param != "bbox:-5,0,5,10|polygon:1,1;2,2;3,1" {
		t.Errorf("unexpected joined param %q", result.Param)
	}
}

func TestDeleteShape_RegeneratesTokens(t *testing.T) {
	env := setupApp(t)
	s := createSession(t, env)

	doJSON(t, env.app, "POST", "/v1/sessions/"+s.ID+"/drawing", `{"tool":"rectangle"}`)
	_, body := doJSON(t, env.app, "POST", "/v1/sessions/"+s.ID+"/drawing/complete",
		`{"west":-5,"south":0,"east":5,"north":10}`)
	var got sessionBody
	json.Unmarshal(body, &got)

	status, body := doJSON(t, env.app, "DELETE", "/v1/sessions/"+s.ID+"/shapes/"+got.Shapes[0].ID, "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	json.Unmarshal(body, &got)
	if len(got.AvoidAreas) != 0 {
		t.Errorf("expected tokens regenerated to empty, got %v", got.AvoidAreas)
	}
}

// ---- Route handler tests ----

func testPolyline(t *testing.T) string {
	t.Helper()
	s, err := flexpolyline.Encode([]flexpolyline.Point{{Lat: 43.26, Lon: -2.93}, {Lat: 43.3, Lon: -2.5}}, 5)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestGenerateRoute(t *testing.T) {
	env := setupApp(t)
	s := createSession(t, env)
	env.provider.fetchFn = func(ctx context.Context, req ports.RouteRequest) ([]domain.RouteSection, error) {
		return []domain.RouteSection{{
			Polyline: testPolyline(t),
			Summary:  domain.SectionSummary{LengthMeters: 42000, DurationSeconds: 1800},
		}}, nil
	}

	status, body := doJSON(t, env.app, "POST", "/v1/sessions/"+s.ID+"/route", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var route domain.AssembledRoute
	json.Unmarshal(body, &route)
	if len(route.Coordinates) != 2 {
		t.Errorf("expected 2 coordinates, got %d", len(route.Coordinates))
	}
	if route.LengthMeters != 42000 {
		t.Errorf("expected length 42000, got %d", route.LengthMeters)
	}

	// The stored route is now retrievable.
	status, _ = doJSON(t, env.app, "GET", "/v1/sessions/"+s.ID+"/route", "")
	if status != 200 {
		t.Errorf("expected stored route, got %d", status)
	}
}

func TestGenerateRoute_NoRoute(t *testing.T) {
	env := setupApp(t)
	s := createSession(t, env)
	env.provider.fetchFn = func(ctx context.Context, req ports.RouteRequest) ([]domain.RouteSection, error) {
		return nil, nil
	}

	status, body := doJSON(t, env.app, "POST", "/v1/sessions/"+s.ID+"/route", "")
	if status != 422 {
		t.Fatalf("expected 422, got %d: %s", status, body)
	}
}

func TestGenerateRoute_Superseded(t *testing.T) {
	env := setupApp(t)
	s := createSession(t, env)
	env.provider.fetchFn = func(ctx context.Context, req ports.RouteRequest) ([]domain.RouteSection, error) {
		return []domain.RouteSection{{Polyline: testPolyline(t)}}, nil
	}
	env.sessions.storeRouteFn = func(ctx context.Context, id string, generation int64, route *domain.AssembledRoute) (bool, error) {
		return false, nil
	}

	status, body := doJSON(t, env.app, "POST", "/v1/sessions/"+s.ID+"/route", "")
	if status != 409 {
		t.Fatalf("expected 409, got %d: %s", status, body)
	}
}

func TestGetRoute_NoneStored(t *testing.T) {
	env := setupApp(t)
	s := createSession(t, env)

	status, _ := doJSON(t, env.app, "GET", "/v1/sessions/"+s.ID+"/route", "")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
}

// ---- Settings handler tests ----

func TestTollProfile_RoundTrip(t *testing.T) {
	env := setupApp(t)

	status, _ := doJSON(t, env.app, "GET", "/v1/settings/toll-profile", "")
	if status != 404 {
		t.Fatalf("expected 404 before configuration, got %d", status)
	}

	status, _ = doJSON(t, env.app, "PUT", "/v1/settings/toll-profile",
		`{"vehicle_type":"truck","axle_count":3,"currency":"EUR"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	status, body := doJSON(t, env.app, "GET", "/v1/settings/toll-profile", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var profile domain.TollProfile
	json.Unmarshal(body, &profile)
	if profile.VehicleType != "truck" || profile.AxleCount != 3 {
		t.Errorf("round trip mismatch: %+v", profile)
	}
}

func TestTollProfile_RequiresVehicleType(t *testing.T) {
	env := setupApp(t)
	status, _ := doJSON(t, env.app, "PUT", "/v1/settings/toll-profile", `{"currency":"EUR"}`)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
}

// ---- Fleet handler tests ----

func TestIngestPositions_Batch(t *testing.T) {
	env := setupApp(t)

	status, body := doJSON(t, env.app, "POST", "/v1/vehicles/positions",
		`[{"vehicle_id":"truck-1","location":{"lat":43.1,"lon":-2.2}},
		  {"vehicle_id":"","location":{"lat":43.2,"lon":-2.3}}]`)
	if status != 202 {
		t.Fatalf("expected 202, got %d: %s", status, body)
	}
	var result struct {
		Accepted int `json:"accepted"`
		Rejected int `json:"rejected"`
	}
	json.Unmarshal(body, &result)
	if result.Accepted != 1 || result.Rejected != 1 {
		t.Errorf("expected 1 accepted / 1 rejected, got %+v", result)
	}
	if len(env.vehicles.inserted) != 1 {
		t.Errorf("expected 1 stored position, got %d", len(env.vehicles.inserted))
	}
}

func TestLatestVehicles(t *testing.T) {
	env := setupApp(t)
	env.vehicles.latestFn = func(ctx context.Context, limit int) ([]domain.VehiclePosition, error) {
		return []domain.VehiclePosition{
			{VehicleID: "truck-1", Location: domain.GeoPoint{Lat: 43.1, Lon: -2.2}},
		}, nil
	}

	status, body := doJSON(t, env.app, "GET", "/v1/vehicles/latest", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var positions []domain.VehiclePosition
	json.Unmarshal(body, &positions)
	if len(positions) != 1 || positions[0].VehicleID != "truck-1" {
		t.Errorf("unexpected positions %+v", positions)
	}
}

// ---- Deprecation header test ----

func TestLegacyIngestPath_DeprecationHeaders(t *testing.T) {
	env := setupApp(t)

	req := httptest.NewRequest("POST", "/v1/positions",
		strings.NewReader(`[{"vehicle_id":"truck-1","location":{"lat":43.1,"lon":-2.2}}]`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 202 {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Deprecation") != "true" {
		t.Error("expected Deprecation header on legacy path")
	}
	if resp.Header.Get("Sunset") == "" {
		t.Error("expected Sunset header on legacy path")
	}
}
