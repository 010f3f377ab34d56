package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/core/planning"
	"github.com/otzarri/fleetplan/internal/core/ports"
)

// ErrRouteSuperseded is returned when a newer route request for the same
// session finished first; the caller should discard this result.
var ErrRouteSuperseded = errors.New("route superseded by a newer request")

// ErrNoRoute is returned when the provider could not find a route between
// the session's endpoints.
var ErrNoRoute = errors.New("no route available")

// PlannerService computes routes for a session: it orders the waypoints,
// encodes the drawn avoid areas, calls the routing provider, and assembles
// the per-leg sections into one continuous route.
type PlannerService struct {
	sessions ports.SessionRepository
	provider ports.RouteProvider
	settings *SettingsService
	cache    ports.CacheService
	pub      ports.EventPublisher
}

// NewPlannerService creates a new PlannerService.
func NewPlannerService(
	sessions ports.SessionRepository,
	provider ports.RouteProvider,
	settings *SettingsService,
	cache ports.CacheService,
	pub ports.EventPublisher,
) *PlannerService {
	return &PlannerService{
		sessions: sessions,
		provider: provider,
		settings: settings,
		cache:    cache,
		pub:      pub,
	}
}

// GenerateRoute recomputes the route for a session and stores it. Each call
// bumps the session's generation counter; if a later call finishes first,
// this one's result is thrown away and ErrRouteSuperseded is returned so the
// map never shows a route for inputs the user has already changed.
func (s *PlannerService) GenerateRoute(ctx context.Context, sessionID string) (*domain.AssembledRoute, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if session.Origin == nil || session.Destination == nil {
		return nil, fmt.Errorf("session %s has no origin or destination", sessionID)
	}

	generation, err := s.sessions.BumpGeneration(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("bump generation: %w", err)
	}

	ordered := planning.Sequence(*session.Origin, *session.Destination, session.Waypoints)
	via := make([]domain.GeoPoint, 0, len(ordered))
	for _, w := range ordered {
		via = append(via, w.Location)
	}

	req := ports.RouteRequest{
		Origin:      *session.Origin,
		Destination: *session.Destination,
		Via:         via,
		AvoidAreas:  planning.EncodeShapes(session.Shapes),
	}
	if s.settings != nil {
		if profile, err := s.settings.TollProfile(ctx); err == nil {
			req.TollProfile = profile
		}
	}

	// Identical inputs produce identical routes, so a repeated request
	// (e.g. after an undone edit) is served from cache.
	cacheKey := routeCacheKey(req)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var route domain.AssembledRoute
			if err := json.Unmarshal(data, &route); err == nil {
				return s.commit(ctx, sessionID, generation, &route)
			}
		}
	}

	sections, err := s.provider.FetchRoute(ctx, req)
	if err != nil || len(sections) == 0 {
		// Clear the stale route so the map empties rather than showing a
		// route that no longer matches the inputs.
		if applied, cerr := s.sessions.StoreRoute(ctx, sessionID, generation, nil); cerr == nil && !applied {
			return nil, ErrRouteSuperseded
		}
		if err != nil {
			return nil, fmt.Errorf("fetch route: %w", err)
		}
		return nil, ErrNoRoute
	}

	route := planning.Assemble(sections)

	if s.cache != nil {
		if data, err := json.Marshal(route); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return s.commit(ctx, sessionID, generation, &route)
}

// commit stores the route if the generation is still current and broadcasts
// it to subscribers.
func (s *PlannerService) commit(ctx context.Context, sessionID string, generation int64, route *domain.AssembledRoute) (*domain.AssembledRoute, error) {
	applied, err := s.sessions.StoreRoute(ctx, sessionID, generation, route)
	if err != nil {
		return nil, fmt.Errorf("store route: %w", err)
	}
	if !applied {
		return nil, ErrRouteSuperseded
	}
	if s.pub != nil {
		_ = s.pub.PublishRouteComputed(ctx, sessionID, route)
	}
	return route, nil
}

// routeCacheKey fingerprints a provider request. Any change to endpoints,
// waypoint order, avoid areas, or the toll profile yields a new key.
func routeCacheKey(req ports.RouteRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%f,%f|%f,%f|", req.Origin.Lat, req.Origin.Lon, req.Destination.Lat, req.Destination.Lon)
	for _, p := range req.Via {
		fmt.Fprintf(&b, "%f,%f;", p.Lat, p.Lon)
	}
	b.WriteString("|" + strings.Join(req.AvoidAreas, planning.AvoidAreaSeparator))
	if req.TollProfile != nil {
		if data, err := json.Marshal(req.TollProfile); err == nil {
			b.Write(data)
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return "routes:" + hex.EncodeToString(sum[:16])
}
