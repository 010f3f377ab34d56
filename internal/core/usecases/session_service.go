package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/core/planning"
	"github.com/otzarri/fleetplan/internal/core/ports"
)

// SessionService owns route-edit session state: waypoints, drawn avoid
// areas, and the drawing-tool state machine. Every shape mutation
// invalidates the avoid-area token set as a whole, so mutating methods
// return the regenerated full token list for the caller's next request.
type SessionService struct {
	sessions ports.SessionRepository
}

// NewSessionService creates a new SessionService.
func NewSessionService(sessions ports.SessionRepository) *SessionService {
	return &SessionService{sessions: sessions}
}

// Create starts a new route-edit session.
func (s *SessionService) Create(ctx context.Context, name string, origin, destination *domain.GeoPoint) (*domain.PlanSession, error) {
	if origin != nil && !origin.InRange() {
		return nil, fmt.Errorf("create session: origin out of range")
	}
	if destination != nil && !destination.InRange() {
		return nil, fmt.Errorf("create session: destination out of range")
	}

	now := time.Now()
	session := &domain.PlanSession{
		ID:          uuid.NewString(),
		Name:        name,
		Origin:      origin,
		Destination: destination,
		Waypoints:   []domain.Waypoint{},
		Shapes:      []domain.Shape{},
		Drawing:     domain.DrawIdle,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Get returns a session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*domain.PlanSession, error) {
	return s.sessions.Get(ctx, id)
}

// List returns all sessions.
func (s *SessionService) List(ctx context.Context) ([]domain.PlanSession, error) {
	return s.sessions.List(ctx)
}

// Delete removes a session.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	return s.sessions.Delete(ctx, id)
}

// SetEndpoints updates origin and/or destination. Nil leaves a field as-is.
func (s *SessionService) SetEndpoints(ctx context.Context, id string, origin, destination *domain.GeoPoint) (*domain.PlanSession, error) {
	return s.mutate(ctx, id, func(session *domain.PlanSession) error {
		if origin != nil {
			if !origin.InRange() {
				return fmt.Errorf("origin out of range")
			}
			session.Origin = origin
		}
		if destination != nil {
			if !destination.InRange() {
				return fmt.Errorf("destination out of range")
			}
			session.Destination = destination
		}
		return nil
	})
}

// AddWaypoint appends an intermediate stop.
func (s *SessionService) AddWaypoint(ctx context.Context, id string, location domain.GeoPoint) (*domain.PlanSession, error) {
	return s.mutate(ctx, id, func(session *domain.PlanSession) error {
		if !location.InRange() {
			return fmt.Errorf("waypoint out of range")
		}
		session.Waypoints = append(session.Waypoints, domain.Waypoint{
			ID:       uuid.NewString(),
			Location: location,
		})
		return nil
	})
}

// MoveWaypoint updates a waypoint's location in place, keeping its identity.
func (s *SessionService) MoveWaypoint(ctx context.Context, id, waypointID string, location domain.GeoPoint) (*domain.PlanSession, error) {
	return s.mutate(ctx, id, func(session *domain.PlanSession) error {
		if !location.InRange() {
			return fmt.Errorf("waypoint out of range")
		}
		w := session.Waypoint(waypointID)
		if w == nil {
			return fmt.Errorf("waypoint %s: %w", waypointID, ports.ErrNotFound)
		}
		w.Location = location
		return nil
	})
}

// RemoveWaypoint deletes a waypoint.
func (s *SessionService) RemoveWaypoint(ctx context.Context, id, waypointID string) (*domain.PlanSession, error) {
	return s.mutate(ctx, id, func(session *domain.PlanSession) error {
		for i, w := range session.Waypoints {
			if w.ID == waypointID {
				session.Waypoints = append(session.Waypoints[:i], session.Waypoints[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("waypoint %s: %w", waypointID, ports.ErrNotFound)
	})
}

// SelectTool enters the drawing state for the given shape kind. Selecting a
// tool mid-draw abandons the draw in progress.
func (s *SessionService) SelectTool(ctx context.Context, id string, kind domain.ShapeKind) (*domain.PlanSession, error) {
	return s.mutate(ctx, id, func(session *domain.PlanSession) error {
		next, err := session.Drawing.SelectTool(kind)
		if err != nil {
			return err
		}
		session.Drawing = next
		return nil
	})
}

// CancelDrawing abandons the draw in progress and returns to idle.
func (s *SessionService) CancelDrawing(ctx context.Context, id string) (*domain.PlanSession, error) {
	return s.mutate(ctx, id, func(session *domain.PlanSession) error {
		session.Drawing = session.Drawing.Cancel()
		return nil
	})
}

// CompleteDrawing finishes the draw in progress with the supplied geometry
// and adds the shape. The shape's kind comes from the state machine, not the
// request; the completed geometry must be valid for that kind or the draw
// fails and the state stays unchanged.
func (s *SessionService) CompleteDrawing(ctx context.Context, id string, geometry domain.Shape) (*domain.PlanSession, error) {
	return s.mutate(ctx, id, func(session *domain.PlanSession) error {
		kind := session.Drawing.Kind()
		if kind == "" {
			return fmt.Errorf("no drawing in progress")
		}

		geometry.ID = uuid.NewString()
		geometry.Kind = kind
		if _, ok := planning.EncodeShape(geometry); !ok {
			return fmt.Errorf("drawn %s has too few usable points", kind)
		}

		next, err := session.Drawing.Complete()
		if err != nil {
			return err
		}
		session.Drawing = next
		session.Shapes = append(session.Shapes, geometry)
		return nil
	})
}

// UpdateShape replaces the geometry of an existing shape (drag edit). The
// kind is fixed at creation and cannot change.
func (s *SessionService) UpdateShape(ctx context.Context, id string, shape domain.Shape) (*domain.PlanSession, error) {
	return s.mutate(ctx, id, func(session *domain.PlanSession) error {
		existing := session.Shape(shape.ID)
		if existing == nil {
			return fmt.Errorf("shape %s: %w", shape.ID, ports.ErrNotFound)
		}
		shape.Kind = existing.Kind
		if _, ok := planning.EncodeShape(shape); !ok {
			return fmt.Errorf("edited %s has too few usable points", shape.Kind)
		}
		*existing = shape
		return nil
	})
}

// DeleteShape removes a single shape.
func (s *SessionService) DeleteShape(ctx context.Context, id, shapeID string) (*domain.PlanSession, error) {
	return s.mutate(ctx, id, func(session *domain.PlanSession) error {
		for i, shape := range session.Shapes {
			if shape.ID == shapeID {
				session.Shapes = append(session.Shapes[:i], session.Shapes[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("shape %s: %w", shapeID, ports.ErrNotFound)
	})
}

// ClearShapes removes every drawn shape.
func (s *SessionService) ClearShapes(ctx context.Context, id string) (*domain.PlanSession, error) {
	return s.mutate(ctx, id, func(session *domain.PlanSession) error {
		session.Shapes = session.Shapes[:0]
		return nil
	})
}

// AvoidTokens returns the current full avoid-area token list for a session.
func (s *SessionService) AvoidTokens(ctx context.Context, id string) ([]string, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return planning.EncodeShapes(session.Shapes), nil
}

// mutate loads, applies, stamps, and stores a session in one place.
func (s *SessionService) mutate(ctx context.Context, id string, fn func(*domain.PlanSession) error) (*domain.PlanSession, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	session.UpdatedAt = time.Now()
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("update session %s: %w", id, err)
	}
	return session, nil
}
