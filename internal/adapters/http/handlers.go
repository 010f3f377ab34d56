package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/core/planning"
	"github.com/otzarri/fleetplan/internal/core/ports"
	"github.com/otzarri/fleetplan/internal/core/usecases"
	"github.com/otzarri/fleetplan/internal/pkg/metrics"
)

// sessionResponse is a session plus the avoid-area tokens derived from its
// shapes. The tokens are regenerated from the full shape list on every
// response, so the client never has to patch them incrementally.
type sessionResponse struct {
	*domain.PlanSession
	AvoidAreas []string `json:"avoid_areas"`
}

func sessionJSON(c *fiber.Ctx, session *domain.PlanSession) error {
	return c.JSON(sessionResponse{
		PlanSession: session,
		AvoidAreas:  planning.EncodeShapes(session.Shapes),
	})
}

// serviceError maps usecase errors to HTTP responses.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, usecases.ErrRouteSuperseded):
		return errConflict(c, err.Error())
	default:
		return errInternal(c, err.Error())
	}
}

// --- Sessions ---

type createSessionRequest struct {
	Name        string           `json:"name"`
	Origin      *domain.GeoPoint `json:"origin"`
	Destination *domain.GeoPoint `json:"destination"`
}

// CreateSessionHandler starts a new route-edit session.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createSessionRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		session, err := deps.Sessions.Create(c.UserContext(), req.Name, req.Origin, req.Destination)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		c.Status(201)
		return sessionJSON(c, session)
	}
}

// ListSessionsHandler returns all sessions, paginated.
func ListSessionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessions, err := deps.Sessions.List(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 100
		}

		total := len(sessions)
		if offset >= total {
			sessions = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			sessions = sessions[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		pg = SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: sessions, Pagination: pg})
	}
}

// GetSessionHandler returns a single session with its avoid-area tokens.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := deps.Sessions.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return sessionJSON(c, session)
	}
}

// DeleteSessionHandler removes a session.
func DeleteSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Delete(c.UserContext(), c.Params("id")); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(204)
	}
}

type endpointsRequest struct {
	Origin      *domain.GeoPoint `json:"origin"`
	Destination *domain.GeoPoint `json:"destination"`
}

// SetEndpointsHandler updates a session's origin and/or destination.
func SetEndpointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req endpointsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Origin == nil && req.Destination == nil {
			return errBadRequest(c, "origin or destination is required")
		}

		session, err := deps.Sessions.SetEndpoints(c.UserContext(), c.Params("id"), req.Origin, req.Destination)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return errNotFound(c, err.Error())
			}
			return errBadRequest(c, err.Error())
		}
		return sessionJSON(c, session)
	}
}

// --- Waypoints ---

type waypointRequest struct {
	Location domain.GeoPoint `json:"location"`
}

// AddWaypointHandler appends an intermediate stop to a session.
func AddWaypointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req waypointRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		session, err := deps.Sessions.AddWaypoint(c.UserContext(), c.Params("id"), req.Location)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return errNotFound(c, err.Error())
			}
			return errBadRequest(c, err.Error())
		}
		c.Status(201)
		return sessionJSON(c, session)
	}
}

// MoveWaypointHandler updates a waypoint's location, keeping its identity.
func MoveWaypointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req waypointRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		session, err := deps.Sessions.MoveWaypoint(c.UserContext(), c.Params("id"), c.Params("wid"), req.Location)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return errNotFound(c, err.Error())
			}
			return errBadRequest(c, err.Error())
		}
		return sessionJSON(c, session)
	}
}

// RemoveWaypointHandler deletes a waypoint.
func RemoveWaypointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := deps.Sessions.RemoveWaypoint(c.UserContext(), c.Params("id"), c.Params("wid"))
		if err != nil {
			return serviceError(c, err)
		}
		return sessionJSON(c, session)
	}
}

// --- Drawing & shapes ---

type selectToolRequest struct {
	Tool domain.ShapeKind `json:"tool"`
}

// SelectToolHandler enters drawing mode for a shape kind.
func SelectToolHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req selectToolRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		session, err := deps.Sessions.SelectTool(c.UserContext(), c.Params("id"), req.Tool)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return errNotFound(c, err.Error())
			}
			return errBadRequest(c, err.Error())
		}
		return sessionJSON(c, session)
	}
}

// CompleteDrawingHandler finishes the draw in progress with the supplied
// geometry. The shape kind comes from the drawing state, not the body.
func CompleteDrawingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var geometry domain.Shape
		if err := c.BodyParser(&geometry); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		session, err := deps.Sessions.CompleteDrawing(c.UserContext(), c.Params("id"), geometry)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return errNotFound(c, err.Error())
			}
			return errBadRequest(c, err.Error())
		}
		c.Status(201)
		return sessionJSON(c, session)
	}
}

// CancelDrawingHandler abandons the draw in progress.
func CancelDrawingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := deps.Sessions.CancelDrawing(c.UserContext(), c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return sessionJSON(c, session)
	}
}

// UpdateShapeHandler replaces the geometry of an existing shape.
func UpdateShapeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var shape domain.Shape
		if err := c.BodyParser(&shape); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		shape.ID = c.Params("sid")

		session, err := deps.Sessions.UpdateShape(c.UserContext(), c.Params("id"), shape)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return errNotFound(c, err.Error())
			}
			return errBadRequest(c, err.Error())
		}
		return sessionJSON(c, session)
	}
}

// DeleteShapeHandler removes a single shape.
func DeleteShapeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := deps.Sessions.DeleteShape(c.UserContext(), c.Params("id"), c.Params("sid"))
		if err != nil {
			return serviceError(c, err)
		}
		return sessionJSON(c, session)
	}
}

// ClearShapesHandler removes all shapes from a session.
func ClearShapesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := deps.Sessions.ClearShapes(c.UserContext(), c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return sessionJSON(c, session)
	}
}

// AvoidAreasHandler returns the current avoid-area tokens and the single
// pipe-joined request parameter they produce.
func AvoidAreasHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokens, err := deps.Sessions.AvoidTokens(c.UserContext(), c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"tokens": tokens,
			"param":  strings.Join(tokens, planning.AvoidAreaSeparator),
		})
	}
}

// --- Route ---

// GenerateRouteHandler recomputes the session's route. A 409 means a newer
// request for the same session finished first.
func GenerateRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, err := deps.Planner.GenerateRoute(c.UserContext(), c.Params("id"))
		if err != nil {
			switch {
			case errors.Is(err, usecases.ErrRouteSuperseded):
				metrics.RoutesSuperseded.Inc()
				return errConflict(c, err.Error())
			case errors.Is(err, usecases.ErrNoRoute):
				return errUnprocessable(c, err.Error())
			case errors.Is(err, ports.ErrNotFound):
				return errNotFound(c, err.Error())
			default:
				return errInternal(c, err.Error())
			}
		}
		metrics.RoutesComputed.Inc()
		return c.JSON(route)
	}
}

// GetRouteHandler returns the last stored route for a session.
func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := deps.Sessions.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		if session.LastRoute == nil {
			return errNotFound(c, "no route stored for session")
		}
		return c.JSON(session.LastRoute)
	}
}

// --- Settings ---

// GetTollProfileHandler returns the stored toll profile.
func GetTollProfileHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile, err := deps.Settings.TollProfile(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		if profile == nil {
			return errNotFound(c, "no toll profile configured")
		}
		return c.JSON(profile)
	}
}

// PutTollProfileHandler stores the toll profile.
func PutTollProfileHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var profile domain.TollProfile
		if err := c.BodyParser(&profile); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if profile.VehicleType == "" {
			return errBadRequest(c, "vehicle_type is required")
		}
		if err := deps.Settings.SaveTollProfile(c.UserContext(), &profile); err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(profile)
	}
}

// DeleteTollProfileHandler removes the stored toll profile.
func DeleteTollProfileHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Settings.DeleteTollProfile(c.UserContext()); err != nil {
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// --- Fleet ---

// LatestVehiclesHandler returns the most recent position per vehicle.
func LatestVehiclesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 100)
		positions, err := deps.Tracker.LatestPositions(c.UserContext(), limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Cache-Control", "public, max-age=5")
		return c.JSON(positions)
	}
}

// VehicleHistoryHandler returns a vehicle's recent positions.
func VehicleHistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var since time.Time
		if s := c.Query("since"); s != "" {
			parsed, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return errBadRequest(c, "since must be RFC 3339")
			}
			since = parsed
		}
		limit := c.QueryInt("limit", 1000)

		positions, err := deps.Tracker.History(c.UserContext(), c.Params("id"), since, limit)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(positions)
	}
}

// IngestPositionsHandler accepts one position or a batch from tracker agents.
func IngestPositionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var batch []domain.VehiclePosition
		if err := c.BodyParser(&batch); err != nil {
			var single domain.VehiclePosition
			if err := c.BodyParser(&single); err != nil {
				return errBadRequest(c, "invalid request body")
			}
			batch = []domain.VehiclePosition{single}
		}

		accepted, err := deps.Tracker.ProcessBatch(c.UserContext(), batch)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.Status(202).JSON(fiber.Map{
			"accepted": accepted,
			"rejected": len(batch) - accepted,
		})
	}
}

// --- Reports ---

// LatestTollReportHandler returns the most recent toll report.
func LatestTollReportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Reports == nil {
			return errInternal(c, "reports not available")
		}
		report, err := deps.Reports.Latest(c.UserContext())
		if err != nil {
			return serviceError(c, err)
		}
		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(report)
	}
}
