package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/otzarri/fleetplan/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Legacy ingest path kept for older tracker agents
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{
			Path:        "/v1/positions",
			SunsetDate:  time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
			Alternative: "/v1/vehicles/positions",
		},
	}))

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 — 15s per-request timeout; route generation gets 30s
	// because it waits on the upstream provider.
	v1 := app.Group("/v1")
	v1.Get("/sessions", timeout.NewWithContext(ListSessionsHandler(deps), 15*time.Second))
	v1.Post("/sessions", timeout.NewWithContext(CreateSessionHandler(deps), 15*time.Second))
	v1.Get("/sessions/:id", timeout.NewWithContext(GetSessionHandler(deps), 15*time.Second))
	v1.Delete("/sessions/:id", timeout.NewWithContext(DeleteSessionHandler(deps), 15*time.Second))
	v1.Patch("/sessions/:id/endpoints", timeout.NewWithContext(SetEndpointsHandler(deps), 15*time.Second))

	v1.Post("/sessions/:id/waypoints", timeout.NewWithContext(AddWaypointHandler(deps), 15*time.Second))
	v1.Patch("/sessions/:id/waypoints/:wid", timeout.NewWithContext(MoveWaypointHandler(deps), 15*time.Second))
	v1.Delete("/sessions/:id/waypoints/:wid", timeout.NewWithContext(RemoveWaypointHandler(deps), 15*time.Second))

	v1.Post("/sessions/:id/drawing", timeout.NewWithContext(SelectToolHandler(deps), 15*time.Second))
	v1.Post("/sessions/:id/drawing/complete", timeout.NewWithContext(CompleteDrawingHandler(deps), 15*time.Second))
	v1.Delete("/sessions/:id/drawing", timeout.NewWithContext(CancelDrawingHandler(deps), 15*time.Second))

	v1.Put("/sessions/:id/shapes/:sid", timeout.NewWithContext(UpdateShapeHandler(deps), 15*time.Second))
	v1.Delete("/sessions/:id/shapes/:sid", timeout.NewWithContext(DeleteShapeHandler(deps), 15*time.Second))
	v1.Delete("/sessions/:id/shapes", timeout.NewWithContext(ClearShapesHandler(deps), 15*time.Second))
	v1.Get("/sessions/:id/avoid-areas", timeout.NewWithContext(AvoidAreasHandler(deps), 15*time.Second))

	v1.Post("/sessions/:id/route", timeout.NewWithContext(GenerateRouteHandler(deps), 30*time.Second))
	v1.Get("/sessions/:id/route", timeout.NewWithContext(GetRouteHandler(deps), 15*time.Second))

	v1.Get("/settings/toll-profile", timeout.NewWithContext(GetTollProfileHandler(deps), 15*time.Second))
	v1.Put("/settings/toll-profile", timeout.NewWithContext(PutTollProfileHandler(deps), 15*time.Second))
	v1.Delete("/settings/toll-profile", timeout.NewWithContext(DeleteTollProfileHandler(deps), 15*time.Second))

	v1.Get("/vehicles/latest", timeout.NewWithContext(LatestVehiclesHandler(deps), 15*time.Second))
	v1.Get("/vehicles/:id/history", timeout.NewWithContext(VehicleHistoryHandler(deps), 15*time.Second))
	v1.Post("/vehicles/positions", timeout.NewWithContext(IngestPositionsHandler(deps), 15*time.Second))
	v1.Post("/positions", timeout.NewWithContext(IngestPositionsHandler(deps), 15*time.Second)) // deprecated alias

	v1.Get("/reports/tolls/latest", timeout.NewWithContext(LatestTollReportHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
