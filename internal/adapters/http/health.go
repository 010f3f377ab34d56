package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

var startedAt = time.Now()

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "fleetplan-api",
			"uptime":  time.Since(startedAt).String(),
		})
	}
}

// ReadyHandler checks DB, schema, NATS, and cache connectivity.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allOK := true

		// Database + migrations. to_regclass returns NULL until the schema
		// exists, which catches a fresh database nobody migrated yet.
		if deps.DB != nil {
			var sessionsTable *string
			err := deps.DB.Pool.QueryRow(ctx, `SELECT to_regclass('plan_sessions')::text`).Scan(&sessionsTable)
			switch {
			case err != nil:
				checks["database"] = "error: " + err.Error()
				allOK = false
			case sessionsTable == nil:
				checks["database"] = "schema missing: run migrate up"
				allOK = false
			default:
				checks["database"] = "ok"
			}
		} else {
			checks["database"] = "not configured"
			allOK = false
		}

		// NATS
		if deps.NATS != nil {
			if deps.NATS.IsConnected() {
				checks["nats"] = "ok"
			} else {
				checks["nats"] = "disconnected"
				allOK = false
			}
		} else {
			checks["nats"] = "not configured"
		}

		// Valkey cache
		if deps.Cache != nil {
			_, err := deps.Cache.Get(ctx, "__health_check__")
			// A missing key reports "valkey nil message", which is fine
			if err != nil && err.Error() != "valkey nil message" {
				checks["cache"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["cache"] = "ok"
			}
		} else {
			checks["cache"] = "not configured"
		}

		status := "ready"
		code := 200
		if !allOK {
			status = "not ready"
			code = 503
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
