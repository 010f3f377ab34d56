package http

import (
	"github.com/nats-io/nats.go"

	"github.com/otzarri/fleetplan/internal/adapters/postgres"
	"github.com/otzarri/fleetplan/internal/adapters/valkey"
	"github.com/otzarri/fleetplan/internal/core/ports"
	"github.com/otzarri/fleetplan/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sessions *usecases.SessionService
	Planner  *usecases.PlannerService
	Settings *usecases.SettingsService
	Tracker  *usecases.TrackerService
	Reports  ports.TollReportRepository
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}
