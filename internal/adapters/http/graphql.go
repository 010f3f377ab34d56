package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	waypointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Waypoint",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: geoPointType},
		},
	})

	shapeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Shape",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"kind":          &graphql.Field{Type: graphql.String},
			"north":         &graphql.Field{Type: graphql.Float},
			"south":         &graphql.Field{Type: graphql.Float},
			"east":          &graphql.Field{Type: graphql.Float},
			"west":          &graphql.Field{Type: graphql.Float},
			"center":        &graphql.Field{Type: geoPointType},
			"radius_meters": &graphql.Field{Type: graphql.Float},
			"points":        &graphql.Field{Type: graphql.NewList(geoPointType)},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"coordinates":      &graphql.Field{Type: graphql.NewList(geoPointType)},
			"length_meters":    &graphql.Field{Type: graphql.Int},
			"duration_seconds": &graphql.Field{Type: graphql.Int},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"origin":      &graphql.Field{Type: geoPointType},
			"destination": &graphql.Field{Type: geoPointType},
			"waypoints":   &graphql.Field{Type: graphql.NewList(waypointType)},
			"shapes":      &graphql.Field{Type: graphql.NewList(shapeType)},
			"drawing":     &graphql.Field{Type: graphql.String},
			"last_route":  &graphql.Field{Type: routeType},
		},
	})

	vehicleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Vehicle",
		Fields: graphql.Fields{
			"vehicle_id": &graphql.Field{Type: graphql.String},
			"driver_id":  &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: geoPointType},
			"bearing":    &graphql.Field{Type: graphql.Float},
			"speed":      &graphql.Field{Type: graphql.Float},
			"ignition":   &graphql.Field{Type: graphql.Boolean},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"sessions": &graphql.Field{
				Type:        graphql.NewList(sessionType),
				Description: "List all route-edit sessions",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.List(p.Context)
				},
			},
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Get a session by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Sessions.Get(p.Context, id)
				},
			},
			"avoidAreas": &graphql.Field{
				Type:        graphql.NewList(graphql.String),
				Description: "Encoded avoid-area tokens for a session",
				Args: graphql.FieldConfigArgument{
					"session_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["session_id"].(string)
					return deps.Sessions.AvoidTokens(p.Context, id)
				},
			},
			"vehiclesLatest": &graphql.Field{
				Type:        graphql.NewList(vehicleType),
				Description: "Latest position per vehicle",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := p.Args["limit"].(int)
					return deps.Tracker.LatestPositions(p.Context, limit)
				},
			},
			"vehicleHistory": &graphql.Field{
				Type:        graphql.NewList(vehicleType),
				Description: "Recent positions for a single vehicle",
				Args: graphql.FieldConfigArgument{
					"vehicle_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1000},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					vehicleID := p.Args["vehicle_id"].(string)
					limit := p.Args["limit"].(int)
					return deps.Tracker.History(p.Context, vehicleID, time.Time{}, limit)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
