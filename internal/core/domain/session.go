package domain

import "time"

// PlanSession is one active route edit: the origin/destination pair, the
// intermediate waypoints, the drawn avoid areas, and the last route the
// provider returned for them. All shape and waypoint state lives here and is
// passed by handle to whoever needs it; nothing is kept in package-level
// variables.
type PlanSession struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Origin      *GeoPoint  `json:"origin,omitempty"`
	Destination *GeoPoint  `json:"destination,omitempty"`
	Waypoints   []Waypoint `json:"waypoints"`
	Shapes      []Shape    `json:"shapes"`
	Drawing     DrawState  `json:"drawing"`

	// LastRoute is the most recent assembled route, or nil when the last
	// provider call failed or nothing was generated yet.
	LastRoute *AssembledRoute `json:"last_route,omitempty"`

	// Generation increments every time a route fetch is started for this
	// session. A response is only applied if its generation still matches,
	// which discards answers that arrive after a newer fetch began.
	Generation int64 `json:"generation"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Shape returns the shape with the given id, or nil.
func (s *PlanSession) Shape(id string) *Shape {
	for i := range s.Shapes {
		if s.Shapes[i].ID == id {
			return &s.Shapes[i]
		}
	}
	return nil
}

// Waypoint returns the waypoint with the given id, or nil.
func (s *PlanSession) Waypoint(id string) *Waypoint {
	for i := range s.Waypoints {
		if s.Waypoints[i].ID == id {
			return &s.Waypoints[i]
		}
	}
	return nil
}

// WaypointLocations projects the waypoint list to bare coordinates.
func (s *PlanSession) WaypointLocations() []GeoPoint {
	pts := make([]GeoPoint, len(s.Waypoints))
	for i, w := range s.Waypoints {
		pts[i] = w.Location
	}
	return pts
}
