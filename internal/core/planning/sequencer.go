// Package planning holds the pure route-planning pipeline: waypoint
// ordering, avoid-area token encoding, and assembly of multi-section
// provider responses into one continuous route. Nothing in here touches the
// network or any shared state; callers pass plain data in and get plain data
// back.
package planning

import (
	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/pkg/geospatial"
)

// Sequence orders intermediate waypoints between a fixed origin and
// destination with a greedy nearest-neighbor walk: starting at the origin,
// repeatedly hop to the closest unvisited waypoint. The result is a
// permutation of the input. The destination is never part of the output; it
// is only the notional last leg after the final waypoint.
//
// Greedy ordering is not optimal, but waypoint counts are small (hand-placed
// stops on a dashboard map) and it removes the obvious zig-zags before the
// route is sent to the provider. Ties break toward the earlier input
// position, so the function is deterministic for a given input order.
func Sequence(origin, destination domain.GeoPoint, waypoints []domain.Waypoint) []domain.Waypoint {
	if len(waypoints) <= 1 {
		return waypoints
	}

	unvisited := make([]domain.Waypoint, len(waypoints))
	copy(unvisited, waypoints)

	ordered := make([]domain.Waypoint, 0, len(waypoints))
	current := origin

	for len(unvisited) > 0 {
		best := 0
		bestDist := geospatial.Haversine(current.Lat, current.Lon, unvisited[0].Location.Lat, unvisited[0].Location.Lon)
		for i := 1; i < len(unvisited); i++ {
			d := geospatial.Haversine(current.Lat, current.Lon, unvisited[i].Location.Lat, unvisited[i].Location.Lon)
			if d < bestDist {
				best = i
				bestDist = d
			}
		}

		next := unvisited[best]
		ordered = append(ordered, next)
		unvisited = append(unvisited[:best], unvisited[best+1:]...)
		current = next.Location
	}

	return ordered
}
