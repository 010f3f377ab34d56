package geospatial

import "math"

const earthRadiusKm = 6371.0

// kmPerDegree is the flat-earth approximation used when converting a metric
// radius to coordinate deltas. It intentionally matches the routing
// provider's own avoid-area arithmetic rather than a tighter geodesic value.
const kmPerDegree = 111.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// DegreeDeltas converts a radius in meters at the given latitude into
// latitude/longitude half-extents in degrees. The cos(lat) correction keeps
// the longitude extent honest away from the equator; it degrades near the
// poles, where the resulting box grows very wide.
func DegreeDeltas(lat, radiusMeters float64) (dLat, dLon float64) {
	km := radiusMeters / 1000.0
	dLat = km / kmPerDegree
	dLon = km / (kmPerDegree * math.Cos(toRad(lat)))
	return dLat, dLon
}

// BoundingBox returns a bounding box around a point with the given radius in
// meters, built from DegreeDeltas.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	dLat, dLon := DegreeDeltas(lat, radiusMeters)
	return lat - dLat, lon - dLon, lat + dLat, lon + dLon
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
