package planning

import (
	"strconv"
	"strings"

	"github.com/otzarri/fleetplan/internal/core/domain"
)

// ParseAvoidToken is the inverse of EncodeShape for the two token forms.
// A bbox token parses to a rectangle (circles are not recoverable from their
// bounding box) and a polygon token to a polygon. Used when re-hydrating
// avoid areas from a stored request for display.
func ParseAvoidToken(token string) (domain.Shape, bool) {
	switch {
	case strings.HasPrefix(token, "bbox:"):
		fields := strings.Split(strings.TrimPrefix(token, "bbox:"), ",")
		if len(fields) != 4 {
			return domain.Shape{}, false
		}
		vals := make([]float64, 4)
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return domain.Shape{}, false
			}
			vals[i] = v
		}
		return domain.Shape{
			Kind:  domain.ShapeRectangle,
			West:  vals[0],
			South: vals[1],
			East:  vals[2],
			North: vals[3],
		}, true

	case strings.HasPrefix(token, "polygon:"):
		pairs := strings.Split(strings.TrimPrefix(token, "polygon:"), ";")
		if len(pairs) < 2 {
			return domain.Shape{}, false
		}
		points := make([]domain.GeoPoint, 0, len(pairs))
		for _, pair := range pairs {
			latLon := strings.Split(pair, ",")
			if len(latLon) != 2 {
				return domain.Shape{}, false
			}
			lat, err1 := strconv.ParseFloat(latLon[0], 64)
			lon, err2 := strconv.ParseFloat(latLon[1], 64)
			if err1 != nil || err2 != nil {
				return domain.Shape{}, false
			}
			points = append(points, domain.GeoPoint{Lat: lat, Lon: lon})
		}
		kind := domain.ShapePolygon
		if len(points) == 2 {
			kind = domain.ShapeCorridor
		}
		return domain.Shape{Kind: kind, Points: points}, true
	}

	return domain.Shape{}, false
}
