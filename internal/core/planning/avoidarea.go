package planning

import (
	"strconv"
	"strings"

	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/pkg/geospatial"
)

// AvoidAreaSeparator joins the encoded tokens into the provider's avoid-area
// request parameter.
const AvoidAreaSeparator = "|"

// EncodeShape converts a drawn shape into the provider's textual avoid-area
// token. The second return value is false when the shape's geometry is
// invalid (too few usable points); callers drop such shapes from the request
// rather than sending a malformed token.
func EncodeShape(s domain.Shape) (string, bool) {
	switch s.Kind {
	case domain.ShapeRectangle:
		return bboxToken(s.West, s.South, s.East, s.North), true

	case domain.ShapeCircle:
		if s.Center == nil {
			return "", false
		}
		// The provider's avoid syntax has no circle primitive. The circle is
		// over-approximated by its bounding box: more area excluded than
		// drawn, never less. The cos(lat) correction makes the box very wide
		// near the poles; that is a known limitation of the conversion.
		dLat, dLon := geospatial.DegreeDeltas(s.Center.Lat, s.RadiusMeters)
		return bboxToken(s.Center.Lon-dLon, s.Center.Lat-dLat, s.Center.Lon+dLon, s.Center.Lat+dLat), true

	case domain.ShapePolygon:
		return ringToken(s.Points, 3)

	case domain.ShapeCorridor:
		// Line corridors reuse the polygon token; that is the provider's
		// avoid-corridor syntax, not a mislabeling.
		return ringToken(s.Points, 2)
	}

	return "", false
}

// EncodeShapes regenerates the complete avoid-area token list. The provider
// takes the full set per request, so any shape mutation invalidates the
// whole list; there is no per-shape diffing.
func EncodeShapes(shapes []domain.Shape) []string {
	tokens := make([]string, 0, len(shapes))
	for _, s := range shapes {
		if tok, ok := EncodeShape(s); ok {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// AvoidAreaParam joins tokens into the single request parameter value, or ""
// when no shape survived validation.
func AvoidAreaParam(shapes []domain.Shape) string {
	return strings.Join(EncodeShapes(shapes), AvoidAreaSeparator)
}

// bbox token field order is west,south,east,north.
func bboxToken(west, south, east, north float64) string {
	var sb strings.Builder
	sb.WriteString("bbox:")
	sb.WriteString(formatCoord(west))
	sb.WriteByte(',')
	sb.WriteString(formatCoord(south))
	sb.WriteByte(',')
	sb.WriteString(formatCoord(east))
	sb.WriteByte(',')
	sb.WriteString(formatCoord(north))
	return sb.String()
}

func ringToken(points []domain.GeoPoint, minPoints int) (string, bool) {
	usable := make([]domain.GeoPoint, 0, len(points))
	for _, p := range points {
		if p.Drawable() {
			usable = append(usable, p)
		}
	}
	if len(usable) < minPoints {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString("polygon:")
	for i, p := range usable {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(formatCoord(p.Lat))
		sb.WriteByte(',')
		sb.WriteString(formatCoord(p.Lon))
	}
	// The ring is implicitly closed; the first point is not repeated.
	return sb.String(), true
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
