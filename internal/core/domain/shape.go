package domain

// ShapeKind discriminates the avoid-area shape variants. Shapes carry their
// kind from the moment they are drawn, so nothing downstream has to inspect
// geometry to figure out what it is looking at.
type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapePolygon   ShapeKind = "polygon"
	ShapeCorridor  ShapeKind = "corridor"
)

// Shape is a user-drawn avoid area. Exactly one of the kind-specific fields
// is meaningful, selected by Kind.
type Shape struct {
	ID   string    `json:"id"`
	Kind ShapeKind `json:"kind"`

	// Rectangle edges.
	North float64 `json:"north,omitempty"`
	South float64 `json:"south,omitempty"`
	East  float64 `json:"east,omitempty"`
	West  float64 `json:"west,omitempty"`

	// Circle. Center is a pointer so non-circle shapes serialize
	// without a zero-valued center.
	Center       *GeoPoint `json:"center,omitempty"`
	RadiusMeters float64   `json:"radius_meters,omitempty"`

	// Polygon ring (implicitly closed) or corridor path.
	Points []GeoPoint `json:"points,omitempty"`
}

// Waypoint is an intermediate stop with a stable identity, so a reordered
// sequence can still be mapped back to the marker or list row that owns it.
type Waypoint struct {
	ID       string   `json:"id"`
	Location GeoPoint `json:"location"`
}
