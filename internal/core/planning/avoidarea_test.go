package planning_test

import (
	"math"
	"strings"
	"testing"

	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/core/planning"
)

func TestEncodeShape_Rectangle(t *testing.T) {
	token, ok := planning.EncodeShape(domain.Shape{
		Kind:  domain.ShapeRectangle,
		North: 10, South: 0, East: 5, West: -5,
	})
	if !ok {
		t.Fatal("expected rectangle to encode")
	}
	if token != "bbox:-5,0,5,10" {
		t.Errorf("expected bbox:-5,0,5,10, got %q", token)
	}
}

func TestEncodeShape_CircleBoundingBox(t *testing.T) {
	// 111 km at the equator is one degree under the provider's flat
	// approximation, so the box must reach exactly ±1.
	token, ok := planning.EncodeShape(domain.Shape{
		Kind:         domain.ShapeCircle,
		Center:       &domain.GeoPoint{Lat: 0, Lon: 0},
		RadiusMeters: 111000,
	})
	if !ok {
		t.Fatal("expected circle to encode")
	}

	shape, ok := planning.ParseAvoidToken(token)
	if !ok || shape.Kind != domain.ShapeRectangle {
		t.Fatalf("expected parseable bbox token, got %q", token)
	}
	if math.Abs(shape.North-1) > 1e-9 || math.Abs(shape.South+1) > 1e-9 {
		t.Errorf("expected north/south ±1, got %f/%f", shape.North, shape.South)
	}
	if math.Abs(shape.East-1) > 1e-9 || math.Abs(shape.West+1) > 1e-9 {
		t.Errorf("expected east/west ±1, got %f/%f", shape.East, shape.West)
	}
}

func TestEncodeShape_CircleWidensAwayFromEquator(t *testing.T) {
	token, ok := planning.EncodeShape(domain.Shape{
		Kind:         domain.ShapeCircle,
		Center:       &domain.GeoPoint{Lat: 60, Lon: 10},
		RadiusMeters: 111000,
	})
	if !ok {
		t.Fatal("expected circle to encode")
	}
	shape, _ := planning.ParseAvoidToken(token)

	lonExtent := (shape.East - shape.West) / 2
	// cos(60°) = 0.5, so the longitude extent doubles. The box only ever
	// over-approximates the circle.
	if math.Abs(lonExtent-2) > 1e-9 {
		t.Errorf("expected lon extent 2 at 60N, got %f", lonExtent)
	}
}

func TestEncodeShape_PolygonRejectsDegenerateRing(t *testing.T) {
	token, ok := planning.EncodeShape(domain.Shape{
		Kind: domain.ShapePolygon,
		Points: []domain.GeoPoint{
			{Lat: 1, Lon: 1},
			{Lat: 2, Lon: 2},
		},
	})
	if ok {
		t.Fatalf("expected rejection for 2-point polygon, got %q", token)
	}
}

func TestEncodeShape_PolygonFiltersUnusablePoints(t *testing.T) {
	// Zero and NaN vertices come from unset drawing-widget state and must be
	// dropped; if too few survive, the shape as a whole is rejected.
	shape := domain.Shape{
		Kind: domain.ShapePolygon,
		Points: []domain.GeoPoint{
			{Lat: 1, Lon: 1},
			{Lat: 0, Lon: 5},
			{Lat: math.NaN(), Lon: 2},
			{Lat: 2, Lon: 2},
			{Lat: 3, Lon: 1},
		},
	}

	token, ok := planning.EncodeShape(shape)
	if !ok {
		t.Fatal("expected polygon with 3 usable points to encode")
	}
	if token != "polygon:1,1;2,2;3,1" {
		t.Errorf("unexpected token %q", token)
	}

	shape.Points = shape.Points[:3] // only one usable point left
	if _, ok := planning.EncodeShape(shape); ok {
		t.Error("expected rejection once usable points drop below 3")
	}
}

func TestEncodeShape_CorridorUsesPolygonToken(t *testing.T) {
	token, ok := planning.EncodeShape(domain.Shape{
		Kind: domain.ShapeCorridor,
		Points: []domain.GeoPoint{
			{Lat: 1, Lon: 1},
			{Lat: 2, Lon: 2},
		},
	})
	if !ok {
		t.Fatal("expected 2-point corridor to encode")
	}
	if !strings.HasPrefix(token, "polygon:") {
		t.Errorf("corridor must reuse the polygon token, got %q", token)
	}
}

func TestEncodeShapes_RegeneratesFullList(t *testing.T) {
	shapes := []domain.Shape{
		{Kind: domain.ShapeRectangle, North: 2, South: 1, East: 2, West: 1},
		{Kind: domain.ShapePolygon, Points: []domain.GeoPoint{{Lat: 1, Lon: 1}}}, // invalid
		{Kind: domain.ShapeRectangle, North: 4, South: 3, East: 4, West: 3},
	}

	tokens := planning.EncodeShapes(shapes)
	if len(tokens) != 2 {
		t.Fatalf("expected invalid shape omitted, got %d tokens", len(tokens))
	}

	param := planning.AvoidAreaParam(shapes)
	if param != tokens[0]+"|"+tokens[1] {
		t.Errorf("expected pipe-joined parameter, got %q", param)
	}
}

func TestEncodeShape_CircleWithoutCenter(t *testing.T) {
	_, ok := planning.EncodeShape(domain.Shape{
		Kind:         domain.ShapeCircle,
		RadiusMeters: 500,
	})
	if ok {
		t.Error("circle without a center must not encode")
	}
}

func TestParseAvoidToken_RoundTrip(t *testing.T) {
	rect := domain.Shape{Kind: domain.ShapeRectangle, North: 10.5, South: -0.25, East: 5.125, West: -5}
	token, _ := planning.EncodeShape(rect)
	back, ok := planning.ParseAvoidToken(token)
	if !ok {
		t.Fatalf("failed to parse %q", token)
	}
	if back.North != rect.North || back.South != rect.South || back.East != rect.East || back.West != rect.West {
		t.Errorf("rectangle did not survive round trip: %+v", back)
	}

	poly := domain.Shape{Kind: domain.ShapePolygon, Points: []domain.GeoPoint{
		{Lat: 1.5, Lon: 2.5}, {Lat: 3.25, Lon: 4}, {Lat: 5, Lon: 6},
	}}
	token, _ = planning.EncodeShape(poly)
	back, ok = planning.ParseAvoidToken(token)
	if !ok || len(back.Points) != 3 {
		t.Fatalf("failed to parse %q", token)
	}
	for i, p := range poly.Points {
		if back.Points[i] != p {
			t.Errorf("vertex %d did not survive round trip: %+v", i, back.Points[i])
		}
	}
}
