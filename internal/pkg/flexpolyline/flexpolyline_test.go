package flexpolyline

import (
	"math"
	"testing"
)

func TestDecodeKnownVector(t *testing.T) {
	// Known-good vector for precision 5, 2D.
	points, err := Decode("BFoz5xJ67i1B1B7PzIhaxL7Y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Point{
		{50.10228, 8.69821},
		{50.10201, 8.69567},
		{50.10063, 8.69150},
		{50.09878, 8.68752},
	}
	if len(points) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(points))
	}
	for i, p := range points {
		if math.Abs(p.Lat-want[i].Lat) > 1e-4 || math.Abs(p.Lon-want[i].Lon) > 1e-4 {
			t.Errorf("point %d: got (%f, %f), want (%f, %f)", i, p.Lat, p.Lon, want[i].Lat, want[i].Lon)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	in := []Point{
		{43.26300, -2.93499},
		{43.26511, -2.93012},
		{43.27105, -2.92244},
	}

	encoded, err := Encode(in, 5)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	out, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d points, got %d", len(in), len(out))
	}
	for i := range in {
		if math.Abs(out[i].Lat-in[i].Lat) > 1e-5 || math.Abs(out[i].Lon-in[i].Lon) > 1e-5 {
			t.Errorf("point %d drifted: got (%f, %f), want (%f, %f)", i, out[i].Lat, out[i].Lon, in[i].Lat, in[i].Lon)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"bad character": "BF!!!",
		"truncated":     "B",
	}
	for name, input := range cases {
		if _, err := Decode(input); err == nil {
			t.Errorf("%s: expected error for %q", name, input)
		}
	}
}
