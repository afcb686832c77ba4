package telemetry

import (
	"math"
	"testing"
)

func TestDistanceMeters(t *testing.T) {
	// one hundredth of a degree of latitude is ~1112m
	d := DistanceMeters(0, 0, 0.01, 0)
	if math.Abs(d-1111.95) > 1 {
		t.Fatalf("unexpected distance %f", d)
	}
	if DistanceMeters(48.2, 16.4, 48.2, 16.4) != 0 {
		t.Fatalf("expected zero distance for identical points")
	}
}

func TestBearing(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
	}{
		{"north", 0, 0, 1, 0, 0},
		{"east", 0, 0, 0, 1, 90},
		{"south", 1, 0, 0, 0, 180},
		{"west", 0, 1, 0, 0, 270},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Bearing(tc.lat1, tc.lng1, tc.lat2, tc.lng2)
			if math.Abs(got-tc.want) > 1e-6 {
				t.Fatalf("bearing=%f, want %f", got, tc.want)
			}
		})
	}
}

func TestDestinationInverse(t *testing.T) {
	lat, lng := Destination(48.2082, 16.3738, 37, 500)
	d := DistanceMeters(48.2082, 16.3738, lat, lng)
	if math.Abs(d-500) > 1e-6 {
		t.Fatalf("expected 500m, got %f", d)
	}
	b := Bearing(48.2082, 16.3738, lat, lng)
	if math.Abs(b-37) > 1e-3 {
		t.Fatalf("expected bearing 37, got %f", b)
	}
}

func TestApproach(t *testing.T) {
	if got := Approach(0, 10, 2, 1); got != 2 {
		t.Fatalf("climb step: got %f", got)
	}
	if got := Approach(10, 0, 2, 1); got != 8 {
		t.Fatalf("descent step: got %f", got)
	}
	if got := Approach(9.5, 10, 2, 1); got != 10 {
		t.Fatalf("expected snap, got %f", got)
	}
	if got := Approach(9, 10, 2, 0.5); got != 10 {
		t.Fatalf("expected no overshoot, got %f", got)
	}
}

func TestNormalizeHeading(t *testing.T) {
	if got := NormalizeHeading(-90); got != 270 {
		t.Fatalf("got %f", got)
	}
	if got := NormalizeHeading(720); got != 0 {
		t.Fatalf("got %f", got)
	}
}
