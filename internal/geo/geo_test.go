package geo

import (
	"math"
	"testing"
)

func TestDistanceKm_ZeroForSamePoint(t *testing.T) {
	points := []Point{
		{6.5244, 3.3792},
		{0, 0},
		{-33.8688, 151.2093},
		{89.9, -179.9},
	}
	for _, p := range points {
		if d := Distance(p, p); d != 0 {
			t.Errorf("Distance(%v, %v) = %v, want 0", p, p, d)
		}
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	pairs := [][2]Point{
		{{6.5244, 3.3792}, {6.6, 3.4}},
		{{10.5105, 7.4165}, {12.0022, 8.5920}},
		{{51.5074, -0.1278}, {40.7128, -74.0060}},
	}
	for _, pr := range pairs {
		ab := Distance(pr[0], pr[1])
		ba := Distance(pr[1], pr[0])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("asymmetric distance: %v vs %v", ab, ba)
		}
	}
}

func TestDistanceKm_KnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{"Lagos to nearby voter", Point{6.5244, 3.3792}, Point{6.6, 3.4}, 8.7, 0.05},
		{"Lagos to close voter", Point{6.5244, 3.3792}, Point{6.53, 3.38}, 0.63, 0.01},
		{"one degree of latitude", Point{0, 0}, Point{1, 0}, 111.19, 0.01},
		{"London to New York", Point{51.5074, -0.1278}, Point{40.7128, -74.0060}, 5570, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Distance = %.4f, want %.4f ± %.2f", got, tt.want, tt.tol)
			}
		})
	}
}

func TestPoint_Valid(t *testing.T) {
	if !(Point{6.5, 3.3}).Valid() {
		t.Error("expected valid point")
	}
	if (Point{91, 0}).Valid() {
		t.Error("latitude 91 must be invalid")
	}
	if (Point{0, 181}).Valid() {
		t.Error("longitude 181 must be invalid")
	}
}
