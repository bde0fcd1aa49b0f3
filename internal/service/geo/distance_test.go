package geo

import (
	"math"
	"testing"
)

func TestDistanceMiles(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tolerance              float64
	}{
		{"Same point", 40.7128, -74.0060, 40.7128, -74.0060, 0.0, 0},
		{"One degree of longitude at the equator", 0, 0, 0, 1, 69.1, 0.1},
		{"One degree of latitude", 0, 0, 1, 0, 69.1, 0.1},
		{"New York to Boston", 40.7128, -74.0060, 42.3601, -71.0589, 190.2, 1.0},
		{"Antimeridian crossing", 0, 179.5, 0, -179.5, 69.1, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMiles(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Expected ~%.1f miles, got %.1f", tt.want, got)
			}
		})
	}
}

func TestDistanceMilesIsSymmetric(t *testing.T) {
	a := DistanceMiles(40.7128, -74.0060, 34.0522, -118.2437)
	b := DistanceMiles(34.0522, -118.2437, 40.7128, -74.0060)
	if a != b {
		t.Errorf("Expected symmetric distance, got %.1f and %.1f", a, b)
	}
}

func TestDistanceMilesRoundsToOneDecimal(t *testing.T) {
	d := DistanceMiles(40.7128, -74.0060, 40.7306, -73.9352)
	rounded := math.Round(d*10) / 10
	if d != rounded {
		t.Errorf("Expected one-decimal rounding, got %v", d)
	}
}
