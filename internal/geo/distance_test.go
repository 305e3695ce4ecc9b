package geo

import (
	"math"
	"testing"
)

func TestHaversineMeters_ZeroForSamePoint(t *testing.T) {
	d := HaversineMeters(60.1695, 24.9354, 60.1695, 24.9354)
	if d != 0 {
		t.Errorf("Expected 0, got %f", d)
	}
}

func TestHaversineMeters_HelsinkiToEspoo(t *testing.T) {
	// Helsinki centre to Espoo centre, roughly 16 km
	d := HaversineMeters(60.1695, 24.9354, 60.2055, 24.6559)
	if math.Abs(d-16000) > 2000 {
		t.Errorf("Expected roughly 16km, got %f m", d)
	}
}

func TestHaversineMeters_ShortDistance(t *testing.T) {
	// Two points ~111m apart (0.001 degrees latitude)
	d := HaversineMeters(60.0, 24.0, 60.001, 24.0)
	if math.Abs(d-111) > 5 {
		t.Errorf("Expected roughly 111m, got %f m", d)
	}
}
