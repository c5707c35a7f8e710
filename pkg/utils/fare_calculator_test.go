package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestHaversineDistance(t *testing.T) {
	tests := []struct {
		name     string
		from, to Point
		want     float64
		delta    float64
	}{
		{"same point", Point{6.4281, 3.4219}, Point{6.4281, 3.4219}, 0, 1e-9},
		{"victoria island to ikeja", Point{6.4281, 3.4219}, Point{6.6018, 3.3515}, 20.82, 0.1},
		{"one degree of latitude", Point{0, 0}, Point{1, 0}, 111.19, 0.01},
		{"antipodes", Point{0, 0}, Point{0, 180}, 20015.09, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DistanceBetween(tt.from, tt.to), tt.delta)
		})
	}
}

func TestHaversineDistance_Symmetric(t *testing.T) {
	a, b := Point{6.4281, 3.4219}, Point{6.6018, 3.3515}
	assert.InDelta(t, DistanceBetween(a, b), DistanceBetween(b, a), 1e-9)
}

func TestFare(t *testing.T) {
	calc := NewFareCalculator(100, 50, "NGN", 30)

	tests := []struct {
		name     string
		distance *float64
		want     float64
	}{
		{"absent distance", nil, 100},
		{"zero distance", ptr(0), 100},
		{"negative distance", ptr(-4), 100},
		{"ten km", ptr(10), 600},
		{"fractional km", ptr(19.9), 1095},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calc.Fare(tt.distance), 1e-9)
		})
	}
}

func TestFare_NeverBelowBaseAndMonotonic(t *testing.T) {
	calc := NewFareCalculator(100, 50, "NGN", 30)
	prev := calc.Fare(nil)
	for d := 0.0; d <= 200; d += 0.37 {
		fare := calc.Fare(ptr(d))
		assert.GreaterOrEqual(t, fare, calc.BaseFare)
		assert.GreaterOrEqual(t, fare, prev)
		prev = fare
	}
}

func TestNewFareCalculator_ClampsNegativeRates(t *testing.T) {
	calc := NewFareCalculator(-10, -5, "NGN", 30)
	assert.Equal(t, 0.0, calc.Fare(ptr(12)))
}

func TestEstimate(t *testing.T) {
	calc := NewFareCalculator(100, 50, "NGN", 30)
	est := calc.Estimate(Point{6.4281, 3.4219}, Point{6.6018, 3.3515})

	assert.InDelta(t, 20.82, est.DistanceKm, 0.1)
	assert.InDelta(t, 100+est.DistanceKm*50, est.Fare, 0.01)
	assert.Equal(t, CalculateETA(est.DistanceKm, 30), est.DurationMinutes)
	assert.Equal(t, "NGN", est.Currency)
}

func TestCalculateETA(t *testing.T) {
	assert.Equal(t, 1, CalculateETA(0, 30))
	assert.Equal(t, 20, CalculateETA(10, 30))
	assert.Equal(t, 40, CalculateETA(10, 15))
	assert.Equal(t, 20, CalculateETA(10, 0))
}

func BenchmarkEstimate(b *testing.B) {
	calc := NewFareCalculator(100, 50, "NGN", 30)
	for i := 0; i < b.N; i++ {
		calc.Estimate(Point{6.4281, 3.4219}, Point{6.6018, 3.3515})
	}
}
