package utils

// FareCalculator prices a ride linearly on great-circle distance.
type FareCalculator struct {
	BaseFare        float64
	PerKmRate       float64
	Currency        string
	AverageSpeedKmh float64
}

// FareEstimate is the priced result for a pickup/dropoff pair
type FareEstimate struct {
	DistanceKm      float64 `json:"distance_km"`
	Fare            float64 `json:"fare"`
	DurationMinutes int     `json:"duration_minutes"`
	Currency        string  `json:"currency"`
}

// FareInfo exposes the configured pricing constants
type FareInfo struct {
	BaseFare  float64 `json:"base_fare"`
	PerKmRate float64 `json:"per_km_rate"`
	Currency  string  `json:"currency"`
}

// NewFareCalculator builds a calculator. Negative rates are clamped to zero
// so a fare can never drop below zero.
func NewFareCalculator(baseFare, perKmRate float64, currency string, averageSpeedKmh float64) *FareCalculator {
	if baseFare < 0 {
		baseFare = 0
	}
	if perKmRate < 0 {
		perKmRate = 0
	}
	return &FareCalculator{
		BaseFare:        baseFare,
		PerKmRate:       perKmRate,
		Currency:        currency,
		AverageSpeedKmh: averageSpeedKmh,
	}
}

// Fare returns base + distance*rate. A nil, zero or negative distance yields the base fare.
func (f *FareCalculator) Fare(distanceKm *float64) float64 {
	if distanceKm == nil || *distanceKm <= 0 {
		return Round2(f.BaseFare)
	}
	return Round2(f.BaseFare + *distanceKm*f.PerKmRate)
}

// Estimate prices the trip between two points
func (f *FareCalculator) Estimate(pickup, dropoff Point) FareEstimate {
	distance := Round2(DistanceBetween(pickup, dropoff))
	return FareEstimate{
		DistanceKm:      distance,
		Fare:            f.Fare(&distance),
		DurationMinutes: CalculateETA(distance, f.AverageSpeedKmh),
		Currency:        f.Currency,
	}
}

// Info returns the pricing constants
func (f *FareCalculator) Info() FareInfo {
	return FareInfo{
		BaseFare:  f.BaseFare,
		PerKmRate: f.PerKmRate,
		Currency:  f.Currency,
	}
}
