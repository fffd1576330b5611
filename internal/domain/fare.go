package domain

import "time"

// VehicleType is the class of vehicle a customer requests.
type VehicleType string

const (
	VehicleBoda   VehicleType = "boda"
	VehicleBajaji VehicleType = "bajaji"
	VehicleCar    VehicleType = "car"
	VehiclePickup VehicleType = "pickup"
	VehicleTruck  VehicleType = "truck"
)

// Valid reports whether v is one of the supported vehicle types.
func (v VehicleType) Valid() bool {
	switch v {
	case VehicleBoda, VehicleBajaji, VehicleCar, VehiclePickup, VehicleTruck:
		return true
	default:
		return false
	}
}

// FareQuery is the input tuple of a fare estimate. It is comparable so that a
// quote can be matched against the exact inputs it was computed for.
type FareQuery struct {
	DistanceKm  float64     `json:"distance_km"`
	VehicleType VehicleType `json:"vehicle_type"`
	IsBusiness  bool        `json:"is_business"`

	// PickupArea is an optional geohash cell around the pickup. When set,
	// surge is priced for that cell.
	PickupArea string `json:"pickup_area,omitempty"`
}

// FareQuote is a server-computed price for a FareQuery.
type FareQuote struct {
	Query      FareQuery `json:"query"`
	Fare       float64   `json:"fare"`
	Currency   string    `json:"currency"`
	Surge      float64   `json:"surge"`
	ComputedAt time.Time `json:"computed_at"`
}
