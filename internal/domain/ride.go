package domain

import "time"

// RideStatus is the backend's vocabulary for a ride's lifecycle.
type RideStatus string

const (
	RideStatusPending   RideStatus = "pending"
	RideStatusAccepted  RideStatus = "accepted"
	RideStatusLoading   RideStatus = "loading"
	RideStatusOngoing   RideStatus = "ongoing"
	RideStatusDelivered RideStatus = "delivered"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCancelled RideStatus = "cancelled"
)

// rideStatusOrder is the normal forward progression. Cancelled sits outside it.
var rideStatusOrder = map[RideStatus]int{
	RideStatusPending:   0,
	RideStatusAccepted:  1,
	RideStatusLoading:   2,
	RideStatusOngoing:   3,
	RideStatusDelivered: 4,
	RideStatusCompleted: 5,
}

// RideStatuses returns every status the backend is known to emit.
func RideStatuses() []RideStatus {
	return []RideStatus{
		RideStatusPending,
		RideStatusAccepted,
		RideStatusLoading,
		RideStatusOngoing,
		RideStatusDelivered,
		RideStatusCompleted,
		RideStatusCancelled,
	}
}

// ParseRideStatus converts a raw backend string. ok is false for values this
// build does not know about.
func ParseRideStatus(raw string) (RideStatus, bool) {
	s := RideStatus(raw)
	if s == RideStatusCancelled {
		return s, true
	}
	_, ok := rideStatusOrder[s]
	return s, ok
}

// IsTerminal reports whether no further transitions are expected.
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// HasDriver reports whether a ride in this status carries driver fields.
func (s RideStatus) HasDriver() bool {
	switch s {
	case RideStatusAccepted, RideStatusLoading, RideStatusOngoing,
		RideStatusDelivered, RideStatusCompleted:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether next is a legal successor of s.
// Forward steps are exactly one stage at a time; cancelled overrides any
// non-terminal status except delivered.
func (s RideStatus) CanTransitionTo(next RideStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == RideStatusCancelled {
		return s != RideStatusDelivered
	}
	cur, ok := rideStatusOrder[s]
	if !ok {
		return false
	}
	n, ok := rideStatusOrder[next]
	if !ok {
		return false
	}
	return n == cur+1
}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is a coordinate with a human readable address.
type Place struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// Coordinate returns the point of the place.
func (p Place) Coordinate() Coordinate {
	return Coordinate{Lat: p.Lat, Lng: p.Lng}
}

// DriverAssignment holds the driver fields populated when a driver accepts.
type DriverAssignment struct {
	DriverID        string      `json:"driver_id"`
	Name            string      `json:"driver_name"`
	Phone           string      `json:"driver_phone"`
	Photo           string      `json:"driver_photo"`
	Rating          float64     `json:"driver_rating"`
	VehicleType     VehicleType `json:"vehicle_type"`
	VehiclePlate    string      `json:"vehicle_plate"`
	VerificationPIN string      `json:"verification_pin"`
}

// Currency used for every fare in the marketplace.
const Currency = "TZS"

// Ride is the backend-owned ride record.
type Ride struct {
	ID             string            `json:"id"`
	CustomerID     string            `json:"customer_id"`
	CustomerPhone  string            `json:"customer_phone,omitempty"`
	Status         RideStatus        `json:"status"`
	Pickup         Place             `json:"pickup_location"`
	Dropoff        Place             `json:"dropoff_location"`
	DistanceKm     float64           `json:"distance_km"`
	VehicleType    VehicleType       `json:"requested_vehicle_type"`
	IsBusiness     bool              `json:"is_business"`
	DriverLocation *Coordinate       `json:"driver_location,omitempty"`
	Driver         *DriverAssignment `json:"driver,omitempty"`
	FareEstimate   float64           `json:"fare_estimate"`
	FinalFare      float64           `json:"final_fare,omitempty"`
	Currency       string            `json:"currency"`
	Rating         int               `json:"rating,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	CancelledAt    time.Time         `json:"cancelled_at,omitempty"`
}

// IsParticipant reports whether userID is the customer or the assigned driver.
func (r *Ride) IsParticipant(userID string) bool {
	if userID == "" {
		return false
	}
	if r.CustomerID == userID {
		return true
	}
	return r.Driver != nil && r.Driver.DriverID == userID
}

// Counterparty returns the other participant of the ride, if any.
func (r *Ride) Counterparty(userID string) string {
	if r.CustomerID == userID {
		if r.Driver != nil {
			return r.Driver.DriverID
		}
		return ""
	}
	return r.CustomerID
}
