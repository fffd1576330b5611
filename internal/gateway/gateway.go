// Package gateway describes the remote operations the ride tracking core
// depends on. The core consumes these interfaces only; the backend
// implementation lives in the service package.
package gateway

import (
	"context"

	"ridetrack/internal/domain"
)

// LocationUpdate is the payload of a driver location mutation.
type LocationUpdate struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Geohash string  `json:"geohash"`
}

// FareResult is one delivery of a fare estimate subscription. Exactly one of
// Quote and Err is set.
type FareResult struct {
	Quote *domain.FareQuote
	Err   error
}

// SOSRequest is the payload of an SOS trigger. RideID is optional.
type SOSRequest struct {
	UserID   string             `json:"user_id"`
	RideID   string             `json:"ride_id,omitempty"`
	Location *domain.Coordinate `json:"location,omitempty"`
}

// RideRequest creates an order. The fare is always re-priced server-side;
// QuotedFare is the value the customer confirmed and must match.
type RideRequest struct {
	CustomerID    string
	CustomerPhone string
	Pickup        domain.Place
	Dropoff       domain.Place
	Query         domain.FareQuery
	QuotedFare    float64
}

// RideFeed delivers the caller's active ride. A nil value means there is no
// active ride. The channel is closed when ctx ends.
type RideFeed interface {
	SubscribeActiveRide(ctx context.Context, userID string, role domain.Role) (<-chan *domain.Ride, error)
}

// RideMutator covers the lifecycle mutations.
type RideMutator interface {
	AcceptRide(ctx context.Context, driverID, rideID string) error
	UpdateRideStatus(ctx context.Context, actorID, rideID string, status domain.RideStatus) error
	CancelRide(ctx context.Context, actorID, rideID string) error
	NotifyComing(ctx context.Context, actorID, rideID string) error
	RateRide(ctx context.Context, raterID, rideID string, rating int) error
	RequestRide(ctx context.Context, req RideRequest) (*domain.Ride, error)
}

// DriverLocator covers the driver location mutation.
type DriverLocator interface {
	UpdateDriverLocation(ctx context.Context, driverID string, update LocationUpdate) error
}

// FareFeed delivers server-computed fare estimates. The channel is closed
// when ctx ends or the backend has nothing more to deliver.
type FareFeed interface {
	SubscribeFareEstimate(ctx context.Context, query domain.FareQuery) (<-chan FareResult, error)
}

// Messenger covers ride chat.
type Messenger interface {
	SendMessage(ctx context.Context, senderID, rideID, text string) error
	MarkMessagesRead(ctx context.Context, readerID, rideID string) error
	ListMessages(ctx context.Context, readerID, rideID string) ([]domain.Message, error)
}

// Safety covers emergency alerts.
type Safety interface {
	TriggerSOS(ctx context.Context, req SOSRequest) error
}

// Gateway is the full remote data surface.
type Gateway interface {
	RideFeed
	RideMutator
	DriverLocator
	FareFeed
	Messenger
	Safety
}
