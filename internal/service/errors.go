package service

import "errors"

var (
	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidUserID is returned when the acting user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidTransition is returned when a status change skips or reverses a stage.
	ErrInvalidTransition = errors.New("ride status transition not allowed")

	// ErrRideAlreadyAccepted is returned when a driver accepts a ride that is no longer pending.
	ErrRideAlreadyAccepted = errors.New("ride already accepted")

	// ErrNotAssignedDriver is returned when a driver acts on a ride assigned to someone else.
	ErrNotAssignedDriver = errors.New("driver not assigned to this ride")

	// ErrNotRideParticipant is returned when the caller is neither customer nor driver of the ride.
	ErrNotRideParticipant = errors.New("user is not a participant of this ride")

	// ErrNoActiveRide is returned when an operation needs an active ride and there is none.
	ErrNoActiveRide = errors.New("no active ride")

	// ErrActiveRideExists is returned when a customer orders while another ride is open.
	ErrActiveRideExists = errors.New("customer already has an active ride")

	// ErrDriverHasActiveRide is returned when a driver accepts while another ride is open.
	ErrDriverHasActiveRide = errors.New("driver already has an active ride")

	// ErrInvalidRating is returned when a rating is outside 1-5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrRideNotRatable is returned when rating a ride that is not delivered or completed.
	ErrRideNotRatable = errors.New("ride cannot be rated in current state")

	// ErrEmptyMessage is returned when a chat message has no text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a chat message exceeds maxMessageLength.
	ErrMessageTooLong = errors.New("message too long")

	// ErrInvalidLocation is returned when location coordinates are invalid.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrGeohashMismatch is returned when a location's geohash does not cover its coordinate.
	ErrGeohashMismatch = errors.New("geohash does not match coordinate")

	// ErrInvalidVehicleType is returned for an unknown vehicle type.
	ErrInvalidVehicleType = errors.New("invalid vehicle type")

	// ErrInvalidDistance is returned when a trip distance is not positive.
	ErrInvalidDistance = errors.New("invalid distance")

	// ErrInvalidPickupArea is returned when the pickup area is not a geohash.
	ErrInvalidPickupArea = errors.New("invalid pickup area")

	// ErrFareChanged is returned when the confirmed fare no longer matches the server price.
	ErrFareChanged = errors.New("quoted fare no longer matches current price")
)
