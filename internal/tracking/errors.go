package tracking

import "errors"

var (
	// ErrInvalidCoordinate is returned for NaN, infinite or out-of-range input.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrPermissionDenied is returned when the location provider refuses access.
	ErrPermissionDenied = errors.New("location permission denied")
)
