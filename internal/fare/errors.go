package fare

import "errors"

var (
	// ErrFareNotReady is returned while the estimate is loading or failed.
	ErrFareNotReady = errors.New("fare estimate not ready")

	// ErrStaleQuery is returned when the caller's inputs differ from the ones
	// currently being estimated.
	ErrStaleQuery = errors.New("fare estimate is for different inputs")

	ErrInvalidQuery     = errors.New("invalid fare query")
	ErrDispatchInFlight = errors.New("dispatch already in progress")
	ErrConsumerClosed   = errors.New("fare consumer closed")
)
