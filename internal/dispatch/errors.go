package dispatch

import "errors"

var (
	ErrActionNotAllowed     = errors.New("action not allowed in current ride state")
	ErrActionInFlight       = errors.New("action already in progress")
	ErrConfirmationRequired = errors.New("cancel requires confirmation")
	ErrNoPhone              = errors.New("phone number not available")
	ErrControllerClosed     = errors.New("controller closed")
	ErrPinMismatch          = errors.New("verification pin does not match")
	ErrNoRide               = errors.New("no active ride")
)
