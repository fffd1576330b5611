package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridetrack/internal/dispatch"
	"ridetrack/internal/fare"
	"ridetrack/internal/repository"
	"ridetrack/internal/service"
	"ridetrack/internal/session"
	"ridetrack/internal/tracking"
)

var (
	errMissingIdentity = errors.New("missing X-User-ID or X-User-Role header")
	errInvalidRole     = errors.New("invalid X-User-Role header")
	errNoSession       = errors.New("no tracking session; start one first")
	errUnknownAction   = errors.New("unknown action")
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

func respondBadBody(c *gin.Context) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
}

// mapErrorToHTTPStatus maps service, core and repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, errMissingIdentity):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, errNoSession),
		errors.Is(err, errUnknownAction),
		errors.Is(err, service.ErrNoActiveRide),
		errors.Is(err, dispatch.ErrNoRide):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, errInvalidRole),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrGeohashMismatch),
		errors.Is(err, service.ErrInvalidVehicleType),
		errors.Is(err, service.ErrInvalidDistance),
		errors.Is(err, service.ErrInvalidPickupArea),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrMessageTooLong),
		errors.Is(err, fare.ErrInvalidQuery),
		errors.Is(err, tracking.ErrInvalidCoordinate):
		return http.StatusBadRequest

	// Forbidden errors
	case errors.Is(err, service.ErrNotRideParticipant),
		errors.Is(err, errDriverOnly),
		errors.Is(err, service.ErrNotAssignedDriver),
		errors.Is(err, dispatch.ErrPinMismatch),
		errors.Is(err, tracking.ErrPermissionDenied),
		errors.Is(err, session.ErrNotDriver),
		errors.Is(err, session.ErrNotRider):
		return http.StatusForbidden

	// Conflict errors
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrRideAlreadyAccepted),
		errors.Is(err, service.ErrDriverHasActiveRide),
		errors.Is(err, service.ErrActiveRideExists),
		errors.Is(err, service.ErrRideNotRatable),
		errors.Is(err, service.ErrFareChanged),
		errors.Is(err, dispatch.ErrActionNotAllowed),
		errors.Is(err, dispatch.ErrActionInFlight),
		errors.Is(err, dispatch.ErrConfirmationRequired),
		errors.Is(err, dispatch.ErrControllerClosed),
		errors.Is(err, dispatch.ErrNoPhone),
		errors.Is(err, fare.ErrStaleQuery),
		errors.Is(err, fare.ErrDispatchInFlight),
		errors.Is(err, fare.ErrConsumerClosed):
		return http.StatusConflict

	// The estimate for the current inputs has not arrived yet
	case errors.Is(err, fare.ErrFareNotReady):
		return http.StatusTooEarly

	default:
		return http.StatusInternalServerError
	}
}
