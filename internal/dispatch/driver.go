package dispatch

import (
	"context"
	"crypto/subtle"
	"fmt"

	"ridetrack/internal/domain"
	"ridetrack/internal/observability"
)

// MarkArrived moves the ride to loading once the driver is at the pickup.
func (c *Controller) MarkArrived(ctx context.Context) error {
	return c.advance(ctx, ActionArrive, domain.RideStatusLoading, "Could not mark arrival. Please try again.")
}

// StartTrip checks the customer's verification PIN and moves the ride to
// ongoing.
func (c *Controller) StartTrip(ctx context.Context, pin string) error {
	c.mu.Lock()
	var want string
	if c.ride != nil && c.ride.Driver != nil {
		want = c.ride.Driver.VerificationPIN
	}
	c.mu.Unlock()

	if want != "" && subtle.ConstantTimeCompare([]byte(pin), []byte(want)) != 1 {
		c.nav.Notice(Notice{Level: NoticeError, Action: ActionStartTrip, Message: "PIN does not match", Retryable: true})
		return ErrPinMismatch
	}
	return c.advance(ctx, ActionStartTrip, domain.RideStatusOngoing, "Could not start the trip. Please try again.")
}

// CompleteTrip moves the ride to delivered at the drop-off.
func (c *Controller) CompleteTrip(ctx context.Context) error {
	return c.advance(ctx, ActionCompleteTrip, domain.RideStatusDelivered, "Could not complete the trip. Please try again.")
}

func (c *Controller) advance(ctx context.Context, action Action, next domain.RideStatus, message string) error {
	rideID, err := c.begin(action)
	if err != nil {
		return err
	}

	err = c.rides.UpdateRideStatus(ctx, c.userID, rideID, next)
	observability.ObserveMutation("update_ride_status", err)

	if !c.finish(action, rideID, nil) {
		return err
	}
	if err != nil {
		c.fail(action, rideID, message, err)
		return fmt.Errorf("update ride status to %s: %w", next, err)
	}
	return nil
}
