package dispatch

import (
	"context"
	"errors"
	"testing"

	"ridetrack/internal/domain"
)

func TestController_DriverLifecycle(t *testing.T) {
	t.Parallel()

	c, rides, _, _ := newTestController(domain.RoleDriver)
	ctx := context.Background()

	syncRide(c, testRide("ride-1", domain.RideStatusAccepted))
	if err := c.StartTrip(ctx, "4821"); !errors.Is(err, ErrActionNotAllowed) {
		t.Errorf("start before arrival: expected ErrActionNotAllowed, got %v", err)
	}
	if err := c.MarkArrived(ctx); err != nil {
		t.Fatalf("arrive: %v", err)
	}
	if rides.lastStatus != domain.RideStatusLoading {
		t.Errorf("expected loading, got %s", rides.lastStatus)
	}

	syncRide(c, testRide("ride-1", domain.RideStatusLoading))
	if err := c.StartTrip(ctx, "4821"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if rides.lastStatus != domain.RideStatusOngoing {
		t.Errorf("expected ongoing, got %s", rides.lastStatus)
	}

	syncRide(c, testRide("ride-1", domain.RideStatusOngoing))
	if err := c.CompleteTrip(ctx); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if rides.lastStatus != domain.RideStatusDelivered {
		t.Errorf("expected delivered, got %s", rides.lastStatus)
	}
	if got := rides.statusCalls.Load(); got != 3 {
		t.Errorf("expected 3 status mutations, got %d", got)
	}
}

func TestController_StartTripWrongPin(t *testing.T) {
	t.Parallel()

	c, rides, nav, _ := newTestController(domain.RoleDriver)
	syncRide(c, testRide("ride-1", domain.RideStatusLoading))

	if err := c.StartTrip(context.Background(), "0000"); !errors.Is(err, ErrPinMismatch) {
		t.Errorf("expected ErrPinMismatch, got %v", err)
	}
	if rides.statusCalls.Load() != 0 {
		t.Error("wrong pin must not reach the backend")
	}
	if n, ok := nav.lastNotice(); !ok || n.Action != ActionStartTrip {
		t.Errorf("expected start trip notice, got %+v", n)
	}
}

func TestController_DriverCannotUseRiderActions(t *testing.T) {
	t.Parallel()

	c, _, nav, _ := newTestController(domain.RoleDriver)
	syncRide(c, testRide("ride-1", domain.RideStatusLoading))

	if err := c.NotifyComing(context.Background()); !errors.Is(err, ErrActionNotAllowed) {
		t.Errorf("expected ErrActionNotAllowed, got %v", err)
	}
	if err := c.Call(); err != nil {
		t.Fatalf("call: %v", err)
	}
	if len(nav.dialed) != 1 || nav.dialed[0] != "+255700000001" {
		t.Errorf("expected customer phone dialed, got %v", nav.dialed)
	}
}
