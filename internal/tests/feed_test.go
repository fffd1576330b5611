package tests

import (
	"context"
	"testing"
	"time"

	"ridetrack/internal/domain"
)

// ──────────────────────────────────────────────
// 6. ACTIVE RIDE SUBSCRIPTION
// ──────────────────────────────────────────────

func nextRide(t *testing.T, ch <-chan *domain.Ride) *domain.Ride {
	t.Helper()
	select {
	case r, ok := <-ch:
		if !ok {
			t.Fatal("subscription closed")
		}
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a ride update")
	}
	return nil
}

func TestSubscribeActiveRide_InitialThenChanges(t *testing.T) {
	t.Parallel()

	f := NewFixture()
	f.AddDriver("drv-1")
	f.AddRide("ride-1", "cust-1", "", domain.RideStatusPending)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.Backend.SubscribeActiveRide(ctx, "cust-1", domain.RoleCustomer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r := nextRide(t, ch); r == nil || r.Status != domain.RideStatusPending {
		t.Fatalf("expected the pending ride first, got %+v", r)
	}

	if err := f.Backend.AcceptRide(context.Background(), "drv-1", "ride-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	r := nextRide(t, ch)
	if r.Status != domain.RideStatusAccepted || r.Driver == nil {
		t.Fatalf("expected accepted ride with driver, got %+v", r)
	}

	if err := f.Backend.CancelRide(context.Background(), "cust-1", "ride-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if r := nextRide(t, ch); r.Status != domain.RideStatusCancelled {
		t.Errorf("expected the cancelled ride to be delivered, got %s", r.Status)
	}
}

func TestSubscribeActiveRide_NilWithoutRide(t *testing.T) {
	t.Parallel()

	f := NewFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.Backend.SubscribeActiveRide(ctx, "drv-1", domain.RoleDriver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r := nextRide(t, ch); r != nil {
		t.Errorf("expected nil for no active ride, got %+v", r)
	}
}

func TestSubscribeActiveRide_LatestValueWins(t *testing.T) {
	t.Parallel()

	f := NewFixture()
	f.AddRide("ride-1", "cust-1", "drv-1", domain.RideStatusAccepted)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.Backend.SubscribeActiveRide(ctx, "cust-1", domain.RoleCustomer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Nobody reads while the ride moves on twice.
	for _, next := range []domain.RideStatus{domain.RideStatusLoading, domain.RideStatusOngoing} {
		if err := f.Backend.UpdateRideStatus(context.Background(), "drv-1", "ride-1", next); err != nil {
			t.Fatalf("update to %s: %v", next, err)
		}
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case r := <-ch:
			if r != nil && r.Status == domain.RideStatusOngoing {
				return
			}
		case <-deadline:
			t.Fatal("never observed the latest status")
		}
	}
}

func TestSubscribeActiveRide_ClosesWithContext(t *testing.T) {
	t.Parallel()

	f := NewFixture()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := f.Backend.SubscribeActiveRide(ctx, "cust-1", domain.RoleCustomer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription did not close")
		}
	}
}
