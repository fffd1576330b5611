package dispatch

import (
	"testing"
	"time"

	"ridetrack/internal/domain"
)

func TestWaitTimer_CountsDownThenOvertime(t *testing.T) {
	t.Parallel()

	start := time.Unix(1000, 0)
	w := NewWaitTimer(start, 300*time.Second)

	tests := []struct {
		name      string
		at        time.Duration
		remaining time.Duration
		overtime  bool
	}{
		{"at entry", 0, 300 * time.Second, false},
		{"sub-second does not tick", 900 * time.Millisecond, 300 * time.Second, false},
		{"one second", time.Second, 299 * time.Second, false},
		{"last second", 299 * time.Second, time.Second, false},
		{"budget used", 300 * time.Second, 0, true},
		{"past budget", 420 * time.Second, 0, true},
	}

	for _, tt := range tests {
		now := start.Add(tt.at)
		if got := w.Remaining(now); got != tt.remaining {
			t.Errorf("%s: expected remaining %v, got %v", tt.name, tt.remaining, got)
		}
		if got := w.Overtime(now); got != tt.overtime {
			t.Errorf("%s: expected overtime %v, got %v", tt.name, tt.overtime, got)
		}
	}

	if over := w.Sample(start.Add(420 * time.Second)).Over; over != 120*time.Second {
		t.Errorf("expected 120s over budget, got %v", over)
	}
}

func TestController_CountdownStartsOnArrived(t *testing.T) {
	t.Parallel()

	c, _, _, mock := newTestController(domain.RoleCustomer)
	syncRide(c, testRide("ride-1", domain.RideStatusAccepted))
	if _, ok := c.Wait(); ok {
		t.Fatal("no countdown before ARRIVED")
	}

	mock.Add(time.Minute)
	syncRide(c, testRide("ride-1", domain.RideStatusLoading))

	w, ok := c.Wait()
	if !ok || w.Remaining != 300*time.Second {
		t.Fatalf("expected full budget on entry, got %+v ok=%v", w, ok)
	}

	mock.Add(100 * time.Second)
	// Repeated ARRIVED updates for the same ride keep the original entry time.
	syncRide(c, testRide("ride-1", domain.RideStatusLoading))
	if w, _ := c.Wait(); w.Remaining != 200*time.Second {
		t.Errorf("expected 200s remaining, got %v", w.Remaining)
	}

	mock.Add(200 * time.Second)
	if w, _ := c.Wait(); !w.Overtime || w.Remaining != 0 {
		t.Errorf("expected overtime at budget, got %+v", w)
	}
}

func TestController_CountdownResetsOnReentry(t *testing.T) {
	t.Parallel()

	c, _, _, mock := newTestController(domain.RoleCustomer)
	syncRide(c, testRide("ride-1", domain.RideStatusLoading))
	mock.Add(250 * time.Second)

	syncRide(c, testRide("ride-1", domain.RideStatusCancelled))
	if _, ok := c.Wait(); ok {
		t.Error("countdown must be torn down when leaving ARRIVED")
	}

	syncRide(c, testRide("ride-2", domain.RideStatusLoading))
	w, ok := c.Wait()
	if !ok || w.Remaining != 300*time.Second || w.Overtime {
		t.Errorf("expected full budget for a new ride, got %+v", w)
	}
}
