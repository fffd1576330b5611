package status

import (
	"testing"

	"ridetrack/internal/domain"
	"ridetrack/internal/logging"
)

func TestMap_KnownStatuses(t *testing.T) {
	t.Parallel()

	m := Mapper{Logger: logging.Discard()}
	testCases := []struct {
		raw  string
		want domain.PresentationStatus
	}{
		{"pending", domain.PresentationSearching},
		{"accepted", domain.PresentationAccepted},
		{"loading", domain.PresentationArrived},
		{"ongoing", domain.PresentationInProgress},
		{"delivered", domain.PresentationDone},
		{"completed", domain.PresentationDone},
		{"cancelled", domain.PresentationCancelled},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			if got := m.Map(tc.raw); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestMap_UnknownStatusFallsBack(t *testing.T) {
	t.Parallel()

	m := Mapper{Logger: logging.Discard()}
	for _, raw := range []string{"", "PENDING", "rerouting", "accepted "} {
		if got := m.Map(raw); got != Fallback {
			t.Errorf("%q: expected fallback %s, got %s", raw, Fallback, got)
		}
	}
}

func TestMap_EveryBackendStatusIsProjected(t *testing.T) {
	t.Parallel()

	for _, s := range domain.RideStatuses() {
		if !Known(s) {
			t.Errorf("ride status %q has no presentation projection", s)
		}
	}
}

func TestMap_Idempotent(t *testing.T) {
	t.Parallel()

	m := Mapper{Logger: logging.Discard()}
	for _, s := range domain.RideStatuses() {
		first := m.Map(string(s))
		if second := m.Map(string(s)); first != second {
			t.Errorf("%s: mapping changed between calls: %s then %s", s, first, second)
		}
	}
}

func TestRender_DriverCardAndPIN(t *testing.T) {
	t.Parallel()

	m := Mapper{Logger: logging.Discard()}
	ride := &domain.Ride{
		ID:           "ride-1",
		Status:       domain.RideStatusAccepted,
		FareEstimate: 4500,
		Driver: &domain.DriverAssignment{
			DriverID:        "driver-1",
			Name:            "Juma",
			Phone:           "+255700000001",
			VehicleType:     domain.VehicleBoda,
			VehiclePlate:    "MC 123 ABC",
			VerificationPIN: "4821",
		},
	}

	v := m.Render(ride)
	if v.Status != domain.PresentationAccepted {
		t.Fatalf("expected ACCEPTED, got %s", v.Status)
	}
	if v.Driver == nil || !v.Driver.HasPhone || v.Driver.Name != "Juma" {
		t.Errorf("unexpected driver card: %+v", v.Driver)
	}
	if !v.ShowPIN || v.PIN != "4821" {
		t.Errorf("expected PIN to be shown while ACCEPTED, got show=%v pin=%q", v.ShowPIN, v.PIN)
	}
	if v.Currency != domain.Currency {
		t.Errorf("expected default currency %s, got %s", domain.Currency, v.Currency)
	}

	ride.Status = domain.RideStatusOngoing
	v = m.Render(ride)
	if v.ShowPIN || v.PIN != "" {
		t.Error("PIN must be hidden once the trip is in progress")
	}
}

func TestRender_ExitTargets(t *testing.T) {
	t.Parallel()

	m := Mapper{Logger: logging.Discard()}

	done := m.Render(&domain.Ride{ID: "r", Status: domain.RideStatusDelivered, FareEstimate: 4500, FinalFare: 5000})
	if done.Exit != ExitRating {
		t.Errorf("expected rating exit, got %q", done.Exit)
	}
	if !done.FareIsFinal || done.Fare != 5000 {
		t.Errorf("expected final fare 5000, got %v final=%v", done.Fare, done.FareIsFinal)
	}

	cancelled := m.Render(&domain.Ride{ID: "r", Status: domain.RideStatusCancelled})
	if cancelled.Exit != ExitHome {
		t.Errorf("expected home exit, got %q", cancelled.Exit)
	}

	searching := m.Render(&domain.Ride{ID: "r", Status: domain.RideStatusPending})
	if searching.Exit != ExitNone || searching.Driver != nil {
		t.Errorf("unexpected searching view: %+v", searching)
	}
}
