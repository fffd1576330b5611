package domain

import (
	"math"
	"testing"
)

func TestRideStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		from RideStatus
		to   RideStatus
		want bool
	}{
		{RideStatusPending, RideStatusAccepted, true},
		{RideStatusAccepted, RideStatusLoading, true},
		{RideStatusLoading, RideStatusOngoing, true},
		{RideStatusOngoing, RideStatusDelivered, true},
		{RideStatusDelivered, RideStatusCompleted, true},
		{RideStatusPending, RideStatusLoading, false},
		{RideStatusOngoing, RideStatusAccepted, false},
		{RideStatusPending, RideStatusCancelled, true},
		{RideStatusOngoing, RideStatusCancelled, true},
		{RideStatusDelivered, RideStatusCancelled, false},
		{RideStatusCompleted, RideStatusCancelled, false},
		{RideStatusCancelled, RideStatusPending, false},
		{RideStatus("teleported"), RideStatusCancelled, true},
		{RideStatus("teleported"), RideStatusAccepted, false},
	}

	for _, tc := range testCases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestRideStatus_HasDriverMatchesLifecycle(t *testing.T) {
	t.Parallel()

	for _, s := range RideStatuses() {
		want := s != RideStatusPending && s != RideStatusCancelled
		if got := s.HasDriver(); got != want {
			t.Errorf("%s: expected HasDriver=%v, got %v", s, want, got)
		}
	}
}

func TestParseRideStatus(t *testing.T) {
	t.Parallel()

	for _, s := range RideStatuses() {
		if got, ok := ParseRideStatus(string(s)); !ok || got != s {
			t.Errorf("expected %s to parse, got %q ok=%v", s, got, ok)
		}
	}
	if _, ok := ParseRideStatus("PENDING"); ok {
		t.Error("status parsing must be case sensitive")
	}
}

func TestCoordinate_Valid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		c    Coordinate
		want bool
	}{
		{"dar es salaam", Coordinate{Lat: -6.7924, Lng: 39.2083}, true},
		{"poles", Coordinate{Lat: 90, Lng: -180}, true},
		{"lat too high", Coordinate{Lat: 90.1, Lng: 0}, false},
		{"lng too low", Coordinate{Lat: 0, Lng: -180.5}, false},
		{"nan", Coordinate{Lat: math.NaN(), Lng: 0}, false},
		{"inf", Coordinate{Lat: 0, Lng: math.Inf(1)}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.c.Valid(); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestDistanceMeters(t *testing.T) {
	t.Parallel()

	a := Coordinate{Lat: 0, Lng: 0}
	b := Coordinate{Lat: 0, Lng: 1}
	got := DistanceMeters(a, b)
	if math.Abs(got-111195) > 50 {
		t.Errorf("expected ~111195m for one degree at the equator, got %.0f", got)
	}
	if DistanceMeters(a, a) != 0 {
		t.Error("expected zero distance to self")
	}
}
