// Package status projects backend ride statuses onto the presentation states
// the tracking view renders.
package status

import (
	"log/slog"

	"ridetrack/internal/domain"
	"ridetrack/internal/observability"
)

// Fallback is used for status values this build does not recognize.
const Fallback = domain.PresentationAccepted

var projection = map[domain.RideStatus]domain.PresentationStatus{
	domain.RideStatusPending:   domain.PresentationSearching,
	domain.RideStatusAccepted:  domain.PresentationAccepted,
	domain.RideStatusLoading:   domain.PresentationArrived,
	domain.RideStatusOngoing:   domain.PresentationInProgress,
	domain.RideStatusDelivered: domain.PresentationDone,
	domain.RideStatusCompleted: domain.PresentationDone,
	domain.RideStatusCancelled: domain.PresentationCancelled,
}

// Mapper converts raw backend statuses. The zero value logs to slog.Default.
type Mapper struct {
	Logger *slog.Logger
}

// Map returns the presentation status for raw. It never fails: unknown
// values are logged and mapped to Fallback.
func (m Mapper) Map(raw string) domain.PresentationStatus {
	if s, ok := domain.ParseRideStatus(raw); ok {
		if p, ok := projection[s]; ok {
			return p
		}
	}

	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("unknown ride status, using fallback", "status", raw, "fallback", string(Fallback))
	observability.UnknownStatusTotal.WithLabelValues(raw).Inc()
	return Fallback
}

// Map is Mapper{}.Map.
func Map(raw string) domain.PresentationStatus {
	return Mapper{}.Map(raw)
}

// Known reports whether every backend status has a projection. It backs the
// exhaustiveness test so a newly added RideStatus fails the build pipeline
// until it is mapped.
func Known(s domain.RideStatus) bool {
	_, ok := projection[s]
	return ok
}
