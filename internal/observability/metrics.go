package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ridetrack"

var (
	// MutationsTotal counts gateway mutations issued by the tracking core.
	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "mutations_total", Help: "Gateway mutations by operation and result"},
		[]string{"op", "result"},
	)

	UnknownStatusTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "unknown_ride_status_total", Help: "Ride updates carrying an unrecognized status"},
		[]string{"status"},
	)

	RejectedCoordinatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "rejected_coordinates_total", Help: "Driver locations rejected by the reconciler"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{Namespace: namespace, Name: "active_tracking_sessions", Help: "Tracking sessions currently running"},
	)

	RideUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "ride_updates_total", Help: "Ride records delivered to tracking sessions"},
	)

	FareQuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "fare_quotes_total", Help: "Fare quotes served by source"},
		[]string{"source"},
	)

	StreamDroppedEvents = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "stream_dropped_events_total", Help: "Session events dropped for slow listeners"},
	)
)

// ObserveMutation records the outcome of a gateway mutation.
func ObserveMutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	MutationsTotal.WithLabelValues(op, result).Inc()
}
