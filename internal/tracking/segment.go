package tracking

import (
	"time"

	"ridetrack/internal/domain"
)

// Segment is one immutable animation leg from From to To. Renderers sample
// it with At; the reconciler replaces segments rather than editing them.
type Segment struct {
	From     domain.Coordinate
	To       domain.Coordinate
	Start    time.Time
	Duration time.Duration
	Ease     Easing
}

// At returns the interpolated position at t.
func (s Segment) At(t time.Time) domain.Coordinate {
	if s.Duration <= 0 || !t.Before(s.Start.Add(s.Duration)) {
		return s.To
	}
	if !t.After(s.Start) {
		return s.From
	}

	p := float64(t.Sub(s.Start)) / float64(s.Duration)
	ease := s.Ease
	if ease == nil {
		ease = Linear
	}
	e := ease(p)

	dLng := s.To.Lng - s.From.Lng
	// Take the short way across the antimeridian.
	if dLng > 180 {
		dLng -= 360
	} else if dLng < -180 {
		dLng += 360
	}

	return domain.Coordinate{
		Lat: s.From.Lat + (s.To.Lat-s.From.Lat)*e,
		Lng: normalizeLng(s.From.Lng + dLng*e),
	}
}

// Done reports whether the segment has reached its target at t.
func (s Segment) Done(t time.Time) bool {
	return s.Duration <= 0 || !t.Before(s.Start.Add(s.Duration))
}

func normalizeLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}
