// Package tracking turns the low-frequency driver location stream into a
// smoothly interpolated map position, and throttles what a driver device
// reports upstream.
package tracking

import (
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"ridetrack/internal/domain"
	"ridetrack/internal/logging"
	"ridetrack/internal/observability"
)

// DefaultDuration is the animation window used when none is configured.
const DefaultDuration = 2 * time.Second

// ReconcilerOptions configures a Reconciler. Zero values use defaults.
type ReconcilerOptions struct {
	Clock    clock.Clock
	Duration time.Duration
	Ease     Easing
	Logger   *slog.Logger
}

// Reconciler holds the on-screen driver position for one ride.
type Reconciler struct {
	clock    clock.Clock
	duration time.Duration
	ease     Easing
	logger   *slog.Logger

	mu  sync.RWMutex
	seg Segment
	has bool
}

// NewReconciler creates a Reconciler with no position.
func NewReconciler(opts ReconcilerOptions) *Reconciler {
	r := &Reconciler{
		clock:    opts.Clock,
		duration: opts.Duration,
		ease:     opts.Ease,
		logger:   logging.OrDefault(opts.Logger),
	}
	if r.clock == nil {
		r.clock = clock.New()
	}
	if r.duration <= 0 {
		r.duration = DefaultDuration
	}
	if r.ease == nil {
		r.ease = EaseOutCubic
	}
	return r
}

// OnLocationUpdate retargets the animation to (lat, lng).
//
// The first update snaps. An update equal to the current target is ignored
// and does not restart the clock. Any other update starts a new segment from
// the position interpolated at this instant, replacing the one in flight.
// Invalid coordinates are rejected and the previous position is kept.
func (r *Reconciler) OnLocationUpdate(lat, lng float64) error {
	target := domain.Coordinate{Lat: lat, Lng: lng}
	if !target.Valid() {
		observability.RejectedCoordinatesTotal.Inc()
		r.logger.Warn("rejected driver location", "lat", lat, "lng", lng)
		return ErrInvalidCoordinate
	}

	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.has {
		r.seg = Segment{From: target, To: target, Start: now}
		r.has = true
		return nil
	}

	if r.seg.To == target {
		return nil
	}

	r.seg = Segment{
		From:     r.seg.At(now),
		To:       target,
		Start:    now,
		Duration: r.duration,
		Ease:     r.ease,
	}
	return nil
}

// CurrentPosition returns the position interpolated at call time. ok is false
// until the first valid update.
func (r *Reconciler) CurrentPosition() (pos domain.Coordinate, ok bool) {
	now := r.clock.Now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.has {
		return domain.Coordinate{}, false
	}
	return r.seg.At(now), true
}

// Segment returns the leg currently being animated, for renderers that
// interpolate on their side.
func (r *Reconciler) Segment() (Segment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.seg, r.has
}

// Animating reports whether a segment is still in flight.
func (r *Reconciler) Animating() bool {
	now := r.clock.Now()

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.has && !r.seg.Done(now)
}

// Reset discards the position. The next update snaps again.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seg = Segment{}
	r.has = false
}
