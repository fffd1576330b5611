package tracking

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"ridetrack/internal/domain"
)

// Default driver send cadence.
const (
	DefaultMinInterval = 10 * time.Second
	DefaultMinDistance = 50.0 // meters
)

// LocationThrottle decides which device fixes a driver sends upstream: the
// first fix, then any fix after MinInterval has passed or the driver moved at
// least MinDistance meters since the last sent fix.
type LocationThrottle struct {
	clock       clock.Clock
	minInterval time.Duration
	minDistance float64

	mu     sync.Mutex
	last   domain.Coordinate
	lastAt time.Time
	has    bool
}

// NewLocationThrottle creates a throttle. Non-positive values use defaults;
// a zero distance is allowed and means "every fix that moved".
func NewLocationThrottle(c clock.Clock, minInterval time.Duration, minDistance float64) *LocationThrottle {
	if c == nil {
		c = clock.New()
	}
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	if minDistance < 0 {
		minDistance = DefaultMinDistance
	}
	return &LocationThrottle{clock: c, minInterval: minInterval, minDistance: minDistance}
}

// Allow reports whether pos should be sent now. It does not record anything.
func (t *LocationThrottle) Allow(pos domain.Coordinate) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.has {
		return true
	}
	if t.clock.Since(t.lastAt) >= t.minInterval {
		return true
	}
	moved := domain.DistanceMeters(t.last, pos)
	if t.minDistance == 0 {
		return moved > 0
	}
	return moved >= t.minDistance
}

// Mark records pos as sent.
func (t *LocationThrottle) Mark(pos domain.Coordinate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = pos
	t.lastAt = t.clock.Now()
	t.has = true
}
