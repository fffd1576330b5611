package tracking

import (
	"context"
	"sync"
	"time"

	"ridetrack/internal/domain"
)

// Permission is the answer of a location permission request.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Fix is one device location reading.
type Fix struct {
	domain.Coordinate
	AccuracyM float64
	Heading   float64
	SpeedMps  float64
	At        time.Time
}

// LocationProvider is the device location capability. The core never owns OS
// permission state; it asks, then receives a stream and a teardown handle.
type LocationProvider interface {
	RequestPermission(ctx context.Context) (Permission, error)
	Subscribe(fn func(Fix)) (unsubscribe func(), err error)
}

// FeedProvider is a LocationProvider fed by fixes the device pushes to the
// service. Permission is whatever the device last reported.
type FeedProvider struct {
	mu         sync.RWMutex
	permission Permission
	nextID     int
	listeners  map[int]func(Fix)
}

// NewFeedProvider creates a provider with the given initial permission.
func NewFeedProvider(permission Permission) *FeedProvider {
	return &FeedProvider{permission: permission, listeners: make(map[int]func(Fix))}
}

// SetPermission records the permission state reported by the device.
func (p *FeedProvider) SetPermission(permission Permission) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permission = permission
}

// RequestPermission returns the reported permission.
func (p *FeedProvider) RequestPermission(ctx context.Context) (Permission, error) {
	if err := ctx.Err(); err != nil {
		return PermissionDenied, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.permission, nil
}

// Subscribe registers fn for every pushed fix.
func (p *FeedProvider) Subscribe(fn func(Fix)) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}, nil
}

// Push delivers a fix to every subscriber. Fixes are dropped while permission
// is not granted.
func (p *FeedProvider) Push(fix Fix) {
	p.mu.RLock()
	if p.permission != PermissionGranted {
		p.mu.RUnlock()
		return
	}
	fns := make([]func(Fix), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.RUnlock()

	for _, fn := range fns {
		fn(fix)
	}
}
