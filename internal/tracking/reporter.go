package tracking

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmcloughlin/geohash"

	"ridetrack/internal/gateway"
	"ridetrack/internal/logging"
)

// geohashPrecision of 9 characters is roughly a 5m cell.
const geohashPrecision = 9

// LocationUpdater is the gateway mutation the reporter drives.
type LocationUpdater interface {
	UpdateDriverLocation(ctx context.Context, driverID string, update gateway.LocationUpdate) error
}

// Reporter forwards a driver's device fixes to the backend at the throttled
// cadence.
type Reporter struct {
	driverID string
	provider LocationProvider
	throttle *LocationThrottle
	updater  LocationUpdater
	logger   *slog.Logger

	// sendMu serializes fixes so the throttle check and the send it gates
	// cannot interleave with another fix.
	sendMu sync.Mutex

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
}

// NewReporter creates a stopped reporter.
func NewReporter(driverID string, provider LocationProvider, throttle *LocationThrottle, updater LocationUpdater, logger *slog.Logger) *Reporter {
	return &Reporter{
		driverID: driverID,
		provider: provider,
		throttle: throttle,
		updater:  updater,
		logger:   logging.OrDefault(logger),
	}
}

// Start asks for permission and subscribes to fixes. It is a no-op when the
// reporter is already running.
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unsubscribe != nil {
		return nil
	}

	perm, err := r.provider.RequestPermission(ctx)
	if err != nil {
		return err
	}
	if perm != PermissionGranted {
		return ErrPermissionDenied
	}

	r.ctx, r.cancel = context.WithCancel(context.WithoutCancel(ctx))
	unsubscribe, err := r.provider.Subscribe(r.onFix)
	if err != nil {
		r.cancel()
		return err
	}
	r.unsubscribe = unsubscribe
	return nil
}

// Stop tears down the subscription. Safe to call more than once.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *Reporter) onFix(fix Fix) {
	if !fix.Coordinate.Valid() {
		r.logger.Warn("dropping invalid device fix", "driver_id", r.driverID, "lat", fix.Lat, "lng", fix.Lng)
		return
	}

	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	if !r.throttle.Allow(fix.Coordinate) {
		return
	}

	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	update := gateway.LocationUpdate{
		Lat:     fix.Lat,
		Lng:     fix.Lng,
		Geohash: geohash.EncodeWithPrecision(fix.Lat, fix.Lng, geohashPrecision),
	}
	if err := r.updater.UpdateDriverLocation(ctx, r.driverID, update); err != nil {
		// Not marked, so the next fix is sent regardless of cadence.
		r.logger.Error("driver location update failed", "driver_id", r.driverID, "error", err)
		return
	}
	r.throttle.Mark(fix.Coordinate)
}
