// Package session hosts the tracking core for one user: it follows the user's
// active ride, projects it for rendering, animates the driver position and
// exposes the ride actions.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"ridetrack/internal/config"
	"ridetrack/internal/dispatch"
	"ridetrack/internal/domain"
	"ridetrack/internal/fare"
	"ridetrack/internal/gateway"
	"ridetrack/internal/logging"
	"ridetrack/internal/observability"
	"ridetrack/internal/status"
	"ridetrack/internal/tracking"
)

const (
	waitTickInterval     = time.Second
	defaultFrameInterval = 100 * time.Millisecond
	listenerBuffer       = 32
)

var (
	ErrFeedClosed     = errors.New("active ride feed closed")
	ErrAlreadyRunning = errors.New("session already running")
	ErrNotDriver      = errors.New("location sharing is only available to drivers")
	ErrNotRider       = errors.New("fare estimates are only available to ordering roles")
)

// Options configures a Session. Zero values use package defaults.
type Options struct {
	Clock               clock.Clock
	AnimationDuration   time.Duration
	FreeWait            time.Duration
	FrameInterval       time.Duration
	LocationMinInterval time.Duration
	LocationMinDistance float64
	Logger              *slog.Logger
}

// OptionsFromConfig maps the tracking configuration.
func OptionsFromConfig(cfg config.TrackingConfig, logger *slog.Logger) Options {
	return Options{
		AnimationDuration:   cfg.AnimationDuration,
		FreeWait:            cfg.FreeWait,
		FrameInterval:       cfg.FrameInterval,
		LocationMinInterval: cfg.LocationMinInterval,
		LocationMinDistance: cfg.LocationMinDistance,
		Logger:              logger,
	}
}

// Session is the tracking core of one user in one role.
type Session struct {
	userID string
	role   domain.Role
	feed   gateway.RideFeed
	clock  clock.Clock
	frame  time.Duration
	logger *slog.Logger

	mapper     status.Mapper
	reconciler *tracking.Reconciler
	controller *dispatch.Controller
	fare       *fare.Consumer
	provider   *tracking.FeedProvider
	reporter   *tracking.Reporter

	mu   sync.RWMutex
	ride *domain.Ride
	view *status.View

	listenersMu     sync.Mutex
	listeners       map[int]chan Event
	nextID          int
	listenersClosed bool

	runMu   sync.Mutex
	running bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a stopped session.
func New(userID string, role domain.Role, gw gateway.Gateway, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = defaultFrameInterval
	}
	logger := logging.OrDefault(opts.Logger).With("user_id", userID, "role", string(role))

	s := &Session{
		userID:    userID,
		role:      role,
		feed:      gw,
		clock:     opts.Clock,
		frame:     opts.FrameInterval,
		logger:    logger,
		mapper:    status.Mapper{Logger: logger},
		listeners: make(map[int]chan Event),
	}

	s.reconciler = tracking.NewReconciler(tracking.ReconcilerOptions{
		Clock:    opts.Clock,
		Duration: opts.AnimationDuration,
		Logger:   logger,
	})
	s.controller = dispatch.New(userID, role, gw, navigator{s: s}, dispatch.Options{
		Clock:    opts.Clock,
		FreeWait: opts.FreeWait,
		Logger:   logger,
	})

	if role.RequestsRides() {
		s.fare = fare.NewConsumer(userID, gw, gw, fare.Options{
			Logger: logger,
			OnChange: func(e fare.Estimate) {
				s.emit(Event{Type: EventFare, Fare: &e})
			},
		})
	}
	if role == domain.RoleDriver {
		s.provider = tracking.NewFeedProvider(tracking.PermissionDenied)
		throttle := tracking.NewLocationThrottle(opts.Clock, opts.LocationMinInterval, opts.LocationMinDistance)
		s.reporter = tracking.NewReporter(userID, s.provider, throttle, gw, logger)
	}

	return s
}

// UserID returns the session owner.
func (s *Session) UserID() string { return s.userID }

// Role returns the role the session tracks.
func (s *Session) Role() domain.Role { return s.role }

// Controller exposes the ride actions.
func (s *Session) Controller() *dispatch.Controller { return s.controller }

// Fare exposes the fare consumer. It is nil for drivers.
func (s *Session) Fare() *fare.Consumer { return s.fare }

// Run follows the active ride until ctx ends or Close is called. It drives the
// waiting countdown while the ride is ARRIVED and the position frames while
// the driver marker is animating.
func (s *Session) Run(ctx context.Context) error {
	s.runMu.Lock()
	if s.closed {
		s.runMu.Unlock()
		return nil
	}
	if s.running {
		s.runMu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.runMu.Unlock()

	observability.ActiveSessions.Inc()
	defer func() {
		observability.ActiveSessions.Dec()
		cancel()
		s.teardown()
		close(done)
	}()

	rides, err := s.feed.SubscribeActiveRide(ctx, s.userID, s.role)
	if err != nil {
		return err
	}
	s.logger.Info("tracking session started")

	var waitTicker, frameTicker *clock.Ticker
	defer func() {
		stopTicker(waitTicker)
		stopTicker(frameTicker)
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("tracking session stopped")
			return nil

		case ride, ok := <-rides:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Warn("active ride feed closed")
				return ErrFeedClosed
			}
			ev := s.apply(ride)
			waitTicker = s.syncTicker(waitTicker, s.controller.Status() == domain.PresentationArrived, waitTickInterval)
			frameTicker = s.syncTicker(frameTicker, s.reconciler.Animating(), s.frame)
			s.emit(ev)

		case <-tickerC(waitTicker):
			if w, ok := s.controller.Wait(); ok {
				s.emit(Event{Type: EventWaitTick, Wait: &w})
			}

		case <-tickerC(frameTicker):
			s.emitPosition()
			if !s.reconciler.Animating() {
				frameTicker = s.syncTicker(frameTicker, false, s.frame)
			}
		}
	}
}

// Close stops Run and waits for it to finish. Safe to call more than once.
func (s *Session) Close() {
	s.runMu.Lock()
	s.closed = true
	cancel, done, running := s.cancel, s.done, s.running
	s.runMu.Unlock()

	if !running {
		s.teardown()
		return
	}
	cancel()
	<-done
}

// Done is closed when Run returns. It is nil before Run.
func (s *Session) Done() <-chan struct{} {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.done
}

func (s *Session) teardown() {
	s.controller.Close()
	if s.fare != nil {
		s.fare.Close()
	}
	if s.reporter != nil {
		s.reporter.Stop()
	}

	s.listenersMu.Lock()
	s.listenersClosed = true
	for id, ch := range s.listeners {
		close(ch)
		delete(s.listeners, id)
	}
	s.listenersMu.Unlock()
}

// Apply processes one active ride value and emits the resulting snapshot.
func (s *Session) Apply(ride *domain.Ride) {
	s.emit(s.apply(ride))
}

func (s *Session) apply(ride *domain.Ride) Event {
	observability.RideUpdatesTotal.Inc()

	var p domain.PresentationStatus
	var view *status.View
	if ride != nil {
		v := s.mapper.Render(ride)
		view = &v
		p = v.Status
	}

	if ride == nil || ride.Driver == nil || p.IsTerminal() {
		s.reconciler.Reset()
	} else if loc := ride.DriverLocation; loc != nil {
		// Rejected values are logged by the reconciler; the previous
		// position stays on screen.
		_ = s.reconciler.OnLocationUpdate(loc.Lat, loc.Lng)
	}

	s.mu.Lock()
	s.ride = ride
	s.view = view
	s.mu.Unlock()

	s.controller.Sync(ride, p)

	snap := s.Snapshot()
	return Event{Type: EventSnapshot, Snapshot: &snap}
}

// Snapshot returns the current render state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		UserID:   s.userID,
		Role:     s.role,
		Controls: s.controller.State(),
		At:       s.clock.Now(),
	}

	s.mu.RLock()
	if s.view != nil {
		v := *s.view
		snap.Ride = &v
	}
	s.mu.RUnlock()

	if pos, ok := s.reconciler.CurrentPosition(); ok {
		snap.Position = &pos
	}
	if seg, ok := s.reconciler.Segment(); ok && seg.Duration > 0 {
		snap.Segment = segmentView(seg)
	}
	if s.fare != nil {
		e := s.fare.State()
		snap.Fare = &e
	}
	return snap
}

// Ride returns the last active ride value, or nil.
func (s *Session) Ride() *domain.Ride {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ride
}

// SetFareQuery updates the inputs of the pending order's estimate.
func (s *Session) SetFareQuery(ctx context.Context, q domain.FareQuery) error {
	if s.fare == nil {
		return ErrNotRider
	}
	return s.fare.SetQuery(ctx, q)
}

// ReportPermission records the device's location permission. Granting starts
// location sharing; denying stops it.
func (s *Session) ReportPermission(ctx context.Context, perm tracking.Permission) error {
	if s.reporter == nil {
		return ErrNotDriver
	}
	s.provider.SetPermission(perm)
	if perm != tracking.PermissionGranted {
		s.reporter.Stop()
		s.emit(Event{Type: EventNotice, Notice: &dispatch.Notice{
			Level:   dispatch.NoticeError,
			Message: "Location permission is required to share your position",
		}})
		return tracking.ErrPermissionDenied
	}
	return s.reporter.Start(ctx)
}

// PushFix delivers a device location reading to the reporter.
func (s *Session) PushFix(fix tracking.Fix) error {
	if s.provider == nil {
		return ErrNotDriver
	}
	if !fix.Coordinate.Valid() {
		return tracking.ErrInvalidCoordinate
	}
	s.provider.Push(fix)
	return nil
}

// Subscribe registers a listener. Events are dropped for listeners that fall
// behind. The channel is closed when the session ends or cancel is called.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	ch := make(chan Event, listenerBuffer)
	if s.listenersClosed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.listeners[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.listenersMu.Lock()
			defer s.listenersMu.Unlock()
			if c, ok := s.listeners[id]; ok {
				close(c)
				delete(s.listeners, id)
			}
		})
	}
}

func (s *Session) emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = s.clock.Now()
	}

	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	for _, ch := range s.listeners {
		select {
		case ch <- ev:
		default:
			observability.StreamDroppedEvents.Inc()
		}
	}
}

func (s *Session) emitNavigation(n Navigation) {
	s.emit(Event{Type: EventNavigate, Navigate: &n})
}

func (s *Session) emitPosition() {
	if pos, ok := s.reconciler.CurrentPosition(); ok {
		s.emit(Event{Type: EventPosition, Position: &pos})
	}
}

// syncTicker starts or stops t so that it runs exactly when want holds.
func (s *Session) syncTicker(t *clock.Ticker, want bool, d time.Duration) *clock.Ticker {
	switch {
	case want && t == nil:
		return s.clock.Ticker(d)
	case !want && t != nil:
		t.Stop()
		return nil
	default:
		return t
	}
}

func stopTicker(t *clock.Ticker) {
	if t != nil {
		t.Stop()
	}
}

// tickerC returns a nil channel for a stopped ticker so select skips it.
func tickerC(t *clock.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
