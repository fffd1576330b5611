// Package dispatch decides which ride actions are valid in which presentation
// state and runs them against the gateway.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"ridetrack/internal/domain"
	"ridetrack/internal/gateway"
	"ridetrack/internal/logging"
	"ridetrack/internal/observability"
)

// Options configures a Controller. Zero values use defaults.
type Options struct {
	Clock    clock.Clock
	FreeWait time.Duration
	Logger   *slog.Logger
}

// Controller runs the actions of one user on their active ride.
//
// The session feeds it every ride update through Sync. Each action is gated on
// the current presentation state and may have at most one mutation in flight.
// After Close every result is discarded and every action fails with
// ErrControllerClosed.
type Controller struct {
	userID   string
	role     domain.Role
	rides    gateway.RideMutator
	nav      Navigator
	clock    clock.Clock
	freeWait time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	ride        *domain.Ride
	status      domain.PresentationStatus
	notified    bool
	cancelToken string
	inFlight    map[Action]bool
	wait        *WaitTimer
	exited      bool
	closed      bool
}

// New creates a controller with no ride.
func New(userID string, role domain.Role, rides gateway.RideMutator, nav Navigator, opts Options) *Controller {
	c := &Controller{
		userID:   userID,
		role:     role,
		rides:    rides,
		nav:      nav,
		clock:    opts.Clock,
		freeWait: opts.FreeWait,
		logger:   logging.OrDefault(opts.Logger),
		inFlight: make(map[Action]bool),
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.freeWait <= 0 {
		c.freeWait = DefaultFreeWait
	}
	return c
}

// Sync applies a ride update with its projected presentation status. A nil
// ride means there is no active ride.
func (c *Controller) Sync(ride *domain.Ride, p domain.PresentationStatus) {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return
	}

	var prevID string
	if c.ride != nil {
		prevID = c.ride.ID
	}
	newRide := ride == nil || ride.ID != prevID
	prev := c.status

	if ride == nil {
		p = ""
	}

	if newRide {
		c.notified = false
		c.exited = false
		c.wait = nil
	}
	if newRide || p != prev {
		c.cancelToken = ""
	}

	switch {
	case p == domain.PresentationArrived && (newRide || prev != domain.PresentationArrived):
		w := NewWaitTimer(c.clock.Now(), c.freeWait)
		c.wait = &w
	case p != domain.PresentationArrived:
		c.wait = nil
	}

	c.ride = ride
	c.status = p

	var exit func()
	if p.IsTerminal() && !c.exited {
		c.exited = true
		id := ride.ID
		if p == domain.PresentationDone {
			exit = func() { c.nav.ExitRating(id) }
		} else {
			exit = func() { c.nav.ExitHome(id) }
		}
	}
	c.mu.Unlock()

	if exit != nil {
		exit()
	}
}

// Close detaches the controller from its view. Mutations still in flight
// complete but their results are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.wait = nil
	c.cancelToken = ""
}

// Status returns the presentation status last synced.
func (c *Controller) Status() domain.PresentationStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Allowed reports whether action can be invoked right now.
func (c *Controller) Allowed(action Action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allowedLocked(action)
}

func (c *Controller) allowedLocked(action Action) bool {
	if c.closed || c.ride == nil {
		return false
	}
	return allowed(c.role, c.status, action)
}

// Available returns the actions a client should render as enabled.
func (c *Controller) Available() []Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.availableLocked()
}

func (c *Controller) availableLocked() []Action {
	if c.closed || c.ride == nil {
		return nil
	}
	var out []Action
	for _, a := range ActionsFor(c.role, c.status) {
		if a == ActionNotifyComing && c.notified {
			continue
		}
		if c.inFlight[a] {
			continue
		}
		out = append(out, a)
	}
	return out
}

// State is a snapshot of the controller for rendering.
type State struct {
	Status        domain.PresentationStatus `json:"status"`
	Available     []Action                  `json:"available"`
	InFlight      []Action                  `json:"in_flight,omitempty"`
	Notified      bool                      `json:"notified"`
	CancelPending bool                      `json:"cancel_pending"`
	Wait          *WaitState                `json:"wait,omitempty"`
}

// State returns the controller state sampled now.
func (c *Controller) State() State {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Status:        c.status,
		Available:     c.availableLocked(),
		Notified:      c.notified,
		CancelPending: c.cancelToken != "",
	}
	for a, busy := range c.inFlight {
		if busy {
			s.InFlight = append(s.InFlight, a)
		}
	}
	sort.Slice(s.InFlight, func(i, j int) bool { return s.InFlight[i] < s.InFlight[j] })
	if c.wait != nil {
		w := c.wait.Sample(now)
		s.Wait = &w
	}
	return s
}

// Wait samples the ARRIVED countdown. ok is false outside ARRIVED.
func (c *Controller) Wait() (WaitState, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wait == nil {
		return WaitState{}, false
	}
	return c.wait.Sample(now), true
}

// RequestCancel is the first step of cancel. It returns the token that must be
// passed to ConfirmCancel. No mutation is issued.
func (c *Controller) RequestCancel() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrControllerClosed
	}
	if !c.allowedLocked(ActionCancel) {
		return "", ErrActionNotAllowed
	}
	if c.cancelToken == "" {
		c.cancelToken = uuid.NewString()
	}
	return c.cancelToken, nil
}

// AbortCancel drops a pending cancel confirmation.
func (c *Controller) AbortCancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelToken = ""
}

// ConfirmCancel issues the cancel mutation if token matches the pending
// request. On success the user is sent home; on failure the confirmation stays
// pending so it can be retried.
func (c *Controller) ConfirmCancel(ctx context.Context, token string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	if token == "" || token != c.cancelToken {
		c.mu.Unlock()
		return ErrConfirmationRequired
	}
	c.mu.Unlock()

	rideID, err := c.begin(ActionCancel)
	if err != nil {
		return err
	}

	err = c.rides.CancelRide(ctx, c.userID, rideID)
	observability.ObserveMutation("cancel_ride", err)

	live := c.finish(ActionCancel, rideID, func() {
		if err == nil {
			c.cancelToken = ""
			c.exited = true
		}
	})
	if !live {
		return err
	}
	if err != nil {
		c.fail(ActionCancel, rideID, "Could not cancel the ride. Please try again.", err)
		return fmt.Errorf("cancel ride: %w", err)
	}
	c.nav.ExitHome(rideID)
	return nil
}

// NotifyComing tells the driver the customer is on their way. After the first
// success it is a no-op for the rest of the ARRIVED state.
func (c *Controller) NotifyComing(ctx context.Context) error {
	c.mu.Lock()
	done := c.notified && !c.closed
	c.mu.Unlock()
	if done {
		return nil
	}

	rideID, err := c.begin(ActionNotifyComing)
	if err != nil {
		return err
	}

	err = c.rides.NotifyComing(ctx, c.userID, rideID)
	observability.ObserveMutation("notify_coming", err)

	live := c.finish(ActionNotifyComing, rideID, func() {
		if err == nil {
			c.notified = true
		}
	})
	if !live {
		return err
	}
	if err != nil {
		c.fail(ActionNotifyComing, rideID, "Could not notify the driver. Please try again.", err)
		return fmt.Errorf("notify coming: %w", err)
	}
	c.nav.Notice(Notice{Level: NoticeInfo, Action: ActionNotifyComing, Message: "Driver notified that you are coming"})
	return nil
}

// Call opens the dialer with the counterparty's phone number.
func (c *Controller) Call() error {
	ride, err := c.current(ActionCall)
	if err != nil {
		return err
	}

	phone := ride.CustomerPhone
	if c.role != domain.RoleDriver {
		// Unknown statuses render as ACCEPTED and may carry no driver.
		phone = ""
		if ride.Driver != nil {
			phone = ride.Driver.Phone
		}
	}
	if phone == "" {
		c.nav.Notice(Notice{Level: NoticeInfo, Action: ActionCall, Message: "Phone number not available"})
		return ErrNoPhone
	}
	c.nav.OpenDialer(phone)
	return nil
}

// OpenChat opens the chat surface scoped to the ride.
func (c *Controller) OpenChat() error {
	ride, err := c.current(ActionChat)
	if err != nil {
		return err
	}
	c.nav.OpenChat(ride.ID)
	return nil
}

// Share opens the share sheet with a trip summary.
func (c *Controller) Share() error {
	ride, err := c.current(ActionShare)
	if err != nil {
		return err
	}
	c.nav.Share(ShareSummary(ride))
	return nil
}

// NavigateToDropoff opens turn-by-turn navigation to the drop-off.
func (c *Controller) NavigateToDropoff() error {
	ride, err := c.current(ActionNavigateDropoff)
	if err != nil {
		return err
	}
	c.nav.OpenNavigation(ride.Dropoff)
	return nil
}

// ShareSummary is the text shared for a ride.
func ShareSummary(ride *domain.Ride) string {
	s := fmt.Sprintf("I'm on a ride from %s to %s", ride.Pickup.Address, ride.Dropoff.Address)
	if ride.Driver != nil {
		s += fmt.Sprintf(" with %s (%s %s)", ride.Driver.Name, ride.Driver.VehicleType, ride.Driver.VehiclePlate)
	}
	return s + ". Ride " + ride.ID
}

// current returns the ride if action is allowed. Local actions never go in
// flight.
func (c *Controller) current(action Action) (*domain.Ride, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrControllerClosed
	}
	if c.ride == nil {
		return nil, ErrNoRide
	}
	if !c.allowedLocked(action) {
		return nil, ErrActionNotAllowed
	}
	return c.ride, nil
}

// begin validates action and marks it in flight.
func (c *Controller) begin(action Action) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrControllerClosed
	}
	if c.ride == nil {
		return "", ErrNoRide
	}
	if !c.allowedLocked(action) {
		return "", ErrActionNotAllowed
	}
	if c.inFlight[action] {
		return "", ErrActionInFlight
	}
	c.inFlight[action] = true
	return c.ride.ID, nil
}

// finish clears the in-flight mark. apply runs under the lock only when the
// controller is still open and still on rideID; live reports that case.
func (c *Controller) finish(action Action, rideID string, apply func()) (live bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.inFlight, action)
	if c.closed || c.ride == nil || c.ride.ID != rideID {
		return false
	}
	if apply != nil {
		apply()
	}
	return true
}

func (c *Controller) fail(action Action, rideID, message string, err error) {
	c.logger.Error("ride action failed",
		"op", string(action),
		"ride_id", rideID,
		"user_id", c.userID,
		"error", err,
	)
	c.nav.Notice(Notice{Level: NoticeError, Action: action, Message: message, Retryable: true})
}
