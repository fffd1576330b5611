// Package fare consumes server-computed fare estimates and gates order
// dispatch on a fresh quote for the exact current inputs.
package fare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcloughlin/geohash"

	"ridetrack/internal/domain"
	"ridetrack/internal/gateway"
	"ridetrack/internal/logging"
	"ridetrack/internal/observability"
)

// Status is the loading state of an estimate.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Estimate is the consumer state exposed to the dispatch UI.
type Estimate struct {
	Status Status            `json:"status"`
	Query  domain.FareQuery  `json:"query"`
	Quote  *domain.FareQuote `json:"quote,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// Options configures a Consumer.
type Options struct {
	Logger *slog.Logger
	// OnChange is called after every state change, outside any lock.
	OnChange func(Estimate)
}

// Consumer tracks the estimate for one customer's pending order.
type Consumer struct {
	customerID string
	feed       gateway.FareFeed
	rides      gateway.RideMutator
	logger     *slog.Logger
	onChange   func(Estimate)

	mu          sync.Mutex
	gen         uint64
	state       Estimate
	cancel      context.CancelFunc
	dispatching bool
	closed      bool
}

// NewConsumer creates an idle consumer.
func NewConsumer(customerID string, feed gateway.FareFeed, rides gateway.RideMutator, opts Options) *Consumer {
	return &Consumer{
		customerID: customerID,
		feed:       feed,
		rides:      rides,
		logger:     logging.OrDefault(opts.Logger),
		onChange:   opts.OnChange,
		state:      Estimate{Status: StatusIdle},
	}
}

// ValidateQuery checks the inputs of an estimate.
func ValidateQuery(q domain.FareQuery) error {
	if !q.VehicleType.Valid() {
		return fmt.Errorf("%w: unknown vehicle type %q", ErrInvalidQuery, q.VehicleType)
	}
	if !(q.DistanceKm > 0) {
		return fmt.Errorf("%w: distance must be positive", ErrInvalidQuery)
	}
	if q.PickupArea != "" {
		if err := geohash.Validate(q.PickupArea); err != nil {
			return fmt.Errorf("%w: pickup area: %v", ErrInvalidQuery, err)
		}
	}
	return nil
}

// SetQuery requests an estimate for q. A query equal to the current one is a
// no-op unless the last attempt failed. Any other query replaces the running
// subscription; results for older queries are discarded.
//
// The subscription outlives ctx's cancellation and ends on the next SetQuery
// or on Close.
func (c *Consumer) SetQuery(ctx context.Context, q domain.FareQuery) error {
	if err := ValidateQuery(q); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConsumerClosed
	}
	if c.state.Status != StatusIdle && c.state.Query == q && c.state.Status != StatusError {
		c.mu.Unlock()
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.state = Estimate{Status: StatusLoading, Query: q}
	state := c.state
	c.mu.Unlock()

	c.notify(state)

	ch, err := c.feed.SubscribeFareEstimate(subCtx, q)
	if err != nil {
		c.deliver(gen, q, gateway.FareResult{Err: err})
		return nil
	}

	go c.consume(subCtx, gen, q, ch)
	return nil
}

func (c *Consumer) consume(ctx context.Context, gen uint64, q domain.FareQuery, ch <-chan gateway.FareResult) {
	for res := range ch {
		c.deliver(gen, q, res)
	}
	if ctx.Err() != nil {
		return
	}
	// Feed ended on its own before any quote arrived.
	c.mu.Lock()
	stuck := c.gen == gen && c.state.Status == StatusLoading
	c.mu.Unlock()
	if stuck {
		c.deliver(gen, q, gateway.FareResult{Err: errors.New("fare estimate unavailable")})
	}
}

func (c *Consumer) deliver(gen uint64, q domain.FareQuery, res gateway.FareResult) {
	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return
	}

	switch {
	case res.Err != nil:
		c.logger.Error("fare estimate failed", "vehicle_type", string(q.VehicleType), "distance_km", q.DistanceKm, "error", res.Err)
		c.state = Estimate{Status: StatusError, Query: q, Error: res.Err.Error()}
	case res.Quote == nil || res.Quote.Query != q:
		c.mu.Unlock()
		c.logger.Warn("dropping fare quote for different inputs", "vehicle_type", string(q.VehicleType))
		return
	default:
		quote := *res.Quote
		c.state = Estimate{Status: StatusReady, Query: q, Quote: &quote}
		observability.FareQuotesTotal.WithLabelValues("subscription").Inc()
	}
	state := c.state
	c.mu.Unlock()

	c.notify(state)
}

func (c *Consumer) notify(e Estimate) {
	if c.onChange != nil {
		c.onChange(e)
	}
}

// State returns the current estimate.
func (c *Consumer) State() Estimate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CanConfirm reports whether q has a fresh, successful estimate.
func (c *Consumer) CanConfirm(q domain.FareQuery) bool {
	_, err := c.Confirm(q)
	return err == nil
}

// Confirm returns the quote for q, or why it cannot be used.
func (c *Consumer) Confirm(q domain.FareQuery) (*domain.FareQuote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConsumerClosed
	}
	if c.state.Status == StatusIdle || c.state.Query != q {
		return nil, ErrStaleQuery
	}
	if c.state.Status != StatusReady || c.state.Quote == nil {
		return nil, ErrFareNotReady
	}
	quote := *c.state.Quote
	return &quote, nil
}

// Order is the non-price part of a ride request.
type Order struct {
	Pickup       domain.Place `json:"pickup"`
	Dropoff      domain.Place `json:"dropoff"`
	ContactPhone string       `json:"contact_phone,omitempty"`
}

// Dispatch places the order for q at its confirmed fare. Only one dispatch
// may be in flight.
func (c *Consumer) Dispatch(ctx context.Context, q domain.FareQuery, order Order) (*domain.Ride, error) {
	quote, err := c.Confirm(q)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.dispatching {
		c.mu.Unlock()
		return nil, ErrDispatchInFlight
	}
	c.dispatching = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.dispatching = false
		c.mu.Unlock()
	}()

	ride, err := c.rides.RequestRide(ctx, gateway.RideRequest{
		CustomerID:    c.customerID,
		CustomerPhone: order.ContactPhone,
		Pickup:        order.Pickup,
		Dropoff:       order.Dropoff,
		Query:         q,
		QuotedFare:    quote.Fare,
	})
	observability.ObserveMutation("request_ride", err)
	if err != nil {
		c.logger.Error("ride request failed", "op", "request_ride", "customer_id", c.customerID, "error", err)
		return nil, fmt.Errorf("request ride: %w", err)
	}
	return ride, nil
}

// Close ends the running subscription. Later deliveries are discarded.
func (c *Consumer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
