package session

import (
	"context"
	"sync"
	"sync/atomic"

	"ridetrack/internal/domain"
	"ridetrack/internal/gateway"
)

// fakeGateway is an in-memory gateway. Tests push ride values into the feed.
type fakeGateway struct {
	feed chan *domain.Ride

	cancelCalls   atomic.Int32
	notifyCalls   atomic.Int32
	locationCalls atomic.Int32

	mu        sync.Mutex
	locations []gateway.LocationUpdate
	fareSubs  map[domain.FareQuery]chan gateway.FareResult
	requests  []gateway.RideRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		feed:     make(chan *domain.Ride, 16),
		fareSubs: make(map[domain.FareQuery]chan gateway.FareResult),
	}
}

func (f *fakeGateway) SubscribeActiveRide(ctx context.Context, userID string, role domain.Role) (<-chan *domain.Ride, error) {
	return f.feed, nil
}

func (f *fakeGateway) AcceptRide(ctx context.Context, driverID, rideID string) error { return nil }

func (f *fakeGateway) UpdateRideStatus(ctx context.Context, actorID, rideID string, status domain.RideStatus) error {
	return nil
}

func (f *fakeGateway) CancelRide(ctx context.Context, actorID, rideID string) error {
	f.cancelCalls.Add(1)
	return nil
}

func (f *fakeGateway) NotifyComing(ctx context.Context, actorID, rideID string) error {
	f.notifyCalls.Add(1)
	return nil
}

func (f *fakeGateway) RateRide(ctx context.Context, raterID, rideID string, rating int) error {
	return nil
}

func (f *fakeGateway) RequestRide(ctx context.Context, req gateway.RideRequest) (*domain.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return &domain.Ride{ID: "ride-new", CustomerID: req.CustomerID, Status: domain.RideStatusPending}, nil
}

func (f *fakeGateway) UpdateDriverLocation(ctx context.Context, driverID string, update gateway.LocationUpdate) error {
	f.locationCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locations = append(f.locations, update)
	return nil
}

func (f *fakeGateway) SubscribeFareEstimate(ctx context.Context, q domain.FareQuery) (<-chan gateway.FareResult, error) {
	ch := make(chan gateway.FareResult, 1)
	f.mu.Lock()
	f.fareSubs[q] = ch
	f.mu.Unlock()
	return ch, nil
}

func (f *fakeGateway) SendMessage(ctx context.Context, senderID, rideID, text string) error {
	return nil
}

func (f *fakeGateway) MarkMessagesRead(ctx context.Context, readerID, rideID string) error {
	return nil
}

func (f *fakeGateway) ListMessages(ctx context.Context, readerID, rideID string) ([]domain.Message, error) {
	return nil, nil
}

func (f *fakeGateway) TriggerSOS(ctx context.Context, req gateway.SOSRequest) error { return nil }

var _ gateway.Gateway = (*fakeGateway)(nil)

func gatewayQuote(q domain.FareQuery, amount float64) gateway.FareResult {
	return gateway.FareResult{Quote: &domain.FareQuote{Query: q, Fare: amount, Currency: domain.Currency}}
}
