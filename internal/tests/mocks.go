package tests

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ridetrack/internal/domain"
	"ridetrack/internal/events"
	"ridetrack/internal/redis"
	"ridetrack/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	CreateCallCount int32

	CreateError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.AddDriver(driver)
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *driver
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository. Update
// honors the expected-status condition like the Postgres implementation.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride

	CreateCallCount int32
	UpdateCallCount int32

	CreateError error
	UpdateError error

	// PendingNear is returned by CountPendingNear.
	PendingNear int
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
	}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = cloneRide(ride)
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.AddRide(ride)
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneRide(ride), nil
}

func (m *MockRideRepository) Update(ctx context.Context, ride *domain.Ride, expected domain.RideStatus) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rides[ride.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != expected {
		return repository.ErrConflict
	}
	m.rides[ride.ID] = cloneRide(ride)
	return nil
}

func (m *MockRideRepository) GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Ride, error) {
	return m.active(func(r *domain.Ride) bool { return r.CustomerID == customerID }), nil
}

func (m *MockRideRepository) GetActiveByDriver(ctx context.Context, driverID string) (*domain.Ride, error) {
	return m.active(func(r *domain.Ride) bool { return r.Driver != nil && r.Driver.DriverID == driverID }), nil
}

func (m *MockRideRepository) active(match func(*domain.Ride) bool) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.Ride
	for _, r := range m.rides {
		if r.Status.IsTerminal() || !match(r) {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil
	}
	return cloneRide(latest)
}

func (m *MockRideRepository) SetDriverLocation(ctx context.Context, rideID string, loc domain.Coordinate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	ride.DriverLocation = &loc
	return nil
}

func (m *MockRideRepository) CountPendingNear(ctx context.Context, lat, lng, radiusKm float64) (int, error) {
	return m.PendingNear, nil
}

// GetRide returns a ride directly (for test verification).
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rides[id]; ok {
		return cloneRide(r)
	}
	return nil
}

// CountRides returns the number of rides.
func (m *MockRideRepository) CountRides() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rides)
}

func cloneRide(r *domain.Ride) *domain.Ride {
	c := *r
	if r.Driver != nil {
		d := *r.Driver
		c.Driver = &d
	}
	if r.DriverLocation != nil {
		l := *r.DriverLocation
		c.DriverLocation = &l
	}
	return &c
}

// ──────────────────────────────────────────────
// MOCK MESSAGE + SOS REPOSITORIES
// ──────────────────────────────────────────────

// MockMessageRepository is a mock implementation of MessageRepository.
type MockMessageRepository struct {
	mu       sync.Mutex
	messages []*domain.Message

	CreateError error
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{}
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *msg
	m.messages = append(m.messages, &c)
	return nil
}

func (m *MockMessageRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Message
	for _, msg := range m.messages {
		if msg.RideID == rideID {
			c := *msg
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, rideID, readerID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.messages {
		if msg.RideID == rideID && msg.SenderID != readerID && msg.ReadAt.IsZero() {
			msg.ReadAt = at
			n++
		}
	}
	return n, nil
}

// MockSOSRepository is a mock implementation of SOSRepository.
type MockSOSRepository struct {
	mu     sync.Mutex
	alerts []*domain.SOSAlert
}

func NewMockSOSRepository() *MockSOSRepository {
	return &MockSOSRepository{}
}

func (m *MockSOSRepository) Create(ctx context.Context, alert *domain.SOSAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *alert
	m.alerts = append(m.alerts, &c)
	return nil
}

// Alerts returns the stored alerts.
func (m *MockSOSRepository) Alerts() []*domain.SOSAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.SOSAlert(nil), m.alerts...)
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStoreInterface.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]redis.DriverLocation
	geohashes map[string]string

	UpdateLocationCallCount int32

	FindNearbyError error
}

func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make(map[string]redis.DriverLocation),
		geohashes: make(map[string]string),
	}
}

// AddDriverLocation seeds a location.
func (m *MockLocationStore) AddDriverLocation(loc redis.DriverLocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[loc.DriverID] = loc
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64, geohash string) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = redis.DriverLocation{DriverID: driverID, Lat: lat, Lng: lng}
	m.geohashes[driverID] = geohash
	return nil
}

// All drivers are "nearby" in the mock.
func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	if m.FindNearbyError != nil {
		return nil, m.FindNearbyError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]redis.DriverLocation, 0, len(m.locations))
	for _, l := range m.locations {
		out = append(out, l)
	}
	return out, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	delete(m.geohashes, driverID)
	return nil
}

// HasLocation reports whether the driver is in the index.
func (m *MockLocationStore) HasLocation(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locations[driverID]
	return ok
}

// Geohash returns the stored geohash of the driver.
func (m *MockLocationStore) Geohash(driverID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.geohashes[driverID]
}

// MockLockStore is a mock implementation of LockStoreInterface. Locks carry
// owner tokens and release is compare-and-delete, as in Redis.
type MockLockStore struct {
	mu       sync.Mutex
	locks    map[string]string
	takeover map[string]bool
	seq      int

	AcquireCallCount int32
}

// otherInstanceToken marks locks held by a different backend instance.
const otherInstanceToken = "other-instance"

func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]string), takeover: make(map[string]bool)}
}

func (m *MockLockStore) AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (string, bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[rideID]; held {
		return "", false, nil
	}
	m.seq++
	token := fmt.Sprintf("token-%d", m.seq)
	m.locks[rideID] = token
	if m.takeover[rideID] {
		// The lock expires right away and another instance grabs it.
		m.locks[rideID] = otherInstanceToken
	}
	return token, true, nil
}

func (m *MockLockStore) ReleaseRideLock(ctx context.Context, rideID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[rideID] == token {
		delete(m.locks, rideID)
	}
	return nil
}

// Hold takes the lock as another instance would.
func (m *MockLockStore) Hold(rideID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[rideID] = otherInstanceToken
}

// TakeOverAfterAcquire makes the next successful acquire of rideID lose the
// lock to another instance before the holder releases it.
func (m *MockLockStore) TakeOverAfterAcquire(rideID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.takeover[rideID] = true
}

// IsLocked reports whether the ride lock is held.
func (m *MockLockStore) IsLocked(rideID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[rideID]
	return held
}

// HeldByOtherInstance reports whether another instance owns the ride lock.
func (m *MockLockStore) HeldByOtherInstance(rideID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks[rideID] == otherInstanceToken
}

// MockQuoteCache is a mock implementation of QuoteCacheInterface.
type MockQuoteCache struct {
	mu     sync.Mutex
	quotes map[domain.FareQuery]*domain.FareQuote

	GetCallCount int32
	SetCallCount int32
}

func NewMockQuoteCache() *MockQuoteCache {
	return &MockQuoteCache{quotes: make(map[domain.FareQuery]*domain.FareQuote)}
}

func (m *MockQuoteCache) GetQuote(ctx context.Context, q domain.FareQuery) (*domain.FareQuote, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if quote, ok := m.quotes[q]; ok {
		c := *quote
		return &c, nil
	}
	return nil, nil
}

func (m *MockQuoteCache) SetQuote(ctx context.Context, quote *domain.FareQuote) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *quote
	m.quotes[quote.Query] = &c
	return nil
}

// MockFeedBroker is an in-memory FeedBrokerInterface.
type MockFeedBroker struct {
	mu   sync.Mutex
	subs map[string][]chan string

	Published []string
}

func NewMockFeedBroker() *MockFeedBroker {
	return &MockFeedBroker{subs: make(map[string][]chan string)}
}

func (m *MockFeedBroker) Publish(ctx context.Context, rideID string, userIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range userIDs {
		m.Published = append(m.Published, id+":"+rideID)
		for _, ch := range m.subs[id] {
			select {
			case ch <- rideID:
			default:
			}
		}
	}
	return nil
}

func (m *MockFeedBroker) Subscribe(ctx context.Context, userID string) (<-chan string, error) {
	ch := make(chan string, 16)
	m.mu.Lock()
	m.subs[userID] = append(m.subs[userID], ch)
	m.mu.Unlock()
	return ch, nil
}

// PublishedTo reports whether a change of rideID was signalled to userID.
func (m *MockFeedBroker) PublishedTo(userID, rideID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Published {
		if p == userID+":"+rideID {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []events.Event

	PublishError error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.PublishError
}

func (m *MockPublisher) Close() error { return nil }

// Types returns the published event types in order.
func (m *MockPublisher) Types() []events.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Type, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

// Last returns the most recent event of type t.
func (m *MockPublisher) Last(t events.Type) (events.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].Type == t {
			return m.events[i], true
		}
	}
	return events.Event{}, false
}

// Ensure mocks implement interfaces.
var (
	_ repository.RideRepository    = (*MockRideRepository)(nil)
	_ repository.DriverRepository  = (*MockDriverRepository)(nil)
	_ repository.MessageRepository = (*MockMessageRepository)(nil)
	_ repository.SOSRepository     = (*MockSOSRepository)(nil)
	_ redis.LocationStoreInterface = (*MockLocationStore)(nil)
	_ redis.LockStoreInterface     = (*MockLockStore)(nil)
	_ redis.QuoteCacheInterface    = (*MockQuoteCache)(nil)
	_ redis.FeedBrokerInterface    = (*MockFeedBroker)(nil)
	_ events.Publisher             = (*MockPublisher)(nil)
)
