package tests

import (
	"time"

	"ridetrack/internal/domain"
	"ridetrack/internal/logging"
	"ridetrack/internal/service"
)

// Fixture is a backend wired to mocks.
type Fixture struct {
	Rides     *MockRideRepository
	Drivers   *MockDriverRepository
	Messages  *MockMessageRepository
	SOS       *MockSOSRepository
	Locations *MockLocationStore
	Locks     *MockLockStore
	Quotes    *MockQuoteCache
	Broker    *MockFeedBroker
	Publisher *MockPublisher
	Backend   *service.Backend
}

// NewFixture builds a backend over fresh mocks.
func NewFixture() *Fixture {
	f := &Fixture{
		Rides:     NewMockRideRepository(),
		Drivers:   NewMockDriverRepository(),
		Messages:  NewMockMessageRepository(),
		SOS:       NewMockSOSRepository(),
		Locations: NewMockLocationStore(),
		Locks:     NewMockLockStore(),
		Quotes:    NewMockQuoteCache(),
		Broker:    NewMockFeedBroker(),
		Publisher: NewMockPublisher(),
	}
	f.Backend = service.NewBackend(service.Dependencies{
		Rides:     f.Rides,
		Drivers:   f.Drivers,
		Messages:  f.Messages,
		SOS:       f.SOS,
		Locations: f.Locations,
		Locks:     f.Locks,
		Quotes:    f.Quotes,
		Broker:    f.Broker,
		Publisher: f.Publisher,
		Logger:    logging.Discard(),
	})
	return f
}

var (
	kariakoo    = domain.Place{Lat: -6.8161, Lng: 39.2803, Address: "Kariakoo Market"}
	mlimaniCity = domain.Place{Lat: -6.7735, Lng: 39.2226, Address: "Mlimani City"}
)

// AddDriver seeds a driver profile.
func (f *Fixture) AddDriver(id string) *domain.Driver {
	d := &domain.Driver{
		ID:           id,
		Name:         "Juma " + id,
		Phone:        "+255711" + id,
		Photo:        "https://cdn.example/" + id + ".jpg",
		Rating:       4.8,
		VehicleType:  domain.VehicleBoda,
		VehiclePlate: "MC 123 ABC",
	}
	f.Drivers.AddDriver(d)
	return d
}

// AddRide seeds a ride in status for customerID, assigned to driverID when
// non-empty.
func (f *Fixture) AddRide(id, customerID, driverID string, status domain.RideStatus) *domain.Ride {
	r := &domain.Ride{
		ID:           id,
		CustomerID:   customerID,
		Status:       status,
		Pickup:       kariakoo,
		Dropoff:      mlimaniCity,
		DistanceKm:   7.4,
		VehicleType:  domain.VehicleBoda,
		FareEstimate: 4700,
		Currency:     domain.Currency,
		CreatedAt:    time.Now().UTC(),
	}
	if driverID != "" {
		r.Driver = &domain.DriverAssignment{DriverID: driverID, Name: "Juma", VerificationPIN: "4821"}
	}
	f.Rides.AddRide(r)
	return r
}
