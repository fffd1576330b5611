package status

import "ridetrack/internal/domain"

// Exit names where the client navigates when the ride leaves the tracking view.
type Exit string

const (
	ExitNone   Exit = ""
	ExitRating Exit = "rating"
	ExitHome   Exit = "home"
)

// View carries the fields a client needs to render one presentation state.
type View struct {
	RideID      string                    `json:"ride_id"`
	Status      domain.PresentationStatus `json:"status"`
	RawStatus   string                    `json:"raw_status"`
	Title       string                    `json:"title"`
	Pickup      domain.Place              `json:"pickup"`
	Dropoff     domain.Place              `json:"dropoff"`
	Driver      *DriverCard               `json:"driver,omitempty"`
	ShowPIN     bool                      `json:"show_pin"`
	PIN         string                    `json:"pin,omitempty"`
	Fare        float64                   `json:"fare"`
	FareIsFinal bool                      `json:"fare_is_final"`
	Currency    string                    `json:"currency"`
	Exit        Exit                      `json:"exit,omitempty"`
}

// DriverCard is the driver summary shown once a driver is assigned.
type DriverCard struct {
	Name         string             `json:"name"`
	Photo        string             `json:"photo,omitempty"`
	Rating       float64            `json:"rating"`
	VehicleType  domain.VehicleType `json:"vehicle_type"`
	VehiclePlate string             `json:"vehicle_plate"`
	HasPhone     bool               `json:"has_phone"`
}

var titles = map[domain.PresentationStatus]string{
	domain.PresentationSearching:  "Finding you a driver",
	domain.PresentationAccepted:   "Driver is on the way",
	domain.PresentationArrived:    "Driver has arrived",
	domain.PresentationInProgress: "On the way to drop-off",
	domain.PresentationDone:       "Trip complete",
	domain.PresentationCancelled:  "Ride cancelled",
}

// Render builds the view for ride using m to project its status.
func (m Mapper) Render(ride *domain.Ride) View {
	p := m.Map(string(ride.Status))

	v := View{
		RideID:    ride.ID,
		Status:    p,
		RawStatus: string(ride.Status),
		Title:     titles[p],
		Pickup:    ride.Pickup,
		Dropoff:   ride.Dropoff,
		Fare:      ride.FareEstimate,
		Currency:  ride.Currency,
	}
	if v.Currency == "" {
		v.Currency = domain.Currency
	}

	if ride.Driver != nil && p != domain.PresentationSearching {
		v.Driver = &DriverCard{
			Name:         ride.Driver.Name,
			Photo:        ride.Driver.Photo,
			Rating:       ride.Driver.Rating,
			VehicleType:  ride.Driver.VehicleType,
			VehiclePlate: ride.Driver.VehiclePlate,
			HasPhone:     ride.Driver.Phone != "",
		}
		// The PIN is only useful until the trip starts.
		if p == domain.PresentationAccepted || p == domain.PresentationArrived {
			v.ShowPIN = ride.Driver.VerificationPIN != ""
			v.PIN = ride.Driver.VerificationPIN
		}
	}

	switch p {
	case domain.PresentationDone:
		v.Exit = ExitRating
		if ride.FinalFare > 0 {
			v.Fare = ride.FinalFare
			v.FareIsFinal = true
		}
	case domain.PresentationCancelled:
		v.Exit = ExitHome
	}

	return v
}

// Render is Mapper{}.Render.
func Render(ride *domain.Ride) View {
	return Mapper{}.Render(ride)
}
