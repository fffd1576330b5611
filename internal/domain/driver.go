package domain

// Driver is a driver profile. Its fields are copied into a ride on accept.
type Driver struct {
	ID           string
	Name         string
	Phone        string
	Photo        string
	Rating       float64
	VehicleType  VehicleType
	VehiclePlate string
}

// Assignment builds the ride's driver fields from the profile.
func (d *Driver) Assignment(pin string) *DriverAssignment {
	return &DriverAssignment{
		DriverID:        d.ID,
		Name:            d.Name,
		Phone:           d.Phone,
		Photo:           d.Photo,
		Rating:          d.Rating,
		VehicleType:     d.VehicleType,
		VehiclePlate:    d.VehiclePlate,
		VerificationPIN: pin,
	}
}
