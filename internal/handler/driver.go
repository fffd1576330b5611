package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridetrack/internal/domain"
	"ridetrack/internal/repository"
)

// DriverHandler handles driver profile registration.
type DriverHandler struct {
	driverRepo repository.DriverRepository
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverRepo repository.DriverRepository) *DriverHandler {
	return &DriverHandler{driverRepo: driverRepo}
}

// RegisterDriverRequest is the HTTP request body for driver registration.
type RegisterDriverRequest struct {
	Name         string             `json:"name"`
	Phone        string             `json:"phone"`
	Photo        string             `json:"photo_url"`
	VehicleType  domain.VehicleType `json:"vehicle_type"`
	VehiclePlate string             `json:"vehicle_plate"`
}

// DriverResponse is the HTTP response for driver data.
type DriverResponse struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Phone        string             `json:"phone"`
	Photo        string             `json:"photo_url,omitempty"`
	Rating       float64            `json:"rating"`
	VehicleType  domain.VehicleType `json:"vehicle_type"`
	VehiclePlate string             `json:"vehicle_plate"`
}

// Register handles POST /v1/drivers/register. The profile id is the caller.
func (h *DriverHandler) Register(c *gin.Context) {
	userID, role, err := identity(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if role != domain.RoleDriver {
		respondError(c, errDriverOnly)
		return
	}

	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}

	if req.Name == "" || req.Phone == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name and phone are required"})
		return
	}
	if !req.VehicleType.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid vehicle_type"})
		return
	}

	driver := &domain.Driver{
		ID:           userID,
		Name:         req.Name,
		Phone:        req.Phone,
		Photo:        req.Photo,
		Rating:       5.0,
		VehicleType:  req.VehicleType,
		VehiclePlate: req.VehiclePlate,
	}

	if err := h.driverRepo.Create(c.Request.Context(), driver); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, DriverResponse{
		ID:           driver.ID,
		Name:         driver.Name,
		Phone:        driver.Phone,
		Photo:        driver.Photo,
		Rating:       driver.Rating,
		VehicleType:  driver.VehicleType,
		VehiclePlate: driver.VehiclePlate,
	})
}
