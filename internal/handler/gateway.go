package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridetrack/internal/domain"
	"ridetrack/internal/gateway"
	"ridetrack/internal/service"
)

var (
	errDriverOnly          = errors.New("endpoint is only available to drivers")
	errEstimateUnavailable = errors.New("fare estimate unavailable")
)

// Backend is the gateway surface plus the operational calls served over HTTP.
type Backend interface {
	gateway.Gateway
	SetDriverOffline(ctx context.Context, driverID string) error
}

// GatewayHandler exposes the backend mutations and queries.
type GatewayHandler struct {
	backend Backend
}

// NewGatewayHandler creates a new GatewayHandler.
func NewGatewayHandler(backend Backend) *GatewayHandler {
	return &GatewayHandler{backend: backend}
}

// UpdateStatusRequest represents a ride status change.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// RateRideRequest represents a customer rating.
type RateRideRequest struct {
	Rating int `json:"rating" binding:"required"`
}

// SendMessageRequest represents a chat message.
type SendMessageRequest struct {
	Body string `json:"body"`
}

// SOSRequest represents an emergency alert.
type SOSRequest struct {
	RideID   string             `json:"ride_id"`
	Location *domain.Coordinate `json:"location"`
}

// AcceptRide handles POST /v1/rides/:id/accept
func (h *GatewayHandler) AcceptRide(c *gin.Context) {
	userID, role, err := identity(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if role != domain.RoleDriver {
		respondError(c, errDriverOnly)
		return
	}

	if err := h.backend.AcceptRide(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateStatus handles POST /v1/rides/:id/status
func (h *GatewayHandler) UpdateStatus(c *gin.Context) {
	userID, _, err := identity(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}

	if err := h.backend.UpdateRideStatus(c.Request.Context(), userID, c.Param("id"), domain.RideStatus(req.Status)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RateRide handles POST /v1/rides/:id/rate
func (h *GatewayHandler) RateRide(c *gin.Context) {
	userID, _, err := identity(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req RateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}

	if err := h.backend.RateRide(c.Request.Context(), userID, c.Param("id"), req.Rating); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SendMessage handles POST /v1/rides/:id/messages
func (h *GatewayHandler) SendMessage(c *gin.Context) {
	userID, _, err := identity(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}

	if err := h.backend.SendMessage(c.Request.Context(), userID, c.Param("id"), req.Body); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// ListMessages handles GET /v1/rides/:id/messages
func (h *GatewayHandler) ListMessages(c *gin.Context) {
	userID, _, err := identity(c)
	if err != nil {
		respondError(c, err)
		return
	}

	msgs, err := h.backend.ListMessages(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	respondJSON(c, http.StatusOK, msgs)
}

// MarkMessagesRead handles POST /v1/rides/:id/messages/read
func (h *GatewayHandler) MarkMessagesRead(c *gin.Context) {
	userID, _, err := identity(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.backend.MarkMessagesRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateDriverLocation handles POST /v1/drivers/location
func (h *GatewayHandler) UpdateDriverLocation(c *gin.Context) {
	userID, role, err := identity(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if role != domain.RoleDriver {
		respondError(c, errDriverOnly)
		return
	}

	var req gateway.LocationUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}

	if err := h.backend.UpdateDriverLocation(c.Request.Context(), userID, req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetDriverOffline handles POST /v1/drivers/offline
func (h *GatewayHandler) SetDriverOffline(c *gin.Context) {
	userID, role, err := identity(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if role != domain.RoleDriver {
		respondError(c, errDriverOnly)
		return
	}

	if err := h.backend.SetDriverOffline(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TriggerSOS handles POST /v1/sos
func (h *GatewayHandler) TriggerSOS(c *gin.Context) {
	userID, _, err := identity(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req SOSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}

	err = h.backend.TriggerSOS(c.Request.Context(), gateway.SOSRequest{
		UserID:   userID,
		RideID:   req.RideID,
		Location: req.Location,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// EstimateFare handles GET /v1/fares/estimate
func (h *GatewayHandler) EstimateFare(c *gin.Context) {
	distance, err := strconv.ParseFloat(c.Query("distance_km"), 64)
	if err != nil {
		respondError(c, service.ErrInvalidDistance)
		return
	}
	isBusiness, _ := strconv.ParseBool(c.DefaultQuery("is_business", "false"))

	q := domain.FareQuery{
		DistanceKm:  distance,
		VehicleType: domain.VehicleType(c.Query("vehicle_type")),
		IsBusiness:  isBusiness,
		PickupArea:  c.Query("pickup_area"),
	}

	results, err := h.backend.SubscribeFareEstimate(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	res, ok := <-results
	if !ok {
		respondError(c, errEstimateUnavailable)
		return
	}
	if res.Err != nil {
		respondError(c, res.Err)
		return
	}
	respondJSON(c, http.StatusOK, res.Quote)
}
