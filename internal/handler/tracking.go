package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridetrack/internal/domain"
	"ridetrack/internal/fare"
	"ridetrack/internal/session"
	"ridetrack/internal/tracking"
)

// TrackingHandler handles the tracking session endpoints.
type TrackingHandler struct {
	registry *session.Registry
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(registry *session.Registry) *TrackingHandler {
	return &TrackingHandler{registry: registry}
}

// CancelConfirmRequest represents the second step of a cancel.
type CancelConfirmRequest struct {
	Token string `json:"token" binding:"required"`
}

// CancelTokenResponse carries the token returned by the first cancel step.
type CancelTokenResponse struct {
	Token string `json:"token"`
}

// StartTripRequest represents the pin the customer reads to the driver.
type StartTripRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// PermissionRequest reports the device location permission.
type PermissionRequest struct {
	Permission tracking.Permission `json:"permission" binding:"required"`
}

// FixRequest is one device location reading.
type FixRequest struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	AccuracyM float64   `json:"accuracy_m"`
	Heading   float64   `json:"heading"`
	SpeedMps  float64   `json:"speed_mps"`
	At        time.Time `json:"at"`
}

// DispatchRequest places the order for the estimate the customer confirmed.
type DispatchRequest struct {
	Query domain.FareQuery `json:"query"`
	fare.Order
}

// StartSession handles POST /v1/tracking/session
func (h *TrackingHandler) StartSession(c *gin.Context) {
	userID, role, err := identity(c)
	if err != nil {
		respondError(c, err)
		return
	}

	s, created := h.registry.Start(userID, role)
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	respondJSON(c, code, s.Snapshot())
}

// StopSession handles DELETE /v1/tracking/session
func (h *TrackingHandler) StopSession(c *gin.Context) {
	userID, role, err := identity(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if !h.registry.Stop(userID, role) {
		respondError(c, errNoSession)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSnapshot handles GET /v1/tracking/snapshot
func (h *TrackingHandler) GetSnapshot(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	respondJSON(c, http.StatusOK, s.Snapshot())
}

// RequestCancel handles POST /v1/tracking/actions/cancel
func (h *TrackingHandler) RequestCancel(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	token, err := s.Controller().RequestCancel()
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, CancelTokenResponse{Token: token})
}

// ConfirmCancel handles POST /v1/tracking/actions/cancel/confirm
func (h *TrackingHandler) ConfirmCancel(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req CancelConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}

	if err := s.Controller().ConfirmCancel(c.Request.Context(), req.Token); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, s.Snapshot())
}

// AbortCancel handles POST /v1/tracking/actions/cancel/abort
func (h *TrackingHandler) AbortCancel(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Controller().AbortCancel()
	c.Status(http.StatusNoContent)
}

// RunAction handles POST /v1/tracking/actions/:action
func (h *TrackingHandler) RunAction(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	ctrl := s.Controller()
	var err error
	switch c.Param("action") {
	case "call":
		err = ctrl.Call()
	case "chat":
		err = ctrl.OpenChat()
	case "share":
		err = ctrl.Share()
	case "notify-coming":
		err = ctrl.NotifyComing(c.Request.Context())
	case "navigate":
		err = ctrl.NavigateToDropoff()
	default:
		err = errUnknownAction
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, ctrl.State())
}

// RunDriverAction handles POST /v1/tracking/driver/:action
func (h *TrackingHandler) RunDriverAction(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	ctrl := s.Controller()
	ctx := c.Request.Context()
	var err error
	switch c.Param("action") {
	case "arrive":
		err = ctrl.MarkArrived(ctx)
	case "start":
		var req StartTripRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			respondBadBody(c)
			return
		}
		err = ctrl.StartTrip(ctx, req.PIN)
	case "complete":
		err = ctrl.CompleteTrip(ctx)
	default:
		err = errUnknownAction
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, ctrl.State())
}

// ReportPermission handles POST /v1/tracking/permission
func (h *TrackingHandler) ReportPermission(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req PermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}

	if err := s.ReportPermission(c.Request.Context(), req.Permission); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PushLocation handles POST /v1/tracking/location
func (h *TrackingHandler) PushLocation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req FixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}
	if req.At.IsZero() {
		req.At = time.Now()
	}

	fix := tracking.Fix{
		Coordinate: domain.Coordinate{Lat: req.Lat, Lng: req.Lng},
		AccuracyM:  req.AccuracyM,
		Heading:    req.Heading,
		SpeedMps:   req.SpeedMps,
		At:         req.At,
	}
	if err := s.PushFix(fix); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// SetFareQuery handles PUT /v1/tracking/fare
func (h *TrackingHandler) SetFareQuery(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var q domain.FareQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		respondBadBody(c)
		return
	}

	if err := s.SetFareQuery(c.Request.Context(), q); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusAccepted, s.Fare().State())
}

// GetFare handles GET /v1/tracking/fare
func (h *TrackingHandler) GetFare(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	consumer := s.Fare()
	if consumer == nil {
		respondError(c, session.ErrNotRider)
		return
	}
	respondJSON(c, http.StatusOK, consumer.State())
}

// DispatchOrder handles POST /v1/tracking/fare/dispatch
func (h *TrackingHandler) DispatchOrder(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	consumer := s.Fare()
	if consumer == nil {
		respondError(c, session.ErrNotRider)
		return
	}

	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}

	ride, err := consumer.Dispatch(c.Request.Context(), req.Query, req.Order)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, ride)
}

// session resolves the caller's running session, writing the error response
// when there is none.
func (h *TrackingHandler) session(c *gin.Context) (*session.Session, bool) {
	userID, role, err := identity(c)
	if err != nil {
		respondError(c, err)
		return nil, false
	}

	s, ok := h.registry.Get(userID, role)
	if !ok {
		respondError(c, errNoSession)
		return nil, false
	}
	return s, true
}

