package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ridetrack/internal/domain"
	"ridetrack/internal/logging"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationRideRequested  NotificationType = "RIDE_REQUESTED"
	NotificationRideAccepted   NotificationType = "RIDE_ACCEPTED"
	NotificationDriverArrived  NotificationType = "DRIVER_ARRIVED"
	NotificationTripStarted    NotificationType = "TRIP_STARTED"
	NotificationTripDelivered  NotificationType = "TRIP_DELIVERED"
	NotificationRideCancelled  NotificationType = "RIDE_CANCELLED"
	NotificationCustomerComing NotificationType = "CUSTOMER_COMING"
	NotificationNewMessage     NotificationType = "NEW_MESSAGE"
)

// Notification represents a notification to be sent.
type Notification struct {
	ID          string
	Type        NotificationType
	RecipientID string
	Title       string
	Message     string
	Data        map[string]any
	CreatedAt   time.Time
}

// NotificationService delivers counterparty notifications. Delivery is a
// structured log record; push providers plug in behind send.
type NotificationService struct {
	logger *slog.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(logger *slog.Logger) *NotificationService {
	return &NotificationService{logger: logging.OrDefault(logger)}
}

// NotifyRideRequested notifies nearby drivers about a new order.
func (s *NotificationService) NotifyRideRequested(ctx context.Context, ride *domain.Ride, driverIDs []string) {
	for _, driverID := range driverIDs {
		s.send(ctx, Notification{
			Type:        NotificationRideRequested,
			RecipientID: driverID,
			Title:       "New Ride Request",
			Message:     fmt.Sprintf("New %s request near %s", ride.VehicleType, ride.Pickup.Address),
			Data: map[string]any{
				"ride_id": ride.ID,
				"fare":    ride.FareEstimate,
			},
		})
	}
}

// NotifyRideAccepted tells the customer who is coming.
func (s *NotificationService) NotifyRideAccepted(ctx context.Context, ride *domain.Ride) {
	if ride.Driver == nil {
		return
	}
	s.send(ctx, Notification{
		Type:        NotificationRideAccepted,
		RecipientID: ride.CustomerID,
		Title:       "Driver Found",
		Message:     fmt.Sprintf("%s is on the way in %s", ride.Driver.Name, ride.Driver.VehiclePlate),
		Data: map[string]any{
			"ride_id":   ride.ID,
			"driver_id": ride.Driver.DriverID,
		},
	})
}

// NotifyStatusChanged tells the customer about driver-side progress.
func (s *NotificationService) NotifyStatusChanged(ctx context.Context, ride *domain.Ride) {
	n := Notification{
		RecipientID: ride.CustomerID,
		Data:        map[string]any{"ride_id": ride.ID, "status": string(ride.Status)},
	}
	switch ride.Status {
	case domain.RideStatusLoading:
		n.Type, n.Title, n.Message = NotificationDriverArrived, "Driver Arrived", "Your driver is waiting at the pickup"
	case domain.RideStatusOngoing:
		n.Type, n.Title, n.Message = NotificationTripStarted, "Trip Started", "Your trip has started"
	case domain.RideStatusDelivered:
		n.Type, n.Title = NotificationTripDelivered, "Trip Finished"
		n.Message = fmt.Sprintf("You have arrived. Fare %.0f %s", ride.FinalFare, ride.Currency)
	default:
		return
	}
	s.send(ctx, n)
}

// NotifyRideCancelled notifies the other participant of a cancellation.
func (s *NotificationService) NotifyRideCancelled(ctx context.Context, ride *domain.Ride, cancelledBy string) {
	recipient := ride.Counterparty(cancelledBy)
	if recipient == "" {
		return
	}
	s.send(ctx, Notification{
		Type:        NotificationRideCancelled,
		RecipientID: recipient,
		Title:       "Ride Cancelled",
		Message:     "The ride has been cancelled",
		Data: map[string]any{
			"ride_id":      ride.ID,
			"cancelled_by": cancelledBy,
		},
	})
}

// NotifyCustomerComing tells the waiting driver the customer is on the way.
func (s *NotificationService) NotifyCustomerComing(ctx context.Context, ride *domain.Ride) {
	if ride.Driver == nil {
		return
	}
	s.send(ctx, Notification{
		Type:        NotificationCustomerComing,
		RecipientID: ride.Driver.DriverID,
		Title:       "Customer Coming",
		Message:     "The customer is on the way to the pickup",
		Data:        map[string]any{"ride_id": ride.ID},
	})
}

// NotifyNewMessage tells recipient about a chat message.
func (s *NotificationService) NotifyNewMessage(ctx context.Context, msg *domain.Message, recipientID string) {
	if recipientID == "" {
		return
	}
	s.send(ctx, Notification{
		Type:        NotificationNewMessage,
		RecipientID: recipientID,
		Title:       "New Message",
		Message:     msg.Body,
		Data: map[string]any{
			"ride_id":    msg.RideID,
			"message_id": msg.ID,
		},
	})
}

func (s *NotificationService) send(ctx context.Context, n Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.logger.InfoContext(ctx, "notification sent",
		"notification_id", n.ID,
		"type", string(n.Type),
		"recipient_id", n.RecipientID,
		"title", n.Title,
		"data", n.Data,
	)
}
