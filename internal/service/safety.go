package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ridetrack/internal/domain"
	"ridetrack/internal/events"
	"ridetrack/internal/gateway"
	"ridetrack/internal/logging"
	"ridetrack/internal/repository"
)

// SafetyService handles emergency alerts.
type SafetyService struct {
	rideRepo repository.RideRepository
	sosRepo  repository.SOSRepository
	ann      *announcer
	logger   *slog.Logger
}

// NewSafetyService creates a new SafetyService.
func NewSafetyService(
	rideRepo repository.RideRepository,
	sosRepo repository.SOSRepository,
	publisher events.Publisher,
	logger *slog.Logger,
) *SafetyService {
	logger = logging.OrDefault(logger)
	return &SafetyService{
		rideRepo: rideRepo,
		sosRepo:  sosRepo,
		ann:      &announcer{publisher: publisher, logger: logger},
		logger:   logger,
	}
}

// TriggerSOS stores an alert and publishes it. The ride is optional; when
// given, the caller must be one of its participants.
func (s *SafetyService) TriggerSOS(ctx context.Context, req gateway.SOSRequest) error {
	if req.UserID == "" {
		return ErrInvalidUserID
	}
	if req.Location != nil && !req.Location.Valid() {
		return ErrInvalidLocation
	}
	if req.RideID != "" {
		ride, err := s.rideRepo.GetByID(ctx, req.RideID)
		if err != nil {
			return err
		}
		if !ride.IsParticipant(req.UserID) {
			return ErrNotRideParticipant
		}
	}

	alert := &domain.SOSAlert{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		RideID:    req.RideID,
		Location:  req.Location,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sosRepo.Create(ctx, alert); err != nil {
		return err
	}

	s.logger.WarnContext(ctx, "sos triggered", "sos_id", alert.ID, "user_id", alert.UserID, "ride_id", alert.RideID)

	ev := events.New(events.SOSTriggered, alert.RideID, alert.UserID)
	ev.Data = map[string]any{"sos_id": alert.ID}
	if alert.Location != nil {
		ev.Data["lat"] = alert.Location.Lat
		ev.Data["lng"] = alert.Location.Lng
	}
	s.ann.publish(ctx, ev)
	return nil
}
