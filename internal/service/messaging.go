package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"ridetrack/internal/domain"
	"ridetrack/internal/events"
	"ridetrack/internal/logging"
	"ridetrack/internal/repository"
)

const maxMessageLength = 1000

// MessagingService handles ride chat between the customer and the driver.
type MessagingService struct {
	rideRepo    repository.RideRepository
	messageRepo repository.MessageRepository
	notifier    *NotificationService
	ann         *announcer
	logger      *slog.Logger
}

// NewMessagingService creates a new MessagingService.
func NewMessagingService(
	rideRepo repository.RideRepository,
	messageRepo repository.MessageRepository,
	notifier *NotificationService,
	publisher events.Publisher,
	logger *slog.Logger,
) *MessagingService {
	logger = logging.OrDefault(logger)
	if notifier == nil {
		notifier = NewNotificationService(logger)
	}
	return &MessagingService{
		rideRepo:    rideRepo,
		messageRepo: messageRepo,
		notifier:    notifier,
		ann:         &announcer{publisher: publisher, logger: logger},
		logger:      logger,
	}
}

// SendMessage posts text to the ride's chat.
func (s *MessagingService) SendMessage(ctx context.Context, senderID, rideID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > maxMessageLength {
		return ErrMessageTooLong
	}

	ride, err := s.participantRide(ctx, senderID, rideID)
	if err != nil {
		return err
	}

	msg := &domain.Message{
		ID:        uuid.New().String(),
		RideID:    ride.ID,
		SenderID:  senderID,
		Body:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return err
	}

	recipient := ride.Counterparty(senderID)
	ev := events.New(events.MessageSent, ride.ID, senderID)
	ev.RecipientID = recipient
	ev.Data = map[string]any{"message_id": msg.ID}
	s.ann.publish(ctx, ev)
	s.notifier.NotifyNewMessage(ctx, msg, recipient)
	return nil
}

// MarkMessagesRead marks the counterparty's messages as read by readerID.
func (s *MessagingService) MarkMessagesRead(ctx context.Context, readerID, rideID string) error {
	if _, err := s.participantRide(ctx, readerID, rideID); err != nil {
		return err
	}
	n, err := s.messageRepo.MarkRead(ctx, rideID, readerID, time.Now().UTC())
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "messages marked read", "ride_id", rideID, "reader_id", readerID, "count", n)
	return nil
}

// ListMessages returns the ride's chat history, oldest first.
func (s *MessagingService) ListMessages(ctx context.Context, readerID, rideID string) ([]domain.Message, error) {
	if _, err := s.participantRide(ctx, readerID, rideID); err != nil {
		return nil, err
	}
	stored, err := s.messageRepo.ListByRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(stored))
	for _, m := range stored {
		out = append(out, *m)
	}
	return out, nil
}

func (s *MessagingService) participantRide(ctx context.Context, userID, rideID string) (*domain.Ride, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.IsParticipant(userID) {
		return nil, ErrNotRideParticipant
	}
	return ride, nil
}
