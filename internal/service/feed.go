package service

import (
	"context"

	"ridetrack/internal/domain"
	"ridetrack/internal/observability"
)

// SubscribeActiveRide delivers the caller's active ride, then every change
// signalled on the caller's feed. The channel holds one value; an undelivered
// value is replaced by a newer one. It is closed when ctx ends.
func (s *RideService) SubscribeActiveRide(ctx context.Context, userID string, role domain.Role) (<-chan *domain.Ride, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if s.ann.broker == nil {
		return nil, ErrNoActiveRide
	}

	// Subscribe before the first load so no change falls in between.
	signals, err := s.ann.broker.Subscribe(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(chan *domain.Ride, 1)
	go func() {
		defer close(out)

		initial, err := s.activeRide(ctx, userID, role)
		if err != nil {
			s.logger.ErrorContext(ctx, "active ride load failed", "user_id", userID, "error", err)
		} else {
			offerLatest(out, initial)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case rideID, ok := <-signals:
				if !ok {
					return
				}
				ride, err := s.rideRepo.GetByID(ctx, rideID)
				if err != nil {
					s.logger.ErrorContext(ctx, "ride reload failed", "user_id", userID, "ride_id", rideID, "error", err)
					continue
				}
				if !ride.IsParticipant(userID) {
					continue
				}
				observability.RideUpdatesTotal.Inc()
				offerLatest(out, ride)
			}
		}
	}()
	return out, nil
}

func (s *RideService) activeRide(ctx context.Context, userID string, role domain.Role) (*domain.Ride, error) {
	if role == domain.RoleDriver {
		return s.rideRepo.GetActiveByDriver(ctx, userID)
	}
	return s.rideRepo.GetActiveByCustomer(ctx, userID)
}

// offerLatest puts ride on ch, evicting an undelivered older value. ch must
// have a single sender.
func offerLatest(ch chan *domain.Ride, ride *domain.Ride) {
	for {
		select {
		case ch <- ride:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
