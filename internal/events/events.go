// Package events publishes ride lifecycle events to downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names a lifecycle event.
type Type string

const (
	RideRequested     Type = "ride_requested"
	RideAccepted      Type = "ride_accepted"
	RideStatusChanged Type = "ride_status_changed"
	RideCancelled     Type = "ride_cancelled"
	CustomerComing    Type = "customer_coming"
	RideRated         Type = "ride_rated"
	MessageSent       Type = "message_sent"
	SOSTriggered      Type = "sos_triggered"
)

// Event is one lifecycle record. It is keyed by RideID on the wire so the
// events of a ride stay ordered.
type Event struct {
	ID          string         `json:"id"`
	Type        Type           `json:"type"`
	RideID      string         `json:"ride_id,omitempty"`
	ActorID     string         `json:"actor_id"`
	RecipientID string         `json:"recipient_id,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	At          time.Time      `json:"at"`
}

// New builds an event stamped now.
func New(t Type, rideID, actorID string) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    t,
		RideID:  rideID,
		ActorID: actorID,
		At:      time.Now().UTC(),
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
