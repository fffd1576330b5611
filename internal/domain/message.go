package domain

import "time"

// Message is a chat message scoped to a ride.
type Message struct {
	ID        string    `json:"id"`
	RideID    string    `json:"ride_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	ReadAt    time.Time `json:"read_at,omitempty"`
}

// SOSAlert is an emergency alert raised by a participant.
type SOSAlert struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	RideID    string      `json:"ride_id,omitempty"`
	Location  *Coordinate `json:"location,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
