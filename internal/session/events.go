package session

import (
	"time"

	"ridetrack/internal/dispatch"
	"ridetrack/internal/domain"
	"ridetrack/internal/fare"
	"ridetrack/internal/status"
	"ridetrack/internal/tracking"
)

// EventType names a session event on the stream.
type EventType string

const (
	EventSnapshot EventType = "snapshot"
	EventPosition EventType = "position"
	EventWaitTick EventType = "wait_tick"
	EventNotice   EventType = "notice"
	EventNavigate EventType = "navigate"
	EventFare     EventType = "fare"
)

// Event is one message fanned out to session listeners. Exactly one payload
// field is set, matching Type.
type Event struct {
	Type     EventType           `json:"type"`
	At       time.Time           `json:"at"`
	Snapshot *Snapshot           `json:"snapshot,omitempty"`
	Position *domain.Coordinate  `json:"position,omitempty"`
	Wait     *dispatch.WaitState `json:"wait,omitempty"`
	Notice   *dispatch.Notice    `json:"notice,omitempty"`
	Navigate *Navigation         `json:"navigate,omitempty"`
	Fare     *fare.Estimate      `json:"fare,omitempty"`
}

// NavigationKind is the client-side effect a Navigation asks for.
type NavigationKind string

const (
	NavigateDialer     NavigationKind = "dialer"
	NavigateChat       NavigationKind = "chat"
	NavigateShare      NavigationKind = "share"
	NavigateDirections NavigationKind = "directions"
	NavigateHome       NavigationKind = "exit_home"
	NavigateRating     NavigationKind = "exit_rating"
)

// Navigation is a client-side effect requested by the controller.
type Navigation struct {
	Kind        NavigationKind `json:"kind"`
	RideID      string         `json:"ride_id,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Destination *domain.Place  `json:"destination,omitempty"`
}

// Snapshot is everything a client needs to render the tracking view.
type Snapshot struct {
	UserID   string             `json:"user_id"`
	Role     domain.Role        `json:"role"`
	Ride     *status.View       `json:"ride,omitempty"`
	Position *domain.Coordinate `json:"driver_position,omitempty"`
	Segment  *SegmentView       `json:"segment,omitempty"`
	Controls dispatch.State     `json:"controls"`
	Fare     *fare.Estimate     `json:"fare,omitempty"`
	At       time.Time          `json:"at"`
}

// SegmentView is the animation leg in flight, for clients that interpolate
// locally.
type SegmentView struct {
	From       domain.Coordinate `json:"from"`
	To         domain.Coordinate `json:"to"`
	StartedAt  time.Time         `json:"started_at"`
	DurationMs int64             `json:"duration_ms"`
}

func segmentView(seg tracking.Segment) *SegmentView {
	return &SegmentView{
		From:       seg.From,
		To:         seg.To,
		StartedAt:  seg.Start,
		DurationMs: seg.Duration.Milliseconds(),
	}
}

// navigator turns controller effects into stream events.
type navigator struct {
	s *Session
}

func (n navigator) OpenDialer(phone string) {
	n.s.emitNavigation(Navigation{Kind: NavigateDialer, Phone: phone})
}

func (n navigator) OpenChat(rideID string) {
	n.s.emitNavigation(Navigation{Kind: NavigateChat, RideID: rideID})
}

func (n navigator) Share(summary string) {
	n.s.emitNavigation(Navigation{Kind: NavigateShare, Summary: summary})
}

func (n navigator) OpenNavigation(destination domain.Place) {
	n.s.emitNavigation(Navigation{Kind: NavigateDirections, Destination: &destination})
}

func (n navigator) ExitHome(rideID string) {
	n.s.emitNavigation(Navigation{Kind: NavigateHome, RideID: rideID})
}

func (n navigator) ExitRating(rideID string) {
	n.s.emitNavigation(Navigation{Kind: NavigateRating, RideID: rideID})
}

func (n navigator) Notice(notice dispatch.Notice) {
	n.s.emit(Event{Type: EventNotice, Notice: &notice})
}
