package dispatch

import "ridetrack/internal/domain"

// NoticeLevel classifies a user-facing notice.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a non-blocking message for the user.
type Notice struct {
	Level     NoticeLevel `json:"level"`
	Action    Action      `json:"action"`
	Message   string      `json:"message"`
	Retryable bool        `json:"retryable"`
}

// Navigator performs the client-side effects of actions. Implementations must
// not block and must not call back into the Controller.
type Navigator interface {
	OpenDialer(phone string)
	OpenChat(rideID string)
	Share(summary string)
	OpenNavigation(destination domain.Place)
	ExitHome(rideID string)
	ExitRating(rideID string)
	Notice(n Notice)
}
