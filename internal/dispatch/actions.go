package dispatch

import "ridetrack/internal/domain"

// Action is a user gesture on the tracking view.
type Action string

const (
	ActionCancel          Action = "cancel"
	ActionCall            Action = "call"
	ActionChat            Action = "chat"
	ActionShare           Action = "share"
	ActionNotifyComing    Action = "notify_coming"
	ActionNavigateDropoff Action = "navigate_dropoff"

	// Driver side.
	ActionArrive       Action = "arrive"
	ActionStartTrip    Action = "start_trip"
	ActionCompleteTrip Action = "complete_trip"
)

// riderActions is the action table for the ordering side, in display order.
var riderActions = map[domain.PresentationStatus][]Action{
	domain.PresentationSearching:  {ActionCancel},
	domain.PresentationAccepted:   {ActionCall, ActionChat, ActionCancel, ActionShare},
	domain.PresentationArrived:    {ActionCall, ActionChat, ActionNotifyComing},
	domain.PresentationInProgress: {ActionCall, ActionChat, ActionNavigateDropoff},
}

var driverActions = map[domain.PresentationStatus][]Action{
	domain.PresentationAccepted:   {ActionCall, ActionChat, ActionArrive},
	domain.PresentationArrived:    {ActionCall, ActionChat, ActionStartTrip},
	domain.PresentationInProgress: {ActionCall, ActionChat, ActionNavigateDropoff, ActionCompleteTrip},
}

// ActionsFor returns the actions role may take in status p. Terminal and
// unknown states allow nothing.
func ActionsFor(role domain.Role, p domain.PresentationStatus) []Action {
	table := riderActions
	if role == domain.RoleDriver {
		table = driverActions
	}
	return table[p]
}

func allowed(role domain.Role, p domain.PresentationStatus, action Action) bool {
	for _, a := range ActionsFor(role, p) {
		if a == action {
			return true
		}
	}
	return false
}
