package domain

// PresentationStatus is the client-side bucket a ride is rendered in.
type PresentationStatus string

const (
	PresentationSearching  PresentationStatus = "SEARCHING"
	PresentationAccepted   PresentationStatus = "ACCEPTED"
	PresentationArrived    PresentationStatus = "ARRIVED"
	PresentationInProgress PresentationStatus = "IN_PROGRESS"

	// Exit states. The tracking view is left when one of these is reached.
	PresentationDone      PresentationStatus = "DONE"
	PresentationCancelled PresentationStatus = "CANCELLED"
)

// IsTerminal reports whether the status leaves the tracking view.
func (p PresentationStatus) IsTerminal() bool {
	return p == PresentationDone || p == PresentationCancelled
}
