package model

// Status is the extraction state of a deal as reported by the backend.
type Status string

const (
	StatusPending    Status = "pending"
	StatusExtracting Status = "extracting"
	StatusStoring    Status = "storing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// IsTerminal reports whether no further status changes are expected.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

// InProgress reports whether the backend is still working on the deal.
func (s Status) InProgress() bool {
	switch s {
	case StatusPending, StatusExtracting, StatusStoring:
		return true
	default:
		return false
	}
}

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	return s.InProgress() || s.IsTerminal()
}

// Label returns the badge label for the status. Unknown values render as
// pending.
func (s Status) Label() string {
	switch s {
	case StatusExtracting:
		return "Extracting"
	case StatusStoring:
		return "Storing"
	case StatusComplete:
		return "Complete"
	case StatusError:
		return "Error"
	default:
		return "Pending"
	}
}

// CanDelete reports whether a deal in state s may be deleted. Deletion is
// refused while extraction is running; unknown states count as pending.
func CanDelete(s Status) bool {
	return s.IsTerminal()
}

// DealStatus is the backend's view of a deal's extraction progress.
type DealStatus struct {
	DealID       string `json:"deal_id"`
	Status       Status `json:"status"`
	Progress     int    `json:"progress"`
	CurrentStep  string `json:"current_step,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// PendingStatus is the synthetic status used when the real one could not be
// fetched.
func PendingStatus(dealID string) DealStatus {
	return DealStatus{DealID: dealID, Status: StatusPending}
}

// IsTerminal reports whether polling for this status should stop.
func (s DealStatus) IsTerminal() bool { return s.Status.IsTerminal() }

// CanDelete reports whether the deal may be deleted in its current state.
func (s DealStatus) CanDelete() bool { return CanDelete(s.Status) }

// HasError reports whether the backend flagged a failure, either through the
// status itself or through an error message.
func (s DealStatus) HasError() bool {
	return s.Status == StatusError || s.Error != "" || s.ErrorMessage != ""
}

// ErrorText returns whichever error field the backend populated.
func (s DealStatus) ErrorText() string {
	if s.ErrorMessage != "" {
		return s.ErrorMessage
	}
	return s.Error
}

// ClampedProgress returns progress bounded to 0..100.
func (s DealStatus) ClampedProgress() int {
	switch {
	case s.Progress < 0:
		return 0
	case s.Progress > 100:
		return 100
	default:
		return s.Progress
	}
}
