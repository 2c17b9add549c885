package engine

import "github.com/goliatone/go-wizard"

// Status is the result class of a controller operation.
type Status string

const (
	StatusAdvanced     Status = "advanced"
	StatusBack         Status = "back"
	StatusRejected     Status = "rejected"
	StatusNotResolved  Status = "not_resolved"
	StatusIgnored      Status = "ignored"
	StatusStale        Status = "stale"
	StatusCandidates   Status = "candidates"
	StatusCompleted    Status = "completed"
	StatusSubmitted    Status = "submitted"
	StatusSubmitFailed Status = "submit_failed"
)

// Outcome describes what an operation did to the wizard. Recoverable
// failures (rejected values, failed lookups, failed submissions) are
// reported here instead of as Go errors.
type Outcome struct {
	Status     Status
	Index      int
	Step       *wizard.Step
	Completed  bool
	Message    string
	Err        error
	Candidates []any
}

// Moved reports whether the operation changed the current step.
func (o Outcome) Moved() bool {
	switch o.Status {
	case StatusAdvanced, StatusBack, StatusCompleted:
		return true
	}
	return false
}
