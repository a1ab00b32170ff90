package domain

import "fmt"

// Status is the workflow state of a bottom-up quantification.
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusSubmitted  Status = "SUBMITTED"
	StatusAuthorized Status = "AUTHORIZED"
	StatusInApproval Status = "IN_APPROVAL"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
)

var allowedTransitions = map[Status][]Status{
	StatusDraft:      {StatusSubmitted},
	StatusSubmitted:  {StatusAuthorized, StatusRejected},
	StatusAuthorized: {StatusInApproval, StatusRejected},
	StatusInApproval: {StatusApproved, StatusRejected},
	StatusRejected:   {StatusSubmitted},
}

// CanTransitionTo reports whether the workflow permits moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsFinal reports whether no further transitions are possible.
func (s Status) IsFinal() bool {
	return len(allowedTransitions[s]) == 0
}

// ParseStatus validates a raw status value, typically from a query parameter.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusDraft, StatusSubmitted, StatusAuthorized,
		StatusInApproval, StatusApproved, StatusRejected:
		return Status(raw), nil
	}
	return "", fmt.Errorf("unknown status %q", raw)
}
