package submission

import (
	"fmt"
	"strings"
)

// Status is a submission's lifecycle state.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusConfirmed Status = "confirmed"
	StatusCanceled  Status = "canceled"
	StatusWithdrawn Status = "withdrawn"
	StatusDeleted   Status = "deleted"
)

// AllStatuses in display order.
var AllStatuses = []Status{
	StatusSubmitted, StatusAccepted, StatusRejected, StatusConfirmed,
	StatusCanceled, StatusWithdrawn, StatusDeleted,
}

// validTransitions is the single source of truth for the lifecycle state
// graph. A transition not listed here fails unless forced.
var validTransitions = map[Status][]Status{
	StatusSubmitted: {StatusRejected, StatusWithdrawn, StatusAccepted},
	StatusAccepted:  {StatusConfirmed, StatusCanceled, StatusRejected, StatusSubmitted},
	StatusRejected:  {StatusAccepted, StatusSubmitted},
	StatusConfirmed: {StatusAccepted, StatusCanceled},
	StatusCanceled:  {StatusAccepted, StatusConfirmed},
	StatusWithdrawn: {StatusSubmitted},
	StatusDeleted:   {},
}

func (s Status) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo reports whether target is a legal next state.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// SourcesOf inverts the transition table: every state from which target is
// directly reachable, in display order.
func SourcesOf(target Status) []Status {
	sources := make([]Status, 0, len(AllStatuses))
	for _, s := range AllStatuses {
		for _, t := range validTransitions[s] {
			if t == target {
				sources = append(sources, s)
				break
			}
		}
	}
	return sources
}

// StateTransitionError reports an illegal transition attempt. Its message
// names every state the attempted target is reachable from.
type StateTransitionError struct {
	Current Status
	Target  Status
}

func (e *StateTransitionError) Error() string {
	sources := SourcesOf(e.Target)
	if len(sources) == 0 {
		return fmt.Sprintf("Proposal cannot be %s.", e.Target)
	}
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	var joined string
	if len(names) == 1 {
		joined = names[0]
	} else {
		joined = strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
	}
	return fmt.Sprintf("Proposal must be %s to be %s.", joined, e.Target)
}
