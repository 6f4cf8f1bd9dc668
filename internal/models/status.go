package models

// ItemStatus is the moderation lifecycle state of an item.
//
// The lifecycle is a closed graph:
//
//	under_review -> accepted | rejected
//	accepted     -> in_progress
//	in_progress  -> resolved
//
// rejected and resolved are terminal. Transitions never skip a state and never
// move backward.
type ItemStatus string

const (
	StatusUnderReview ItemStatus = "under_review"
	StatusAccepted    ItemStatus = "accepted"
	StatusRejected    ItemStatus = "rejected"
	StatusInProgress  ItemStatus = "in_progress"
	StatusResolved    ItemStatus = "resolved"
)

// statusTransitions is the full successor table for the moderation lifecycle.
var statusTransitions = map[ItemStatus][]ItemStatus{
	StatusUnderReview: {StatusAccepted, StatusRejected},
	StatusAccepted:    {StatusInProgress},
	StatusInProgress:  {StatusResolved},
	StatusRejected:    {},
	StatusResolved:    {},
}

// Valid reports whether the status is one of the five lifecycle states.
func (s ItemStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether target is a legal direct successor of s.
func (s ItemStatus) CanTransitionTo(target ItemStatus) bool {
	for _, next := range statusTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s ItemStatus) Terminal() bool {
	return s.Valid() && len(statusTransitions[s]) == 0
}

// RequiresNote reports whether transitioning into this status demands a
// non-empty admin note. Terminal review decisions must be justified.
func (s ItemStatus) RequiresNote() bool {
	return s == StatusAccepted || s == StatusRejected
}
