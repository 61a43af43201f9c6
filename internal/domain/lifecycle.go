package domain

// LifecycleAction enumerates the commands that move a request between
// lifecycle states.
type LifecycleAction string

const (
	ActionClaim    LifecycleAction = "claim"
	ActionComplete LifecycleAction = "complete"
	ActionClose    LifecycleAction = "close"
	ActionReopen   LifecycleAction = "reopen"
	ActionReassign LifecycleAction = "reassign"
	ActionRelease  LifecycleAction = "release"
)

// allowedActions maps each state to the actions legal from it. close is
// legal from any non-terminal state; reopen re-enters the active
// lifecycle from completed or closed.
var allowedActions = map[RequestStatus][]LifecycleAction{
	RequestStatusOpen:       {ActionClaim, ActionClose},
	RequestStatusInProgress: {ActionComplete, ActionClose, ActionReassign, ActionRelease},
	RequestStatusCompleted:  {ActionClose, ActionReopen},
	RequestStatusClosed:     {ActionReopen},
}

// CanTransition reports whether the action is legal from the given state.
func CanTransition(current RequestStatus, action LifecycleAction) bool {
	for _, candidate := range allowedActions[current] {
		if candidate == action {
			return true
		}
	}
	return false
}

// TransitionTarget returns the state the action leads to. Release puts
// the request back in the open pool so another agent can claim it.
func TransitionTarget(current RequestStatus, action LifecycleAction) RequestStatus {
	switch action {
	case ActionClaim:
		return RequestStatusInProgress
	case ActionComplete:
		return RequestStatusCompleted
	case ActionClose:
		return RequestStatusClosed
	case ActionReopen:
		return RequestStatusOpen
	case ActionRelease:
		return RequestStatusOpen
	case ActionReassign:
		return RequestStatusInProgress
	}
	return current
}
