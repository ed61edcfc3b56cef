package negotiation

import (
	"github.com/SanteonNL/medex/negotiator/negotiation/taskstore"
)

// Role identifies which side of a negotiation an actor is on.
type Role int

const (
	RoleRequester Role = iota
	RoleReceiver
)

func (r Role) String() string {
	switch r {
	case RoleRequester:
		return "requester"
	case RoleReceiver:
		return "receiver"
	default:
		return "unknown"
	}
}

// Trigger is an action a negotiating party performs on a task.
type Trigger string

const (
	// TriggerReceive fires when the receiver reads a task it has not seen before.
	TriggerReceive Trigger = "receive"
	// TriggerCounterOffer replaces the current artifact with a new offer.
	TriggerCounterOffer Trigger = "counter-offer"
	// TriggerAccept accepts the other party's latest offer.
	TriggerAccept Trigger = "accept"
	// TriggerReject withdraws from the negotiation.
	TriggerReject Trigger = "reject"
	// TriggerClose completes an accepted task with a closing document.
	TriggerClose Trigger = "close"
)

// transition returns the state a task moves to when a party in the given role
// fires the trigger. ok is false when the combination is not allowed, in which
// case the task must stay untouched.
func transition(from taskstore.State, trigger Trigger, role Role) (to taskstore.State, ok bool) {
	switch trigger {
	case TriggerReceive:
		if from == taskstore.StateRequested && role == RoleReceiver {
			return taskstore.StateReceived, true
		}
	case TriggerCounterOffer:
		if negotiable(from) {
			return inProgressFor(role), true
		}
	case TriggerAccept:
		if negotiable(from) {
			return taskstore.StateAccepted, true
		}
	case TriggerReject:
		if !from.IsTerminal() {
			return taskstore.StateRejected, true
		}
	case TriggerClose:
		if from == taskstore.StateAccepted {
			return taskstore.StateCompleted, true
		}
	}
	return from, false
}

// negotiable reports whether a party can place or accept an offer in the given
// state. A requested task first has to be received: until the receiver has
// read it there is no offer on the table to respond to.
func negotiable(state taskstore.State) bool {
	switch state {
	case taskstore.StateReceived, taskstore.StateInProgressRequester, taskstore.StateInProgressReceiver:
		return true
	}
	return false
}

func inProgressFor(role Role) taskstore.State {
	if role == RoleRequester {
		return taskstore.StateInProgressRequester
	}
	return taskstore.StateInProgressReceiver
}
