package negotiation

import (
	"errors"
	"fmt"

	"github.com/SanteonNL/medex/negotiator/negotiation/taskstore"
)

// ErrMissingActor is returned when an operation requires the acting party and
// none was given. It takes precedence over any state or role check.
var ErrMissingActor = errors.New("acting party is required")

// ErrInvalidOperation is the base error for operations that a task's state or
// the actor's relation to the task does not allow.
var ErrInvalidOperation = errors.New("operation not allowed")

// InvalidTransitionError reports a trigger fired in a state that does not
// permit it. It matches ErrInvalidOperation in errors.Is.
type InvalidTransitionError struct {
	State   taskstore.State
	Trigger Trigger
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a task in state %s", e.Trigger, e.State)
}

func (e InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidOperation
}

// errorNotAParty reports an actor that is neither the requester nor the
// receiver of the task. It matches ErrInvalidOperation in errors.Is.
func errorNotAParty(taskID int64, actor string) error {
	return fmt.Errorf("%w: %s is not a party to task %d", ErrInvalidOperation, taskstore.NormalizeActorID(actor), taskID)
}
