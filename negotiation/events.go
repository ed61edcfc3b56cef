package negotiation

import (
	"github.com/SanteonNL/medex/negotiator/events"
	"github.com/SanteonNL/medex/negotiator/messaging"
	"github.com/SanteonNL/medex/negotiator/negotiation/taskstore"
)

// TriggerCreate marks the event published when a negotiation is opened. It is
// not a state machine trigger, creation has no source state.
const TriggerCreate Trigger = "create"

// TaskUpdatedEvent is published on every successful change to a task,
// including its creation.
type TaskUpdatedEvent struct {
	Task    taskstore.Task `json:"task"`
	Actor   string         `json:"actor"`
	Trigger Trigger        `json:"trigger"`
}

func (t TaskUpdatedEvent) Topic() messaging.Topic {
	return messaging.Topic{
		Name: "medex-task-events",
	}
}

func (t TaskUpdatedEvent) Instance() events.Type {
	return &TaskUpdatedEvent{}
}
