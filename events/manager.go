// Package events distributes typed application events over the message broker.
// Publishers and subscribers agree on the event type, which carries its own
// topic, so neither side touches broker entities directly.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SanteonNL/medex/negotiator/messaging"
)

// Type is implemented by event types. Topic names the broker entity the event
// travels over, Instance returns a new empty event to unmarshal into.
type Type interface {
	Topic() messaging.Topic
	Instance() Type
}

type Manager interface {
	Subscribe(eventType Type, handler HandleFunc) error
	Notify(ctx context.Context, instance Type) error
}

func NewManager(messageBroker messaging.Broker) *DefaultManager {
	return &DefaultManager{
		messageBroker: messageBroker,
	}
}

var _ Manager = &DefaultManager{}

type DefaultManager struct {
	messageBroker messaging.Broker
}

// Subscribe registers the handler for events of the given type. Unmarshal and
// handler failures are returned to the broker, which decides on redelivery.
func (d DefaultManager) Subscribe(eventType Type, handler HandleFunc) error {
	return d.messageBroker.ReceiveFromQueue(eventType.Topic(), func(ctx context.Context, message messaging.Message) error {
		event := eventType.Instance()
		if err := json.Unmarshal(message.Body, event); err != nil {
			return fmt.Errorf("event %T unmarshal: %w", eventType, err)
		}
		if err := handler(ctx, event.(Type)); err != nil {
			return fmt.Errorf("event handler %T: %w", event, err)
		}
		return nil
	})
}

// Notify publishes the event on its topic.
func (d DefaultManager) Notify(ctx context.Context, instance Type) error {
	messageData, err := json.Marshal(instance)
	if err != nil {
		return err
	}
	err = d.messageBroker.SendMessage(ctx, instance.Topic(), &messaging.Message{
		Body:        messageData,
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("event send %T: %w", instance, err)
	}
	return nil
}

type HandleFunc func(ctx context.Context, event Type) error
