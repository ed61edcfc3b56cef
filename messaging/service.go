//go:generate mockgen -destination=./service_mock.go -package=messaging -source=service.go
package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Entity is a named queue or topic at the message broker.
type Entity struct {
	Name string
}

// Topic is an Entity used in a publish/subscribe fashion.
type Topic = Entity

// FullName returns the name of the entity at the broker, with the deployment's
// entity prefix applied.
func (e Entity) FullName(prefix string) string {
	return prefix + e.Name
}

// New creates the message broker from the configuration. Without broker
// configuration an in-process broker is returned, which suits single-instance
// deployments. The given entities are provisioned as senders where the broker
// requires it.
func New(config Config, entities []Entity) (Broker, error) {
	var broker Broker
	if config.AzureServiceBus.Enabled() {
		var err error
		broker, err = newAzureServiceBusBroker(config.AzureServiceBus, entities, config.EntityPrefix)
		if err != nil {
			return nil, fmt.Errorf("azure service bus: %w", err)
		}
	} else {
		broker = NewMemoryBroker()
	}
	if config.HTTP.Endpoint != "" {
		log.Info().Msgf("Messaging: sending messages over HTTP to %s", config.HTTP.Endpoint)
		broker = NewHTTPBroker(config.HTTP, broker)
	}
	if config.DataHub.Endpoint != "" {
		log.Info().Msgf("Messaging: forwarding messages to DataHub at %s", config.DataHub.Endpoint)
		broker = NewDataHubBroker(config.DataHub, broker)
	}
	return broker, nil
}

// Config holds the configuration for messaging.
type Config struct {
	// AzureServiceBus holds the configuration for messaging using Azure ServiceBus.
	AzureServiceBus AzureServiceBusConfig `koanf:"azureservicebus"`
	HTTP            HTTPBrokerConfig      `koanf:"http"`
	DataHub         DataHubBrokerConfig   `koanf:"datahub"`
	// EntityPrefix is prepended to queue and topic names at the broker, so
	// multiple deployments can share a messaging namespace.
	EntityPrefix string `koanf:"entityprefix"`
}

func (c Config) Validate(strictMode bool) error {
	if strictMode && c.HTTP.Endpoint != "" {
		return errors.New("http endpoint is not allowed in strict mode")
	}
	if strictMode && !c.AzureServiceBus.Enabled() {
		return errors.New("production-grade messaging configuration (Azure ServiceBus) is required in strict mode")
	}
	return nil
}

type Message struct {
	Body          []byte
	ContentType   string
	CorrelationID *string
}

// Broker sends messages to and receives messages from queues and topics.
type Broker interface {
	Close(ctx context.Context) error
	SendMessage(ctx context.Context, entity Entity, message *Message) error
	ReceiveFromQueue(queue Entity, handler func(context.Context, Message) error) error
}
