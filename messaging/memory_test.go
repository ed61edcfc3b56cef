package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBroker(t *testing.T) {
	message := &Message{Body: []byte(`{"taskId": 12}`), ContentType: "application/json"}

	t.Run("delivers to all handlers for the entity", func(t *testing.T) {
		broker := NewMemoryBroker()
		var deliveries []Message
		for range 2 {
			require.NoError(t, broker.ReceiveFromQueue(Entity{Name: "task-events"}, func(_ context.Context, message Message) error {
				deliveries = append(deliveries, message)
				return nil
			}))
		}

		require.NoError(t, broker.SendMessage(context.Background(), Entity{Name: "task-events"}, message))

		require.Len(t, deliveries, 2)
		assert.Equal(t, message.Body, deliveries[0].Body)
	})
	t.Run("no handlers for the entity", func(t *testing.T) {
		broker := NewMemoryBroker()

		err := broker.SendMessage(context.Background(), Entity{Name: "task-events"}, message)

		require.EqualError(t, err, "no handlers for entity task-events")
	})
	t.Run("handler failure is recorded, not returned", func(t *testing.T) {
		broker := NewMemoryBroker()
		require.NoError(t, broker.ReceiveFromQueue(Entity{Name: "task-events"}, func(context.Context, Message) error {
			return errors.New("database is down")
		}))

		err := broker.SendMessage(context.Background(), Entity{Name: "task-events"}, message)

		require.NoError(t, err)
		lastErr := broker.LastHandlerError.Load()
		require.NotNil(t, lastErr)
		assert.EqualError(t, *lastErr, "database is down")
	})
	t.Run("close drops the handlers", func(t *testing.T) {
		broker := NewMemoryBroker()
		require.NoError(t, broker.ReceiveFromQueue(Entity{Name: "task-events"}, func(context.Context, Message) error {
			return nil
		}))
		require.NoError(t, broker.Close(context.Background()))

		err := broker.SendMessage(context.Background(), Entity{Name: "task-events"}, message)

		require.EqualError(t, err, "no handlers for entity task-events")
	})
}
