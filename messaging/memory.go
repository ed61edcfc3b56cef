package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/SanteonNL/medex/negotiator/lib/logging"
)

var _ Broker = &MemoryBroker{}

// NewMemoryBroker creates a broker that delivers messages to handlers registered
// in the same process. It backs deployments that run without broker infrastructure.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		handlers: make(map[string][]func(context.Context, Message) error),
	}
}

type MemoryBroker struct {
	mux      sync.RWMutex
	handlers map[string][]func(context.Context, Message) error
	// LastHandlerError records the most recent handler failure, since handler
	// failures are not propagated to the sender.
	LastHandlerError atomic.Pointer[error]
}

func (m *MemoryBroker) ReceiveFromQueue(queue Entity, handler func(context.Context, Message) error) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.handlers[queue.Name] = append(m.handlers[queue.Name], handler)
	return nil
}

func (m *MemoryBroker) SendMessage(_ context.Context, entity Entity, message *Message) error {
	m.mux.RLock()
	handlers := m.handlers[entity.Name]
	m.mux.RUnlock()
	if len(handlers) == 0 {
		return fmt.Errorf("no handlers for entity %s", entity.Name)
	}
	// Handlers run with a fresh context: delivery is a background operation and
	// must not be cut short when the sender's request context ends.
	ctx := context.Background()
	for _, handler := range handlers {
		if err := handler(ctx, *message); err != nil {
			m.LastHandlerError.Store(&err)
			slog.WarnContext(ctx, "Handler for entity failed",
				slog.String("entity_name", entity.Name),
				slog.String(logging.FieldError, err.Error()),
			)
		}
	}
	return nil
}

func (m *MemoryBroker) Close(_ context.Context) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.handlers = map[string][]func(context.Context, Message) error{}
	return nil
}
