// Package subscriptions forwards task updates to the negotiating parties as
// R4 backport subscription notifications, so neither party has to poll the
// negotiator for progress.
package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/SanteonNL/medex/negotiator/events"
	"github.com/SanteonNL/medex/negotiator/lib/coolfhir"
	"github.com/SanteonNL/medex/negotiator/lib/debug"
	lib_otel "github.com/SanteonNL/medex/negotiator/lib/otel"
	"github.com/SanteonNL/medex/negotiator/lib/slices"
	"github.com/SanteonNL/medex/negotiator/lib/to"
	"github.com/SanteonNL/medex/negotiator/negotiation"
	"github.com/SanteonNL/medex/negotiator/negotiation/taskstore"
	"github.com/google/uuid"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "subscriptions"

type Config struct {
	Enabled bool `koanf:"enabled"`
	// Endpoints maps the bare organization id of each negotiating party to
	// the rest-hook URL its notifications go to.
	Endpoints map[string]string `koanf:"endpoints"`
}

func DefaultConfig() Config {
	return Config{}
}

func (c Config) Validate() error {
	if c.Enabled && len(c.Endpoints) == 0 {
		return errors.New("subscriptions are enabled but no notification endpoints are configured")
	}
	return nil
}

// Manager notifies both parties of a task after every update. Notifications
// are delivered from the event pipeline: a subscriber that cannot be reached
// never fails the negotiation action that triggered the notification.
type Manager struct {
	fhirBaseURL *url.URL
	channels    ChannelFactory
	tracer      trace.Tracer
}

func NewManager(fhirBaseURL *url.URL, channels ChannelFactory) *Manager {
	return &Manager{
		fhirBaseURL: fhirBaseURL,
		channels:    channels,
		tracer:      otel.Tracer(tracerName),
	}
}

// Start subscribes the manager to task updates.
func (m *Manager) Start(eventManager events.Manager) error {
	return eventManager.Subscribe(negotiation.TaskUpdatedEvent{}, m.handleTaskUpdated)
}

func (m *Manager) handleTaskUpdated(ctx context.Context, event events.Type) error {
	update, ok := event.(*negotiation.TaskUpdatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	ctx, span := m.tracer.Start(ctx, debug.GetFullCallerName(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int64(lib_otel.NegotiationTaskID, update.Task.ID),
			attribute.String(lib_otel.NegotiationTaskState, string(update.Task.State)),
			attribute.String(lib_otel.NotificationResourceType, "Task"),
		))
	defer span.End()

	focus := fhir.Reference{
		Reference: to.Ptr(fmt.Sprintf("Task/%d", update.Task.ID)),
		Type:      to.Ptr("Task"),
	}
	subscribers := slices.Deduplicate([]string{update.Task.Requester, update.Task.Receiver}, func(a, b string) bool {
		return taskstore.NormalizeActorID(a) == taskstore.NormalizeActorID(b)
	})
	if err := m.notifyAll(ctx, update.Task.UpdatedAt, focus, subscribers); err != nil {
		span.AddEvent(lib_otel.NotificationDeliverFailed)
		return lib_otel.Error(span, err)
	}
	span.AddEvent(lib_otel.NotificationDeliver)
	return nil
}

func (m *Manager) notifyAll(ctx context.Context, instant time.Time, focus fhir.Reference, subscribers []string) error {
	errs := make(chan error, len(subscribers))
	notifyFinished := &sync.WaitGroup{}
	for _, subscriber := range subscribers {
		notifyFinished.Add(1)
		go func(subscriber string) {
			defer notifyFinished.Done()
			channel, err := m.channels.Create(ctx, subscriber)
			if err != nil {
				errs <- fmt.Errorf("notification channel for subscriber %s: %w", subscriber, err)
				return
			}
			subscription := fhir.Reference{
				Reference: to.Ptr("Subscription/" + uuid.NewString()),
			}
			notification := coolfhir.CreateSubscriptionNotification(m.fhirBaseURL, instant, subscription, 0, focus)
			if err := channel.Notify(ctx, notification); err != nil {
				errs <- fmt.Errorf("notify subscriber %s: %w", subscriber, err)
			}
		}(subscriber)
	}
	notifyFinished.Wait()
	close(errs)
	var result []error
	for err := range errs {
		result = append(result, err)
	}
	return errors.Join(result...)
}
