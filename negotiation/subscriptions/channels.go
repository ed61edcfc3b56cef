//go:generate mockgen -destination=./channels_mock_test.go -package=subscriptions -source=channels.go
package subscriptions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/SanteonNL/medex/negotiator/lib/coolfhir"
	"github.com/SanteonNL/medex/negotiator/negotiation/taskstore"
)

// ChannelFactory creates the notification channel for a subscriber. A channel
// is the transport a subscription notification is delivered over.
type ChannelFactory interface {
	Create(ctx context.Context, subscriber string) (Channel, error)
}

type Channel interface {
	Notify(ctx context.Context, notification coolfhir.SubscriptionNotification) error
}

// ReceiverFailure is returned when a notification could not be delivered to
// the subscriber, because it was unreachable or did not acknowledge delivery.
var ReceiverFailure = errors.New("FHIR subscription could not be delivered to receiver")

var _ ChannelFactory = StaticChannelFactory{}

// StaticChannelFactory resolves subscribers to rest-hook endpoints from a
// fixed mapping, typically loaded from configuration. The parties of a
// bilateral negotiation know each other ahead of time, so there is no
// directory to look endpoints up in.
type StaticChannelFactory struct {
	// Endpoints maps the bare organization id of a subscriber to its rest-hook URL.
	Endpoints map[string]string
	Client    fhirclient.HttpRequestDoer
}

func (s StaticChannelFactory) Create(_ context.Context, subscriber string) (Channel, error) {
	endpoint, ok := s.Endpoints[taskstore.NormalizeActorID(subscriber)]
	if !ok {
		return nil, fmt.Errorf("no notification endpoint configured for subscriber: %s", subscriber)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &RestHookChannel{
		Endpoint: endpoint,
		Client:   client,
	}, nil
}

var _ Channel = &RestHookChannel{}

// RestHookChannel delivers subscription notifications by POSTing them to the
// subscriber's endpoint.
type RestHookChannel struct {
	Endpoint string
	Client   fhirclient.HttpRequestDoer
}

func (r RestHookChannel) Notify(ctx context.Context, notification coolfhir.SubscriptionNotification) error {
	notificationJSON, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(notificationJSON))
	if err != nil {
		return err
	}
	httpRequest.Header.Add("Content-Type", fhirclient.FhirJsonMediaType)
	httpResponse, err := r.Client.Do(httpRequest)
	if err != nil {
		return errors.Join(ReceiverFailure, err)
	}
	defer httpResponse.Body.Close()
	// Drain the response so the connection can be reused, its content is not used.
	_, _ = io.ReadAll(io.LimitReader(httpResponse.Body, 1024))
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return errors.Join(ReceiverFailure, fmt.Errorf("non-OK HTTP response status: %v", httpResponse.Status))
	}
	return nil
}
