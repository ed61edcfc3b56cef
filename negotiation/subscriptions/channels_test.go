package subscriptions

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/SanteonNL/medex/negotiator/lib/coolfhir"
	"github.com/SanteonNL/medex/negotiator/lib/to"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

func testNotification(t *testing.T) coolfhir.SubscriptionNotification {
	t.Helper()
	baseURL, err := url.Parse("http://negotiator.example.com/fhir")
	require.NoError(t, err)
	timestamp := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	subscription := fhir.Reference{Reference: to.Ptr("Subscription/123")}
	focus := fhir.Reference{Reference: to.Ptr("Task/1"), Type: to.Ptr("Task")}
	return coolfhir.CreateSubscriptionNotification(baseURL, timestamp, subscription, 1, focus)
}

func TestRestHookChannel_Notify(t *testing.T) {
	notification := testNotification(t)

	t.Run("delivered", func(t *testing.T) {
		var capturedBody []byte
		var capturedHeaders http.Header
		subscriberServer := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			capturedHeaders = request.Header
			capturedBody, _ = io.ReadAll(request.Body)
			writer.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(subscriberServer.Close)
		channel := RestHookChannel{
			Endpoint: subscriberServer.URL,
			Client:   subscriberServer.Client(),
		}
		expectedJSON, err := json.Marshal(notification)
		require.NoError(t, err)

		err = channel.Notify(context.Background(), notification)

		require.NoError(t, err)
		assert.Equal(t, fhirclient.FhirJsonMediaType, capturedHeaders.Get("Content-Type"))
		assert.JSONEq(t, string(expectedJSON), string(capturedBody))
	})
	t.Run("non-OK response status", func(t *testing.T) {
		subscriberServer := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
		}))
		t.Cleanup(subscriberServer.Close)
		channel := RestHookChannel{
			Endpoint: subscriberServer.URL,
			Client:   subscriberServer.Client(),
		}

		err := channel.Notify(context.Background(), notification)

		assert.ErrorIs(t, err, ReceiverFailure)
	})
	t.Run("unreachable subscriber", func(t *testing.T) {
		subscriberServer := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		subscriberServer.Close()
		channel := RestHookChannel{
			Endpoint: subscriberServer.URL,
			Client:   http.DefaultClient,
		}

		err := channel.Notify(context.Background(), notification)

		assert.ErrorIs(t, err, ReceiverFailure)
	})
}

func TestStaticChannelFactory_Create(t *testing.T) {
	factory := StaticChannelFactory{
		Endpoints: map[string]string{
			"pharmacy-001": "http://pharmacy.example.com/fhir-notify",
			"doctor-001":   "http://doctor.example.com/fhir-notify",
		},
	}

	t.Run("bare subscriber id", func(t *testing.T) {
		channel, err := factory.Create(context.Background(), "pharmacy-001")

		require.NoError(t, err)
		restHook := channel.(*RestHookChannel)
		assert.Equal(t, "http://pharmacy.example.com/fhir-notify", restHook.Endpoint)
		assert.Equal(t, http.DefaultClient, restHook.Client)
	})
	t.Run("subscriber as Organization reference", func(t *testing.T) {
		channel, err := factory.Create(context.Background(), "Organization/doctor-001")

		require.NoError(t, err)
		assert.Equal(t, "http://doctor.example.com/fhir-notify", channel.(*RestHookChannel).Endpoint)
	})
	t.Run("unknown subscriber", func(t *testing.T) {
		channel, err := factory.Create(context.Background(), "hospital-999")

		assert.EqualError(t, err, "no notification endpoint configured for subscriber: hospital-999")
		assert.Nil(t, channel)
	})
	t.Run("configured client wins over the default", func(t *testing.T) {
		client := &http.Client{Timeout: time.Second}
		factory := StaticChannelFactory{
			Endpoints: map[string]string{"pharmacy-001": "http://pharmacy.example.com/fhir-notify"},
			Client:    client,
		}

		channel, err := factory.Create(context.Background(), "pharmacy-001")

		require.NoError(t, err)
		assert.Same(t, client, channel.(*RestHookChannel).Client)
	})
}
