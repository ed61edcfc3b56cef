package coolfhir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/SanteonNL/medex/negotiator/lib/must"
	"github.com/SanteonNL/medex/negotiator/lib/to"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

func TestCreateSubscriptionNotification(t *testing.T) {
	baseURL := must.ParseURL("https://negotiator.example.com/fhir")
	timestamp := time.Date(2025, 6, 12, 9, 30, 5, 0, time.UTC)
	subscription := fhir.Reference{Reference: to.Ptr("Subscription/42")}
	bundleID := "9b2f41de-5c7a-4e6c-9a93-f8d2c07a55b1"
	parametersID := "4f0a2d1c-88e3-4b3a-b1d4-6a9c0de2f713"

	t.Run("relative focus is resolved against the base URL", func(t *testing.T) {
		focus := fhir.Reference{Reference: to.Ptr("Task/12")}
		expected := `{
  "id": "9b2f41de-5c7a-4e6c-9a93-f8d2c07a55b1",
  "meta": {
    "profile": [
      "http://hl7.org/fhir/uv/subscriptions-backport/StructureDefinition/backport-subscription-notification-r4"
    ]
  },
  "type": "history",
  "timestamp": "2025-06-12T09:30:05Z",
  "entry": [
    {
      "fullUrl": "urn:uuid:4f0a2d1c-88e3-4b3a-b1d4-6a9c0de2f713",
      "resource": {
        "id": "4f0a2d1c-88e3-4b3a-b1d4-6a9c0de2f713",
        "meta": {
          "profile": [
            "http://hl7.org/fhir/uv/subscriptions-backport/StructureDefinition/backport-subscription-notification-r4"
          ]
        },
        "parameter": [
          {
            "name": "subscription",
            "valueReference": {
              "reference": "Subscription/42"
            }
          },
          {
            "name": "status",
            "valueCode": "active"
          },
          {
            "name": "type",
            "valueString": "event-notification"
          },
          {
            "name": "notification-event",
            "part": [
              {
                "name": "event-number",
                "valueString": "3"
              },
              {
                "name": "timestamp",
                "valueInstant": "2025-06-12T09:30:05Z"
              },
              {
                "name": "focus",
                "valueReference": {
                  "reference": "https://negotiator.example.com/fhir/Task/12"
                }
              }
            ]
          }
        ],
        "resourceType": "Parameters"
      },
      "request": {
        "method": "GET",
        "url": "https://negotiator.example.com/fhir/Subscription/42/$status"
      },
      "response": {
        "status": "200 OK"
      }
    }
  ]
}`

		notification := createSubscriptionNotification(baseURL, timestamp, subscription, 3, focus, bundleID, parametersID)

		actual, err := json.MarshalIndent(notification, "", "  ")
		require.NoError(t, err)
		assert.JSONEq(t, expected, string(actual))
	})
	t.Run("absolute focus is kept as-is", func(t *testing.T) {
		focus := fhir.Reference{Reference: to.Ptr("https://other.example.com/fhir/Task/99")}

		notification := createSubscriptionNotification(baseURL, timestamp, subscription, 1, focus, bundleID, parametersID)

		actualFocus, err := notification.GetFocus()
		require.NoError(t, err)
		assert.Equal(t, "https://other.example.com/fhir/Task/99", *actualFocus.Reference)
	})
}

func TestSubscriptionNotification_GetFocus(t *testing.T) {
	t.Run("focus of a created notification", func(t *testing.T) {
		baseURL := must.ParseURL("https://negotiator.example.com/fhir")
		subscription := fhir.Reference{Reference: to.Ptr("Subscription/42")}
		focus := fhir.Reference{Reference: to.Ptr("Task/12")}

		notification := CreateSubscriptionNotification(baseURL, time.Now(), subscription, 1, focus)

		actual, err := notification.GetFocus()
		require.NoError(t, err)
		assert.Equal(t, "https://negotiator.example.com/fhir/Task/12", *actual.Reference)
	})
	t.Run("bundle without notification parameters", func(t *testing.T) {
		notification := SubscriptionNotification(fhir.Bundle{Type: fhir.BundleTypeHistory})

		actual, err := notification.GetFocus()
		assert.EqualError(t, err, "entry not found in FHIR Bundle")
		assert.Nil(t, actual)
	})
}

func TestIsSubscriptionNotification(t *testing.T) {
	assert.True(t, IsSubscriptionNotification(&fhir.Bundle{
		Type: fhir.BundleTypeHistory,
		Meta: &fhir.Meta{
			Profile: []string{SubscriptionNotificationProfile},
		},
	}))
	assert.False(t, IsSubscriptionNotification(&fhir.Bundle{
		Type: fhir.BundleTypeHistory,
		Meta: &fhir.Meta{
			Profile: []string{"http://example.com/fhir/StructureDefinition/something-else"},
		},
	}))
	assert.False(t, IsSubscriptionNotification(&fhir.Bundle{
		Type: fhir.BundleTypeHistory,
	}))
	assert.False(t, IsSubscriptionNotification(&fhir.Bundle{
		Type: fhir.BundleTypeSearchset,
		Meta: &fhir.Meta{
			Profile: []string{SubscriptionNotificationProfile},
		},
	}))
}
