package coolfhir

import (
	"encoding/json"
	"errors"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/SanteonNL/medex/negotiator/lib/to"
	"github.com/google/uuid"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// SubscriptionNotificationProfile is the canonical URL of the R4 subscription notification backport profile.
const SubscriptionNotificationProfile = "http://hl7.org/fhir/uv/subscriptions-backport/StructureDefinition/backport-subscription-notification-r4"

// SubscriptionNotification is a FHIR R4 subscription notification, expressed
// as a history Bundle carrying the backport profile. The negotiating parties
// receive one whenever a Task they are involved in changes.
type SubscriptionNotification fhir.Bundle

func (s SubscriptionNotification) GetFocus() (*fhir.Reference, error) {
	var notificationParams fhir.Parameters
	if err := ResourceInBundle((*fhir.Bundle)(&s), EntryIsOfType("Parameters"), &notificationParams); err != nil {
		return nil, err
	}
	for _, notificationParam := range notificationParams.Parameter {
		if notificationParam.Name == "notification-event" {
			for _, eventParam := range notificationParam.Part {
				if eventParam.Name == "focus" {
					return eventParam.ValueReference, nil
				}
			}
		}
	}
	return nil, errors.New("invalid R4 SubscriptionNotification: no focus found")
}

// IsSubscriptionNotification tests whether the given bundle carries the R4 subscription notification backport profile.
func IsSubscriptionNotification(bundle *fhir.Bundle) bool {
	return bundle.Type == fhir.BundleTypeHistory &&
		bundle.Meta != nil &&
		slices.Contains(bundle.Meta.Profile, SubscriptionNotificationProfile)
}

// CreateSubscriptionNotification creates an event notification for the given
// subscription and focus resource. A relative focus reference is resolved
// against the base URL before it is sent.
func CreateSubscriptionNotification(baseURL *url.URL, timestamp time.Time, subscription fhir.Reference, eventNumber int, focus fhir.Reference) SubscriptionNotification {
	return createSubscriptionNotification(baseURL, timestamp, subscription, eventNumber, focus, uuid.NewString(), uuid.NewString())
}

func createSubscriptionNotification(baseURL *url.URL, timestamp time.Time, subscription fhir.Reference, eventNumber int, focus fhir.Reference, bundleID string, parametersID string) SubscriptionNotification {
	if focus.Reference != nil {
		focusURL, err := url.Parse(*focus.Reference)
		if err == nil && !focusURL.IsAbs() {
			focus.Reference = to.Ptr(baseURL.JoinPath(*focus.Reference).String())
		}
	}
	meta := fhir.Meta{
		Profile: []string{SubscriptionNotificationProfile},
	}
	params := fhir.Parameters{
		Id:   to.Ptr(parametersID),
		Meta: &meta,
		Parameter: []fhir.ParametersParameter{
			{
				Name:           "subscription",
				ValueReference: &subscription,
			},
			{
				Name:      "status",
				ValueCode: to.Ptr("active"),
			},
			{
				Name:        "type",
				ValueString: to.Ptr("event-notification"),
			},
			{
				Name: "notification-event",
				Part: []fhir.ParametersParameter{
					{
						Name:        "event-number",
						ValueString: to.Ptr(strconv.Itoa(eventNumber)),
					},
					{
						Name:         "timestamp",
						ValueInstant: to.Ptr(timestamp.Format(time.RFC3339)),
					},
					{
						Name:           "focus",
						ValueReference: &focus,
					},
				},
			},
		},
	}
	parametersJSON, _ := json.Marshal(params)
	return SubscriptionNotification(fhir.Bundle{
		Id:        to.Ptr(bundleID),
		Meta:      &meta,
		Type:      fhir.BundleTypeHistory,
		Timestamp: to.Ptr(timestamp.Format(time.RFC3339)),
		Entry: []fhir.BundleEntry{
			{
				FullUrl:  to.Ptr("urn:uuid:" + parametersID),
				Resource: parametersJSON,
				Request: &fhir.BundleEntryRequest{
					Method: fhir.HTTPVerbGET,
					Url:    baseURL.JoinPath(*subscription.Reference, "$status").String(),
				},
				Response: &fhir.BundleEntryResponse{
					Status: "200 OK",
				},
			},
		},
	})
}
