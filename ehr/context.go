// Package ehr fetches patient context from the EHR's FHIR API. The context is
// a bundle of resources around one subject, used to pre-fill questionnaires
// when the negotiating party does not send a bundle of its own.
package ehr

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/SanteonNL/medex/negotiator/lib/coolfhir"
	"github.com/SanteonNL/medex/negotiator/lib/fhirxml"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
)

const tracerName = "github.com/SanteonNL/medex/negotiator/ehr"

const (
	FormatJSON = "json"
	FormatXML  = "xml"
)

// maxContextSize caps $everything responses, matching the response size limit
// the FHIR client enforces.
const maxContextSize = 10 * 1024 * 1024

type Config struct {
	// FHIR configures the EHR's FHIR API the context is read from.
	FHIR coolfhir.FHIRRoundTripperConfig `koanf:"fhir"`
	// Format selects the wire encoding of the EHR's FHIR API, json or xml.
	Format string `koanf:"format"`
}

func DefaultConfig() Config {
	return Config{
		Format: FormatJSON,
	}
}

// ContextSource loads the context bundle for a subject.
type ContextSource interface {
	ContextBundle(ctx context.Context, subject string) (map[string]interface{}, error)
}

// New creates the context source for the configured EHR FHIR API.
func New(config Config) (ContextSource, error) {
	transport, client, err := coolfhir.NewFHIRAuthRoundTripper(config.FHIR, coolfhir.Config())
	if err != nil {
		return nil, err
	}
	tracer := otel.Tracer(tracerName)
	switch config.Format {
	case "", FormatJSON:
		return &fhirContextSource{client: coolfhir.NewTracedFHIRClient(client, tracer)}, nil
	case FormatXML:
		baseURL, err := url.Parse(config.FHIR.BaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid FHIR base URL")
		}
		return &xmlContextSource{
			baseURL:    baseURL,
			httpClient: &http.Client{Transport: coolfhir.NewTracedHTTPTransport(transport, tracer)},
		}, nil
	default:
		return nil, errors.Errorf("invalid EHR context format: %s", config.Format)
	}
}

// subjectPath builds the $everything path for a subject, given either as a
// bare logical id or as a Patient/{id} reference.
func subjectPath(subject string) string {
	return "Patient/" + strings.TrimPrefix(subject, "Patient/") + "/$everything"
}

// decodeContextBundle keeps numbers as json.Number, so that population sees
// the same values whether the bundle came from the EHR or from the caller.
func decodeContextBundle(data []byte) (map[string]interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var bundle map[string]interface{}
	if err := decoder.Decode(&bundle); err != nil {
		return nil, errors.Wrap(err, "could not decode context bundle")
	}
	return bundle, nil
}

type fhirContextSource struct {
	client fhirclient.Client
}

func (s *fhirContextSource) ContextBundle(ctx context.Context, subject string) (map[string]interface{}, error) {
	var data []byte
	if err := s.client.ReadWithContext(ctx, subjectPath(subject), &data); err != nil {
		return nil, errors.Wrapf(err, "could not load context for %s", subject)
	}
	return decodeContextBundle(data)
}

// xmlContextSource reads from EHRs whose FHIR API only speaks XML. Responses
// are converted to the JSON object model before population sees them.
type xmlContextSource struct {
	baseURL    *url.URL
	httpClient *http.Client
}

func (s *xmlContextSource) ContextBundle(ctx context.Context, subject string) (map[string]interface{}, error) {
	requestURL := s.baseURL.JoinPath(strings.Split(subjectPath(subject), "/")...)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL.String(), nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", coolfhir.FHIRXMLContentType)
	response, err := s.httpClient.Do(request)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load context for %s", subject)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, errors.Errorf("EHR FHIR API returned status %d for %s", response.StatusCode, subject)
	}
	data, err := io.ReadAll(io.LimitReader(response.Body, maxContextSize))
	if err != nil {
		return nil, errors.Wrapf(err, "could not load context for %s", subject)
	}
	bundle, err := fhirxml.Unmarshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode context bundle")
	}
	return bundle, nil
}
