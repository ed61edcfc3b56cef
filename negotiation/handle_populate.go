package negotiation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/SanteonNL/medex/negotiator/lib/coolfhir"
	"github.com/SanteonNL/medex/negotiator/lib/debug"
	"github.com/SanteonNL/medex/negotiator/lib/otel"
	"github.com/SanteonNL/medex/negotiator/negotiation/taskstore"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PopulateQuestionnaire pre-fills a stored questionnaire from patient
// context. The context bundle is either given by the caller or, when a
// subject is given instead, fetched from the configured context source.
func (s *Service) PopulateQuestionnaire(ctx context.Context, artifactID int64, subject string, contextBundle map[string]interface{}) (*fhir.QuestionnaireResponse, error) {
	ctx, span := s.tracer.Start(ctx, debug.GetFullCallerName(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(otel.NegotiationArtifactID, strconv.FormatInt(artifactID, 10)),
		))
	defer span.End()

	artifact, err := s.getTypedArtifact(ctx, artifactID, taskstore.ArtifactTypeQuestionnaire)
	if err != nil {
		return nil, otel.Error(span, err)
	}
	if contextBundle == nil && subject != "" {
		if s.contextSource == nil {
			return nil, otel.Error(span, fmt.Errorf("%w: no patient context source is configured, provide a context bundle", ErrInvalidOperation))
		}
		contextBundle, err = s.contextSource.ContextBundle(ctx, subject)
		if err != nil {
			return nil, otel.Error(span, fmt.Errorf("fetching patient context for %s: %w", subject, err))
		}
	}
	response, err := s.populator.Populate(ctx, FHIRQuestionnaire(*artifact), contextBundle)
	if err != nil {
		return nil, otel.Error(span, err)
	}
	return response, nil
}

func (s *Service) handlePopulateQuestionnaire(httpResponse http.ResponseWriter, request *http.Request) {
	span := trace.SpanFromContext(request.Context())
	artifactID, err := artifactIDFromRequest(request)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/PopulateQuestionnaire", httpResponse)
		return
	}
	span.AddEvent(otel.RequestReadingBody)
	body, err := io.ReadAll(request.Body)
	if err != nil {
		span.AddEvent(otel.RequestReadingBodyFailed)
		coolfhir.WriteOperationOutcomeFromError(request.Context(), coolfhir.BadRequest("could not read request body: %s", err.Error()), "Negotiator/PopulateQuestionnaire", httpResponse)
		return
	}
	subject, contextBundle, err := parsePopulateRequest(body)
	if err != nil {
		coolfhir.WriteOperationOutcomeFromError(request.Context(), coolfhir.BadRequest("invalid request body: %s", err.Error()), "Negotiator/PopulateQuestionnaire", httpResponse)
		return
	}
	response, err := s.PopulateQuestionnaire(request.Context(), artifactID, subject, contextBundle)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/PopulateQuestionnaire", httpResponse)
		return
	}
	coolfhir.SendResponse(httpResponse, http.StatusOK, response)
}

// parsePopulateRequest reads the $populate request body. The body is either a
// context Bundle itself, or a Parameters resource with a subject parameter
// and/or a bundle resource parameter. An empty body populates without
// context, leaving every expression-driven item unanswered.
func parsePopulateRequest(body []byte) (subject string, contextBundle map[string]interface{}, err error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil, nil
	}
	var document map[string]interface{}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&document); err != nil {
		return "", nil, err
	}
	switch resourceType, _ := document["resourceType"].(string); resourceType {
	case "Bundle":
		return "", document, nil
	case "Parameters":
		parameters, _ := document["parameter"].([]interface{})
		for _, raw := range parameters {
			parameter, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			switch name, _ := parameter["name"].(string); name {
			case "subject":
				if value, ok := parameter["valueString"].(string); ok {
					subject = value
				} else if reference, ok := parameter["valueReference"].(map[string]interface{}); ok {
					subject, _ = reference["reference"].(string)
				}
			case "bundle", "context":
				if resource, ok := parameter["resource"].(map[string]interface{}); ok {
					contextBundle = resource
				}
			}
		}
		return subject, contextBundle, nil
	default:
		return "", nil, fmt.Errorf("expected a Bundle or Parameters resource, got %q", resourceType)
	}
}
