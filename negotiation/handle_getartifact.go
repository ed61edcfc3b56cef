package negotiation

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/SanteonNL/medex/negotiator/lib/coolfhir"
	"github.com/SanteonNL/medex/negotiator/lib/debug"
	"github.com/SanteonNL/medex/negotiator/lib/otel"
	"github.com/SanteonNL/medex/negotiator/negotiation/taskstore"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GetArtifact returns a stored offer by id. Artifacts are immutable and carry
// no party information of their own, so reads take no actor: whoever holds an
// artifact id obtained it through a task they are a party to.
func (s *Service) GetArtifact(ctx context.Context, artifactID int64) (*taskstore.Artifact, error) {
	ctx, span := s.tracer.Start(ctx, debug.GetFullCallerName(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(otel.NegotiationArtifactID, strconv.FormatInt(artifactID, 10)),
		))
	defer span.End()

	artifact, err := s.store.GetArtifact(ctx, artifactID)
	if err != nil {
		return nil, otel.Error(span, err)
	}
	return artifact, nil
}

// getTypedArtifact fetches an artifact and checks it is served under the
// right resource type, so Questionnaire/{id} does not leak a
// QuestionnaireResponse stored under the same id space.
func (s *Service) getTypedArtifact(ctx context.Context, artifactID int64, artifactType taskstore.ArtifactType) (*taskstore.Artifact, error) {
	artifact, err := s.GetArtifact(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	if artifact.Type != artifactType {
		return nil, fmt.Errorf("%w: no %s with id %d", taskstore.ErrArtifactNotFound, ArtifactResourceType(artifactType), artifactID)
	}
	return artifact, nil
}

func (s *Service) handleGetQuestionnaire(httpResponse http.ResponseWriter, request *http.Request) {
	artifactID, err := artifactIDFromRequest(request)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/GetQuestionnaire", httpResponse)
		return
	}
	artifact, err := s.getTypedArtifact(request.Context(), artifactID, taskstore.ArtifactTypeQuestionnaire)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/GetQuestionnaire", httpResponse)
		return
	}
	coolfhir.SendResponse(httpResponse, http.StatusOK, FHIRQuestionnaire(*artifact))
}

func (s *Service) handleGetQuestionnaireResponse(httpResponse http.ResponseWriter, request *http.Request) {
	artifactID, err := artifactIDFromRequest(request)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/GetQuestionnaireResponse", httpResponse)
		return
	}
	artifact, err := s.getTypedArtifact(request.Context(), artifactID, taskstore.ArtifactTypeQuestionnaireResponse)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/GetQuestionnaireResponse", httpResponse)
		return
	}
	coolfhir.SendResponse(httpResponse, http.StatusOK, FHIRQuestionnaireResponse(*artifact))
}
