package negotiation

import (
	"context"
	"encoding/json"
	"fmt"
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

// Offer is one party's proposal in a negotiation: either a questionnaire
// asking the other party for input, or a questionnaire response answering the
// current questionnaire. Exactly one of the two must be set.
type Offer struct {
	Questionnaire *fhir.Questionnaire         `json:"questionnaire,omitempty"`
	Response      *fhir.QuestionnaireResponse `json:"questionnaireResponse,omitempty"`
}

func (o Offer) artifactType() (taskstore.ArtifactType, error) {
	switch {
	case o.Questionnaire != nil && o.Response == nil:
		return taskstore.ArtifactTypeQuestionnaire, nil
	case o.Response != nil && o.Questionnaire == nil:
		return taskstore.ArtifactTypeQuestionnaireResponse, nil
	default:
		return "", fmt.Errorf("%w: an offer must contain exactly one of questionnaire or questionnaireResponse", ErrInvalidOperation)
	}
}

// CounterOffer stores the actor's offer as a new artifact, makes it the
// task's current artifact and moves the task to the actor's in-progress
// state. The replaced artifact stays readable under its old id.
func (s *Service) CounterOffer(ctx context.Context, actor string, taskID int64, offer Offer) (*taskstore.Task, error) {
	ctx, span := s.tracer.Start(ctx, debug.GetFullCallerName(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(otel.NegotiationTaskID, strconv.FormatInt(taskID, 10)),
			attribute.String(otel.NegotiationActorID, taskstore.NormalizeActorID(actor)),
		))
	defer span.End()

	task, err := s.applyTransition(ctx, actor, taskID, TriggerCounterOffer, func(task *taskstore.Task, role Role) error {
		artifact, err := s.storeOffer(ctx, offer)
		if err != nil {
			return err
		}
		task.ArtifactID = artifact.ID
		task.ArtifactType = artifact.Type
		return nil
	})
	if err != nil {
		return nil, otel.Error(span, err)
	}
	span.SetAttributes(
		attribute.String(otel.NegotiationTaskState, string(task.State)),
		attribute.String(otel.NegotiationArtifactID, strconv.FormatInt(task.ArtifactID, 10)),
	)
	return task, nil
}

func (s *Service) handleCounterOfferTask(httpResponse http.ResponseWriter, request *http.Request) {
	taskID, err := taskIDFromRequest(request)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/CounterOfferTask", httpResponse)
		return
	}
	var offer Offer
	if err := json.NewDecoder(request.Body).Decode(&offer); err != nil {
		coolfhir.WriteOperationOutcomeFromError(request.Context(), coolfhir.BadRequest("invalid request body: %s", err.Error()), "Negotiator/CounterOfferTask", httpResponse)
		return
	}
	task, err := s.CounterOffer(request.Context(), requestActor(request), taskID, offer)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/CounterOfferTask", httpResponse)
		return
	}
	coolfhir.SendResponse(httpResponse, http.StatusOK, FHIRTask(*task))
}
