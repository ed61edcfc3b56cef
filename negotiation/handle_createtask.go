package negotiation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/SanteonNL/medex/negotiator/lib/coolfhir"
	"github.com/SanteonNL/medex/negotiator/lib/debug"
	"github.com/SanteonNL/medex/negotiator/lib/logging"
	"github.com/SanteonNL/medex/negotiator/lib/otel"
	"github.com/SanteonNL/medex/negotiator/negotiation/taskstore"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// createTaskRequest is the JSON body of POST /fhir/Task. The opening
// questionnaire is either inlined or referenced by canonical URL to be
// resolved through the configured questionnaire loader.
type createTaskRequest struct {
	Receiver         string              `json:"receiver"`
	Kind             string              `json:"kind,omitempty"`
	Questionnaire    *fhir.Questionnaire `json:"questionnaire,omitempty"`
	QuestionnaireUrl string              `json:"questionnaireUrl,omitempty"`
}

// CreateRequest opens a negotiation: the actor becomes the requester of a new
// task in state requested, holding the given questionnaire as initial offer.
func (s *Service) CreateRequest(ctx context.Context, actor string, receiver string, kind string, questionnaire *fhir.Questionnaire) (*taskstore.Task, error) {
	ctx, span := s.tracer.Start(ctx, debug.GetFullCallerName(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(otel.NegotiationActorID, taskstore.NormalizeActorID(actor)),
			attribute.String(otel.NegotiationTaskKind, kind),
		))
	defer span.End()

	if actor == "" {
		return nil, otel.Error(span, ErrMissingActor)
	}
	if receiver == "" {
		return nil, otel.Error(span, fmt.Errorf("%w: a receiver is required", ErrInvalidOperation))
	}
	if taskstore.NormalizeActorID(actor) == taskstore.NormalizeActorID(receiver) {
		return nil, otel.Error(span, fmt.Errorf("%w: requester and receiver must be different parties", ErrInvalidOperation))
	}
	if questionnaire == nil {
		return nil, otel.Error(span, fmt.Errorf("%w: an opening questionnaire is required", ErrInvalidOperation))
	}

	artifact, err := s.storeOffer(ctx, Offer{Questionnaire: questionnaire})
	if err != nil {
		return nil, otel.Error(span, err)
	}
	id, err := s.store.AllocateTaskID(ctx)
	if err != nil {
		return nil, otel.Error(span, err)
	}
	now := s.now()
	task := taskstore.Task{
		ID:           id,
		Kind:         kind,
		Requester:    actor,
		Receiver:     receiver,
		Owner:        actor,
		State:        taskstore.StateRequested,
		ArtifactID:   artifact.ID,
		ArtifactType: artifact.Type,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.PutTask(ctx, task); err != nil {
		span.AddEvent(otel.TaskStoreWriteFailed)
		return nil, otel.Error(span, err)
	}
	span.AddEvent(otel.TaskStoreWrite)
	span.SetAttributes(
		attribute.String(otel.NegotiationTaskID, strconv.FormatInt(task.ID, 10)),
		attribute.String(otel.NegotiationTaskState, string(task.State)),
	)
	slog.InfoContext(ctx, "Negotiation opened",
		slog.String(logging.FieldTaskID, strconv.FormatInt(task.ID, 10)),
		slog.String(logging.FieldActorID, taskstore.NormalizeActorID(actor)))
	s.notifyTaskUpdated(ctx, task, actor, TriggerCreate)
	return &task, nil
}

func (s *Service) handleCreateTask(httpResponse http.ResponseWriter, request *http.Request) {
	var create createTaskRequest
	if err := json.NewDecoder(request.Body).Decode(&create); err != nil {
		coolfhir.WriteOperationOutcomeFromError(request.Context(), coolfhir.BadRequest("invalid request body: %s", err.Error()), "Negotiator/CreateTask", httpResponse)
		return
	}
	questionnaire := create.Questionnaire
	if questionnaire == nil && create.QuestionnaireUrl != "" {
		if s.questionnaires == nil {
			coolfhir.WriteOperationOutcomeFromError(request.Context(), coolfhir.BadRequest("no questionnaire loader is configured, inline the questionnaire"), "Negotiator/CreateTask", httpResponse)
			return
		}
		var err error
		questionnaire, err = s.questionnaires.Load(request.Context(), create.QuestionnaireUrl)
		if err != nil {
			coolfhir.WriteOperationOutcomeFromError(request.Context(), coolfhir.BadRequest("could not load questionnaire %s: %s", create.QuestionnaireUrl, err.Error()), "Negotiator/CreateTask", httpResponse)
			return
		}
		if questionnaire == nil {
			coolfhir.WriteOperationOutcomeFromError(request.Context(), coolfhir.BadRequest("questionnaire %s not found", create.QuestionnaireUrl), "Negotiator/CreateTask", httpResponse)
			return
		}
	}
	task, err := s.CreateRequest(request.Context(), requestActor(request), create.Receiver, create.Kind, questionnaire)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/CreateTask", httpResponse)
		return
	}
	coolfhir.SendResponse(httpResponse, http.StatusCreated, FHIRTask(*task))
}
