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
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Close completes an accepted task. The closing document records the handover
// of the negotiated result, for a prescription request typically the document
// id and password of the signed prescription.
func (s *Service) Close(ctx context.Context, actor string, taskID int64, document taskstore.ClosingDocument) (*taskstore.Task, error) {
	ctx, span := s.tracer.Start(ctx, debug.GetFullCallerName(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(otel.NegotiationTaskID, strconv.FormatInt(taskID, 10)),
			attribute.String(otel.NegotiationActorID, taskstore.NormalizeActorID(actor)),
		))
	defer span.End()

	if actor == "" {
		return nil, otel.Error(span, ErrMissingActor)
	}
	if document.DocumentID == "" {
		return nil, otel.Error(span, fmt.Errorf("%w: a closing document is required", ErrInvalidOperation))
	}

	task, err := s.applyTransition(ctx, actor, taskID, TriggerClose, func(task *taskstore.Task, role Role) error {
		task.ClosingDocument = &taskstore.ClosingDocument{
			DocumentID: document.DocumentID,
			Password:   document.Password,
		}
		return nil
	})
	if err != nil {
		return nil, otel.Error(span, err)
	}
	span.SetAttributes(attribute.String(otel.NegotiationTaskState, string(task.State)))
	return task, nil
}

func (s *Service) handleCloseTask(httpResponse http.ResponseWriter, request *http.Request) {
	taskID, err := taskIDFromRequest(request)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/CloseTask", httpResponse)
		return
	}
	var document taskstore.ClosingDocument
	if err := json.NewDecoder(request.Body).Decode(&document); err != nil {
		coolfhir.WriteOperationOutcomeFromError(request.Context(), coolfhir.BadRequest("invalid request body: %s", err.Error()), "Negotiator/CloseTask", httpResponse)
		return
	}
	task, err := s.Close(request.Context(), requestActor(request), taskID, document)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/CloseTask", httpResponse)
		return
	}
	coolfhir.SendResponse(httpResponse, http.StatusOK, FHIRTask(*task))
}
