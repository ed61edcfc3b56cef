package negotiation

import (
	"context"
	"net/http"
	"strconv"

	"github.com/SanteonNL/medex/negotiator/lib/coolfhir"
	"github.com/SanteonNL/medex/negotiator/lib/debug"
	"github.com/SanteonNL/medex/negotiator/lib/otel"
	"github.com/SanteonNL/medex/negotiator/negotiation/taskstore"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Accept settles the negotiation on the task's current artifact. The task
// must hold an offer that has been seen, so a requested task cannot be
// accepted before the receiver read it.
func (s *Service) Accept(ctx context.Context, actor string, taskID int64) (*taskstore.Task, error) {
	ctx, span := s.tracer.Start(ctx, debug.GetFullCallerName(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(otel.NegotiationTaskID, strconv.FormatInt(taskID, 10)),
			attribute.String(otel.NegotiationActorID, taskstore.NormalizeActorID(actor)),
		))
	defer span.End()

	task, err := s.applyTransition(ctx, actor, taskID, TriggerAccept, nil)
	if err != nil {
		return nil, otel.Error(span, err)
	}
	span.SetAttributes(attribute.String(otel.NegotiationTaskState, string(task.State)))
	return task, nil
}

func (s *Service) handleAcceptTask(httpResponse http.ResponseWriter, request *http.Request) {
	taskID, err := taskIDFromRequest(request)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/AcceptTask", httpResponse)
		return
	}
	task, err := s.Accept(request.Context(), requestActor(request), taskID)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/AcceptTask", httpResponse)
		return
	}
	coolfhir.SendResponse(httpResponse, http.StatusOK, FHIRTask(*task))
}
