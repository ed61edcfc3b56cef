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

// Reject ends the negotiation without agreement. Either party can reject at
// any point before the task reached a terminal state.
func (s *Service) Reject(ctx context.Context, actor string, taskID int64) (*taskstore.Task, error) {
	ctx, span := s.tracer.Start(ctx, debug.GetFullCallerName(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(otel.NegotiationTaskID, strconv.FormatInt(taskID, 10)),
			attribute.String(otel.NegotiationActorID, taskstore.NormalizeActorID(actor)),
		))
	defer span.End()

	task, err := s.applyTransition(ctx, actor, taskID, TriggerReject, nil)
	if err != nil {
		return nil, otel.Error(span, err)
	}
	span.SetAttributes(attribute.String(otel.NegotiationTaskState, string(task.State)))
	return task, nil
}

func (s *Service) handleRejectTask(httpResponse http.ResponseWriter, request *http.Request) {
	taskID, err := taskIDFromRequest(request)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/RejectTask", httpResponse)
		return
	}
	task, err := s.Reject(request.Context(), requestActor(request), taskID)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/RejectTask", httpResponse)
		return
	}
	coolfhir.SendResponse(httpResponse, http.StatusOK, FHIRTask(*task))
}
