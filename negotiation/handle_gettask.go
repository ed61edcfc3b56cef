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

// GetTask returns a task to one of its parties. The first time the receiver
// reads a task that is still requested, the read itself moves it to received.
// Any later read, by either party and in any state, leaves the task as is.
func (s *Service) GetTask(ctx context.Context, actor string, taskID int64) (*taskstore.Task, error) {
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
	lock := s.lockFor(taskID)
	lock.Lock()
	defer lock.Unlock()

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, otel.Error(span, err)
	}
	role, err := s.roleOf(task, actor)
	if err != nil {
		return nil, otel.Error(span, err)
	}
	if role == RoleReceiver && task.State == taskstore.StateRequested {
		task, err = s.applyTransitionLocked(ctx, actor, taskID, TriggerReceive, nil)
		if err != nil {
			return nil, otel.Error(span, err)
		}
	}
	span.SetAttributes(attribute.String(otel.NegotiationTaskState, string(task.State)))
	return task, nil
}

func (s *Service) handleGetTask(httpResponse http.ResponseWriter, request *http.Request) {
	taskID, err := taskIDFromRequest(request)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/GetTask", httpResponse)
		return
	}
	task, err := s.GetTask(request.Context(), requestActor(request), taskID)
	if err != nil {
		writeError(request.Context(), err, "Negotiator/GetTask", httpResponse)
		return
	}
	coolfhir.SendResponse(httpResponse, http.StatusOK, FHIRTask(*task))
}
