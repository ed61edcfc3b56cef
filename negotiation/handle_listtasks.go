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

// ListTasks returns every task the actor is a party to, newest first. Listing
// is a plain read, it does not move requested tasks to received.
func (s *Service) ListTasks(ctx context.Context, actor string) ([]taskstore.Task, error) {
	ctx, span := s.tracer.Start(ctx, debug.GetFullCallerName(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(otel.NegotiationActorID, taskstore.NormalizeActorID(actor)),
		))
	defer span.End()

	if actor == "" {
		return nil, otel.Error(span, ErrMissingActor)
	}
	tasks, err := s.store.ListTasks(ctx, taskstore.TaskFilter{Actor: actor})
	if err != nil {
		return nil, otel.Error(span, err)
	}
	span.SetAttributes(attribute.Int(otel.NegotiationTaskCount, len(tasks)))
	return tasks, nil
}

func (s *Service) handleListTasks(httpResponse http.ResponseWriter, request *http.Request) {
	tasks, err := s.ListTasks(request.Context(), requestActor(request))
	if err != nil {
		writeError(request.Context(), err, "Negotiator/ListTasks", httpResponse)
		return
	}
	results := coolfhir.SearchSet()
	for _, task := range tasks {
		results.Append(FHIRTask(task), nil, nil, coolfhir.WithFullUrl("Task/"+strconv.FormatInt(task.ID, 10)))
	}
	coolfhir.SendResponse(httpResponse, http.StatusOK, results.Bundle())
}
