package otel

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// HandlerWithTracing wraps the handler in a server span named after the
// operation. The trace context of the incoming request is honored, so spans
// join the caller's trace when one is propagated. Response status codes of 400
// and up mark the span as failed.
func HandlerWithTracing(tracer trace.Tracer, operationName string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(
			ctx,
			operationName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String(HTTPMethod, r.Method),
				attribute.String(HTTPURL, r.URL.String()),
				attribute.String("server.address", r.Host),
			),
		)
		defer span.End()

		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		handler(wrapped, r.WithContext(ctx))

		span.SetAttributes(attribute.Int(HTTPStatusCode, wrapped.statusCode))
		if wrapped.statusCode >= 400 {
			span.SetStatus(codes.Error, http.StatusText(wrapped.statusCode))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// statusRecorder captures the status code written by the handler.
// Handlers that never call WriteHeader implicitly send 200.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
