package otel

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	baseotel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestHandlerWithTracing(t *testing.T) {
	tracer := sdktrace.NewTracerProvider().Tracer("middleware-test")

	t.Run("handler runs inside a server span", func(t *testing.T) {
		var spanCtx trace.SpanContext
		handler := HandlerWithTracing(tracer, "Negotiator/GetTask", func(w http.ResponseWriter, r *http.Request) {
			spanCtx = trace.SpanContextFromContext(r.Context())
			w.WriteHeader(http.StatusNotFound)
		})

		response := httptest.NewRecorder()
		handler(response, httptest.NewRequest(http.MethodGet, "/negotiator/Task/12", nil))

		assert.True(t, spanCtx.IsValid())
		assert.Equal(t, http.StatusNotFound, response.Code)
	})
	t.Run("handler that writes no status sends 200", func(t *testing.T) {
		handler := HandlerWithTracing(tracer, "Negotiator/ListTasks", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"resourceType":"Bundle"}`))
		})

		response := httptest.NewRecorder()
		handler(response, httptest.NewRequest(http.MethodGet, "/negotiator/Task", nil))

		assert.Equal(t, http.StatusOK, response.Code)
	})
	t.Run("joins the propagated trace", func(t *testing.T) {
		originalPropagator := baseotel.GetTextMapPropagator()
		baseotel.SetTextMapPropagator(propagation.TraceContext{})
		t.Cleanup(func() {
			baseotel.SetTextMapPropagator(originalPropagator)
		})

		var spanCtx trace.SpanContext
		handler := HandlerWithTracing(tracer, "Negotiator/GetTask", func(w http.ResponseWriter, r *http.Request) {
			spanCtx = trace.SpanContextFromContext(r.Context())
		})

		request := httptest.NewRequest(http.MethodGet, "/negotiator/Task/12", nil)
		request.Header.Set("traceparent", "00-11223344556677889900aabbccddeeff-1122334455667788-01")
		handler(httptest.NewRecorder(), request)

		assert.Equal(t, "11223344556677889900aabbccddeeff", spanCtx.TraceID().String())
	})
}
