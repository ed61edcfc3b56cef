package coolfhir

import (
	"fmt"
	"net/http"

	lib_otel "github.com/SanteonNL/medex/negotiator/lib/otel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracedHTTPTransport decorates an http.RoundTripper with a client span per
// request and propagates the trace context through the request headers. It is
// used for FHIR servers that are called over plain HTTP instead of through a
// FHIR client, such as XML-based EHR endpoints.
type TracedHTTPTransport struct {
	base   http.RoundTripper
	tracer trace.Tracer
}

func NewTracedHTTPTransport(base http.RoundTripper, tracer trace.Tracer) *TracedHTTPTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &TracedHTTPTransport{
		base:   base,
		tracer: tracer,
	}
}

func (t *TracedHTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := t.tracer.Start(req.Context(),
		fmt.Sprintf("HTTP %s", req.Method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(lib_otel.HTTPMethod, req.Method),
			attribute.String(lib_otel.HTTPURL, req.URL.String()),
			attribute.String("http.scheme", req.URL.Scheme),
			attribute.String("http.host", req.URL.Host),
			attribute.String("http.target", req.URL.Path),
			attribute.String("user_agent.original", req.UserAgent()),
		),
	)
	defer span.End()

	// RoundTrippers must not modify the caller's request, so the trace
	// context goes into a clone.
	req = req.Clone(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}

	span.SetAttributes(
		attribute.Int(lib_otel.HTTPStatusCode, resp.StatusCode),
		attribute.String(lib_otel.HTTPStatusText, resp.Status),
	)
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return resp, nil
}
