package coolfhir

import (
	"context"
	"net/http"
	"net/url"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/SanteonNL/medex/negotiator/lib/debug"
	"github.com/SanteonNL/medex/negotiator/lib/otel"
	baseotel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracedFHIRClient decorates a FHIR client with a client span per operation
// and propagates the trace context to the FHIR server through request headers.
type TracedFHIRClient struct {
	client fhirclient.Client
	tracer trace.Tracer
}

func NewTracedFHIRClient(client fhirclient.Client, tracer trace.Tracer) *TracedFHIRClient {
	return &TracedFHIRClient{
		client: client,
		tracer: tracer,
	}
}

// startSpan opens a client span named after the exported method that called it.
func (t *TracedFHIRClient) startSpan(ctx context.Context, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx,
		debug.GetFullCallerName(2),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// withTraceHeaders appends an option that carries the trace context as request headers.
func withTraceHeaders(ctx context.Context, options []fhirclient.Option) []fhirclient.Option {
	headers := make(http.Header)
	baseotel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
	if len(headers) > 0 {
		options = append(options, fhirclient.RequestHeaders(headers))
	}
	return options
}

func finishSpan(span trace.Span, err error) error {
	if err != nil {
		return otel.Error(span, err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (t *TracedFHIRClient) CreateWithContext(ctx context.Context, resource interface{}, result interface{}, options ...fhirclient.Option) error {
	ctx, span := t.startSpan(ctx,
		attribute.String(otel.FHIROperation, "create"),
		attribute.String(otel.FHIRResourceType, ResourceType(resource)),
	)
	defer span.End()

	return finishSpan(span, t.client.CreateWithContext(ctx, resource, result, withTraceHeaders(ctx, options)...))
}

func (t *TracedFHIRClient) Create(resource interface{}, result interface{}, options ...fhirclient.Option) error {
	return t.CreateWithContext(context.Background(), resource, result, options...)
}

func (t *TracedFHIRClient) ReadWithContext(ctx context.Context, path string, result interface{}, options ...fhirclient.Option) error {
	ctx, span := t.startSpan(ctx,
		attribute.String(otel.FHIROperation, "read"),
		attribute.String("fhir.path", path),
	)
	defer span.End()

	return finishSpan(span, t.client.ReadWithContext(ctx, path, result, withTraceHeaders(ctx, options)...))
}

func (t *TracedFHIRClient) Read(path string, result interface{}, options ...fhirclient.Option) error {
	return t.ReadWithContext(context.Background(), path, result, options...)
}

func (t *TracedFHIRClient) UpdateWithContext(ctx context.Context, path string, resource interface{}, result interface{}, options ...fhirclient.Option) error {
	ctx, span := t.startSpan(ctx,
		attribute.String(otel.FHIROperation, "update"),
		attribute.String(otel.FHIRResourceType, ResourceType(resource)),
	)
	defer span.End()

	return finishSpan(span, t.client.UpdateWithContext(ctx, path, resource, result, withTraceHeaders(ctx, options)...))
}

func (t *TracedFHIRClient) Update(path string, resource interface{}, result interface{}, options ...fhirclient.Option) error {
	return t.UpdateWithContext(context.Background(), path, resource, result, options...)
}

func (t *TracedFHIRClient) DeleteWithContext(ctx context.Context, path string, options ...fhirclient.Option) error {
	ctx, span := t.startSpan(ctx,
		attribute.String(otel.FHIROperation, "delete"),
		attribute.String("fhir.path", path),
	)
	defer span.End()

	return finishSpan(span, t.client.DeleteWithContext(ctx, path, withTraceHeaders(ctx, options)...))
}

func (t *TracedFHIRClient) Delete(path string, options ...fhirclient.Option) error {
	return t.DeleteWithContext(context.Background(), path, options...)
}

func (t *TracedFHIRClient) SearchWithContext(ctx context.Context, resourceType string, params url.Values, result interface{}, options ...fhirclient.Option) error {
	ctx, span := t.startSpan(ctx,
		attribute.String(otel.FHIROperation, "search"),
		attribute.String(otel.FHIRResourceType, resourceType),
		attribute.Int(otel.FHIRSearchParamCount, len(params)),
	)
	defer span.End()

	return finishSpan(span, t.client.SearchWithContext(ctx, resourceType, params, result, withTraceHeaders(ctx, options)...))
}

func (t *TracedFHIRClient) Search(resourceType string, params url.Values, result interface{}, options ...fhirclient.Option) error {
	return t.SearchWithContext(context.Background(), resourceType, params, result, options...)
}

func (t *TracedFHIRClient) Path(path ...string) *url.URL {
	return t.client.Path(path...)
}
