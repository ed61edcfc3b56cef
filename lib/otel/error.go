package otel

import (
	"strings"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error records the error on the span, marks the span as failed and returns
// the error unchanged, so it can wrap a return statement. An optional message
// overrides err.Error() as the span status description.
func Error(span trace.Span, err error, message ...string) error {
	if err == nil {
		return nil
	}
	span.RecordError(err)

	statusDesc := err.Error()
	if len(message) > 0 && message[0] != "" {
		statusDesc = strings.Join(message, ",")
	}
	span.SetStatus(codes.Error, statusDesc)
	return err
}
