package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error classification values for the error.type span attribute.
const (
	ErrTypeValidation = "validation"
	ErrTypeCancelled  = "cancelled"
	ErrTypeTooLarge   = "too_large"
	ErrTypeInternal   = "internal"
	ErrTypePanic      = "panic"
)

// Error origin values for the error.source span attribute.
const (
	ErrSourceClient = "client"
	ErrSourceServer = "server"
)

const (
	attrErrorType   = "error.type"
	attrErrorSource = "error.source"
)

// RecordSpanError records err on span, marks it failed, and attaches the
// classification attributes. An empty source is omitted.
func RecordSpanError(span trace.Span, err error, errType, source string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	attrs := []attribute.KeyValue{attribute.String(attrErrorType, errType)}
	if source != "" {
		attrs = append(attrs, attribute.String(attrErrorSource, source))
	}

	span.SetAttributes(attrs...)
}
