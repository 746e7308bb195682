package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// CorrelationID returns the identifier attached to audit log lines and error
// responses. It reuses the active trace ID so a flag change can be correlated
// with its downstream effects; without an active span it falls back to a
// fresh UUID.
func CorrelationID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		return spanCtx.TraceID().String()
	}
	return uuid.NewString()
}
