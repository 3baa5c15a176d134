package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext identifies one gateway request across log lines and
// upstream spans.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

// NewTrace builds the identifiers for a request. Empty trace and request
// ids are generated; the span id always is.
func NewTrace(traceID, requestID string) *TraceContext {
	if traceID == "" {
		traceID = uuid.New().String()
	}
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return &TraceContext{
		TraceID:   traceID,
		SpanID:    uuid.New().String()[:16],
		RequestID: requestID,
	}
}

type traceContextKey struct{}

// WithTrace stores the trace in the context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns the request trace, or nil outside a request.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}
