package transport

import (
	"context"
	"fmt"
	"strings"

	"algocrack/pkg/utils/contextkey"

	"github.com/google/uuid"
)

// TraceHeader carries the trace id to every service; gateways echo it back.
const TraceHeader = "X-Trace-Id"

// WithTrace tags ctx with a trace id. Requests made under ctx share it.
func WithTrace(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextkey.TraceID, traceID)
}

// NewTrace tags ctx with a fresh trace id.
func NewTrace(ctx context.Context) context.Context {
	return WithTrace(ctx, uuid.NewString())
}

// TraceID returns the trace id carried by ctx, or "".
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(contextkey.TraceID); v != nil {
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return ""
}

// ensureTrace returns ctx unchanged when it carries a trace id, otherwise a child with a new one.
func ensureTrace(ctx context.Context) (context.Context, string) {
	if id := TraceID(ctx); id != "" {
		return ctx, id
	}
	ctx = NewTrace(ctx)
	return ctx, TraceID(ctx)
}
