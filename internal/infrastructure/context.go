package infrastructure

import (
	"context"

	"github.com/google/uuid"
)

// EnsureTraceID returns ctx unchanged when it already carries a trace ID.
// Otherwise a fresh one is attached, so work started outside an HTTP
// request (hub broadcasts, WebSocket pumps) still correlates in the logs.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, uuid.NewString())
}
