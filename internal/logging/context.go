package logging

import (
	"context"

	"go.uber.org/zap"
)

type callIDCtxKey struct{}

// WithCallID attaches a tracked call id to ctx.
func WithCallID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, callIDCtxKey{}, id)
}

// CallIDFromContext returns the call id stored by WithCallID, or "".
func CallIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(callIDCtxKey{}).(string)
	return id
}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 1)
	if id := CallIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("call.id", id))
	}
	return fields
}
