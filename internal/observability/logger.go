package observability

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{}

// RequestInfo describes the inbound request that triggered an operation.
type RequestInfo struct {
	RequestID string
	IPAddress string
	UserAgent string
}

// WithRequestInfo stores request metadata in ctx.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

// RequestInfoFrom returns the request metadata stored in ctx, or the zero value.
func RequestInfoFrom(ctx context.Context) RequestInfo {
	if ctx == nil {
		return RequestInfo{}
	}
	info, _ := ctx.Value(contextKey{}).(RequestInfo)
	return info
}

// Logger returns base annotated with the request_id found in ctx.
func Logger(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	if id := RequestInfoFrom(ctx).RequestID; id != "" {
		return base.With(zap.String("request_id", id))
	}
	return base
}
