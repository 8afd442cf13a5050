// Package observability carries request metadata through context.Context
// and provides the request-scoped zap logger and in-process counters used by
// the booking and approval services.
package observability
