package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/travel-control-plane/internal/auth"
	"github.com/upb/travel-control-plane/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// ClaimsKey is the context key for validated token claims
	ClaimsKey contextKey = "claims"

	// UserKey is the context key for the authenticated user
	UserKey contextKey = "user"
)

// GetRequestIDFromContext retrieves the request ID from context, falling back
// to the one assigned by chi's RequestID middleware.
func GetRequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		return requestID
	}
	return chimw.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetClaimsFromContext retrieves token claims from context
func GetClaimsFromContext(ctx context.Context) *auth.ParsedClaims {
	claims, _ := ctx.Value(ClaimsKey).(*auth.ParsedClaims)
	return claims
}

// WithClaims adds token claims to the context
func WithClaims(ctx context.Context, claims *auth.ParsedClaims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// UserFromContext returns the authenticated user, or nil
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserKey).(*models.User)
	return user
}

// WithUser adds the authenticated user to the context
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}
