package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/internal/auth"
	"github.com/upb/travel-control-plane/internal/observability"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/services"
	"github.com/upb/travel-control-plane/utils"
	"go.uber.org/zap"
)

// TokenValidator defines the interface for validating bearer tokens
type TokenValidator interface {
	// ValidateToken validates a token and returns its claims
	ValidateToken(ctx context.Context, token string) (*auth.ParsedClaims, error)
}

// UserResolver loads the user a token subject refers to
type UserResolver interface {
	CurrentUser(ctx context.Context, subject string) (*models.User, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	validator TokenValidator
	users     UserResolver
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, users UserResolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		users:     users,
		logger:    logger,
	}
}

// RequestInfo copies request ID, client address and user agent into the
// context so services can attach them to logs and audit records.
func RequestInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := GetRequestIDFromContext(r.Context())
		ctx := WithRequestID(r.Context(), requestID)
		ctx = observability.WithRequestInfo(ctx, observability.RequestInfo{
			RequestID: requestID,
			IPAddress: clientIP(r.RemoteAddr),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth is a middleware that requires a valid bearer token belonging to
// a known user. The user is stored in the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractBearerToken(r)
		if token == "" {
			m.logger.Warn("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.validator.ValidateToken(ctx, token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			msg := "Invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "Token expired"
			}
			_ = utils.WriteUnauthorized(w, msg)
			return
		}

		user, err := m.users.CurrentUser(ctx, claims.Subject)
		if err != nil {
			if services.IsNotFoundError(err) || services.IsUnauthorizedError(err) {
				m.logger.Warn("token subject has no user",
					zap.String("request_id", requestID),
					zap.String("sub", claims.Subject))
				_ = utils.WriteUnauthorized(w, "Unknown user")
				return
			}
			m.logger.Error("failed to resolve user",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "Failed to authenticate")
			return
		}

		// A token minted for another company is stale after a move.
		if claims.CompanyID != uuid.Nil && claims.CompanyID != user.CompanyID {
			m.logger.Warn("token company does not match user",
				zap.String("request_id", requestID),
				zap.String("user_id", user.ID.String()))
			_ = utils.WriteUnauthorized(w, "Invalid token")
			return
		}

		ctx = WithClaims(ctx, claims)
		ctx = WithUser(ctx, user)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("user_id", user.ID.String()),
			zap.String("role", string(user.Role)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole is a middleware that requires the user to hold one of roles.
// It must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			user := UserFromContext(ctx)
			if user == nil {
				m.logger.Error("user not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			m.logger.Warn("insufficient permissions",
				zap.String("request_id", requestID),
				zap.String("user_id", user.ID.String()),
				zap.String("role", string(user.Role)))
			_ = utils.WriteForbidden(w, "Insufficient permissions")
		})
	}
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
