package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/utils"
	"go.uber.org/zap"
)

// TokenIssuer signs bearer tokens for users
type TokenIssuer interface {
	Issue(user *models.User) (string, time.Time, error)
}

// SubjectResolver loads a user by token subject
type SubjectResolver interface {
	CurrentUser(ctx context.Context, subject string) (*models.User, error)
}

// TokenRequest asks for a token on behalf of a user
type TokenRequest struct {
	Subject string `json:"subject" validate:"required,max=255"`
}

// TokenResponse carries an issued bearer token
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenHandler issues tokens for local development. Routes mount it only when
// AUTH_DEV_TOKENS is enabled.
type TokenHandler struct {
	issuer TokenIssuer
	users  SubjectResolver
	logger *zap.Logger
}

// NewTokenHandler creates a new TokenHandler
func NewTokenHandler(issuer TokenIssuer, users SubjectResolver, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{issuer: issuer, users: users, logger: logger}
}

// HandleIssue handles POST /auth/token
func (h *TokenHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, h.logger)

	var req TokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	user, err := h.users.CurrentUser(r.Context(), req.Subject)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	token, expires, err := h.issuer.Issue(user)
	if err != nil {
		logger.Error("failed to issue token", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to issue token")
		return
	}

	logger.Info("development token issued",
		zap.String("user_id", user.ID.String()),
		zap.Time("expires_at", expires))
	_ = utils.WriteOK(w, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expires,
	})
}
