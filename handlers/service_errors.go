package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/travel-control-plane/services"
	"github.com/upb/travel-control-plane/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)
	message := clientMessage(err)

	var writeErr error
	switch {
	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, message)

	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, message, details)

	case services.IsUnauthorizedError(err):
		writeErr = utils.WriteUnauthorized(w, message)

	case services.IsForbiddenError(err):
		writeErr = utils.WriteForbidden(w, message)

	case services.IsConflictError(err):
		writeErr = utils.WriteConflict(w, message, details)

	case services.IsRoutingError(err):
		// Nobody can approve; an operator has to fix the org chart.
		logger.Warn("approval routing failed", zap.Error(err))
		writeErr = utils.WriteUnprocessable(w, "no_approver_available", message, details)

	case services.IsExternalError(err):
		logger.Error("external collaborator failed", zap.Error(err))
		writeErr = utils.WriteBadGateway(w, message)

	case services.IsInternalError(err):
		// Log internal errors but return generic message
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "An unexpected error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// clientMessage returns the domain message without the wrapped cause.
func clientMessage(err error) string {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		details := make(map[string]interface{})
		for k, v := range utils.GetValidationFields(err) {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
