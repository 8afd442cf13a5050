package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps successful payloads under "data"
type SuccessResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// errorCodes maps statuses to the machine-readable "error" field
var errorCodes = map[int]string{
	http.StatusBadRequest:          "bad_request",
	http.StatusUnauthorized:        "unauthorized",
	http.StatusForbidden:           "forbidden",
	http.StatusNotFound:            "not_found",
	http.StatusMethodNotAllowed:    "method_not_allowed",
	http.StatusConflict:            "conflict",
	http.StatusUnprocessableEntity: "unprocessable_entity",
	http.StatusInternalServerError: "internal_error",
	http.StatusBadGateway:          "bad_gateway",
	http.StatusServiceUnavailable:  "service_unavailable",
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteOK writes a 200 OK response with optional data
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

// WriteCreated writes a 201 Created response with optional data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, SuccessResponse{Data: data})
}

// WriteNoContent writes a 204 No Content response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteBadRequest writes a 400 Bad Request response with error details
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]interface{}) error {
	return WriteError(w, http.StatusBadRequest, message, details)
}

// WriteUnauthorized writes a 401 Unauthorized response
func WriteUnauthorized(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusUnauthorized, orDefault(message, "Authentication required"), nil)
}

// WriteForbidden writes a 403 Forbidden response
func WriteForbidden(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusForbidden, orDefault(message, "Access forbidden"), nil)
}

// WriteNotFound writes a 404 Not Found response
func WriteNotFound(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusNotFound, orDefault(message, "Resource not found"), nil)
}

// WriteConflict writes a 409 Conflict response, used for illegal state transitions
func WriteConflict(w http.ResponseWriter, message string, details map[string]interface{}) error {
	return WriteError(w, http.StatusConflict, message, details)
}

// WriteUnprocessable writes a 422 response with a specific error code, for
// well-formed requests the current data cannot satisfy.
func WriteUnprocessable(w http.ResponseWriter, code, message string, details map[string]interface{}) error {
	return WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:   orDefault(code, errorCodes[http.StatusUnprocessableEntity]),
		Message: message,
		Details: details,
	})
}

// WriteInternalServerError writes a 500 Internal Server Error response
func WriteInternalServerError(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusInternalServerError, orDefault(message, "Internal server error"), nil)
}

// WriteBadGateway writes a 502 response for failures of downstream collaborators
func WriteBadGateway(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusBadGateway, orDefault(message, "Upstream service failed"), nil)
}

// WriteError writes an error response whose code is derived from the status.
// Unknown statuses report internal_error.
func WriteError(w http.ResponseWriter, status int, message string, details map[string]interface{}) error {
	code, ok := errorCodes[status]
	if !ok {
		code = errorCodes[http.StatusInternalServerError]
	}
	return WriteJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
		Details: details,
	})
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
