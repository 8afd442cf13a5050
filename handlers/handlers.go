package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/internal/observability"
	"github.com/upb/travel-control-plane/middleware"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/utils"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// Pagination holds limit/offset query parameters. Zero means "service default".
type Pagination struct {
	Limit  int
	Offset int
}

// decodeJSON reads a JSON request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// idParam parses a UUID path parameter
func idParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return id, nil
}

// optionalUUIDQuery parses an optional UUID query parameter
func optionalUUIDQuery(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return &id, nil
}

// pagination parses limit and offset query parameters
func pagination(r *http.Request) (Pagination, error) {
	var p Pagination
	for _, q := range []struct {
		name string
		dst  *int
	}{
		{"limit", &p.Limit},
		{"offset", &p.Offset},
	} {
		raw := r.URL.Query().Get(q.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Pagination{}, fmt.Errorf("%s must be a non-negative integer", q.name)
		}
		*q.dst = n
	}
	return p, nil
}

// requestUser returns the authenticated user. It writes a 401 and returns nil
// when the route was mounted without RequireAuth.
func requestUser(w http.ResponseWriter, r *http.Request) *models.User {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
	}
	return user
}

// badRequest writes a 400 for malformed paths, queries and bodies
func badRequest(w http.ResponseWriter, err error) {
	_ = utils.WriteBadRequest(w, err.Error(), nil)
}

func requestLogger(r *http.Request, base *zap.Logger) *zap.Logger {
	return observability.Logger(r.Context(), base)
}
