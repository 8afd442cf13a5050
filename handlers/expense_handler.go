package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/services/expense"
	"github.com/upb/travel-control-plane/utils"
	"go.uber.org/zap"
)

// ExpenseService defines the expense operations the HTTP layer needs
type ExpenseService interface {
	Create(ctx context.Context, actor *models.User, input expense.CreateInput) (*models.Expense, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Expense, error)
	List(ctx context.Context, actor *models.User, input expense.ListInput) ([]*models.Expense, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, input expense.UpdateInput) (*models.Expense, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
}

// ExpenseHandler handles expense HTTP requests
type ExpenseHandler struct {
	expenses ExpenseService
	logger   *zap.Logger
}

// NewExpenseHandler creates a new ExpenseHandler
func NewExpenseHandler(expenses ExpenseService, logger *zap.Logger) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses, logger: logger}
}

// HandleCreate handles POST /api/v1/expenses
func (h *ExpenseHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	logger := requestLogger(r, h.logger)

	var input expense.CreateInput
	if err := decodeJSON(w, r, &input); err != nil {
		badRequest(w, err)
		return
	}

	e, err := h.expenses.Create(r.Context(), user, input)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("expense created", zap.String("expense_id", e.ID.String()), zap.String("trip_id", e.TripID.String()))
	_ = utils.WriteCreated(w, e)
}

// HandleList handles GET /api/v1/expenses
// Query: trip_id, user_id, status, limit, offset.
func (h *ExpenseHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}

	page, err := pagination(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	input := expense.ListInput{Limit: page.Limit, Offset: page.Offset}
	if input.TripID, err = optionalUUIDQuery(r, "trip_id"); err != nil {
		badRequest(w, err)
		return
	}
	if input.UserID, err = optionalUUIDQuery(r, "user_id"); err != nil {
		badRequest(w, err)
		return
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.ExpenseStatus(raw)
		if !status.IsValid() {
			badRequest(w, fmt.Errorf("invalid status: %q", raw))
			return
		}
		input.Status = &status
	}

	expenses, err := h.expenses.List(r.Context(), user, input)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, expenses)
}

// HandleGet handles GET /api/v1/expenses/{id}
func (h *ExpenseHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}

	e, err := h.expenses.Get(r.Context(), user, id)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, e)
}

// HandleUpdate handles PATCH /api/v1/expenses/{id}
func (h *ExpenseHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	logger := requestLogger(r, h.logger)
	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}

	var input expense.UpdateInput
	if err := decodeJSON(w, r, &input); err != nil {
		badRequest(w, err)
		return
	}

	e, err := h.expenses.Update(r.Context(), user, id, input)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("expense updated", zap.String("expense_id", id.String()), zap.String("status", string(e.Status)))
	_ = utils.WriteOK(w, e)
}

// HandleDelete handles DELETE /api/v1/expenses/{id}
func (h *ExpenseHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	logger := requestLogger(r, h.logger)
	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}

	if err := h.expenses.Delete(r.Context(), user, id); err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("expense deleted", zap.String("expense_id", id.String()))
	utils.WriteNoContent(w)
}
