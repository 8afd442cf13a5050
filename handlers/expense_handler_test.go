package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/services"
	"github.com/upb/travel-control-plane/services/expense"
	"go.uber.org/zap"
)

func TestExpenseHandler(t *testing.T) {
	user := newTraveler()
	tripID := uuid.New()
	date := time.Date(2026, 11, 21, 0, 0, 0, 0, time.UTC)
	newClaim := func() *models.Expense {
		return models.NewExpense(user.CompanyID, tripID, user.ID, "Client dinner", decimal.RequireFromString("86.40"), "USD", date, models.ExpenseCategoryFood)
	}

	t.Run("create", func(t *testing.T) {
		svc := new(MockExpenseService)
		h := NewExpenseHandler(svc, zap.NewNop())
		created := newClaim()
		svc.On("Create", mock.Anything, user, mock.MatchedBy(func(in expense.CreateInput) bool {
			return in.TripID == tripID && in.Title == "Client dinner" && in.Date == "2026-11-21" &&
				in.Category == models.ExpenseCategoryFood && in.Amount.Equal(decimal.RequireFromString("86.4"))
		})).Return(created, nil)

		w := httptest.NewRecorder()
		h.HandleCreate(w, newRequest(http.MethodPost, "/api/v1/expenses",
			`{"trip_id":"`+tripID.String()+`","title":"Client dinner","amount":86.40,"date":"2026-11-21","category":"food"}`, user))

		require.Equal(t, http.StatusCreated, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, created.ID.String(), data["id"])
		assert.Equal(t, "pending", data["status"])
		svc.AssertExpectations(t)
	})

	t.Run("create rejects unknown fields", func(t *testing.T) {
		svc := new(MockExpenseService)
		h := NewExpenseHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleCreate(w, newRequest(http.MethodPost, "/api/v1/expenses", `{"title":"x","receipt":"scan.pdf"}`, user))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("list by trip and status", func(t *testing.T) {
		svc := new(MockExpenseService)
		h := NewExpenseHandler(svc, zap.NewNop())
		status := models.ExpenseStatusPending
		svc.On("List", mock.Anything, user, expense.ListInput{TripID: &tripID, Status: &status, Limit: 10}).
			Return([]*models.Expense{newClaim()}, nil)

		w := httptest.NewRecorder()
		h.HandleList(w, newRequest(http.MethodGet, "/api/v1/expenses?trip_id="+tripID.String()+"&status=pending&limit=10", "", user))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("list with unknown status", func(t *testing.T) {
		svc := new(MockExpenseService)
		h := NewExpenseHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleList(w, newRequest(http.MethodGet, "/api/v1/expenses?status=paid", "", user))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("owner cannot approve", func(t *testing.T) {
		svc := new(MockExpenseService)
		h := NewExpenseHandler(svc, zap.NewNop())
		id := uuid.New()
		svc.On("Update", mock.Anything, user, id, mock.MatchedBy(func(in expense.UpdateInput) bool {
			return in.Status != nil && *in.Status == models.ExpenseStatusApproved
		})).Return(nil, services.ErrInsufficientPermissions.Wrapf("only admins can review expenses"))

		w := httptest.NewRecorder()
		h.HandleUpdate(w, newRequest(http.MethodPatch, "/api/v1/expenses/"+id.String(),
			`{"status":"approved"}`, user, "id", id.String()))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin approves", func(t *testing.T) {
		svc := new(MockExpenseService)
		admin := newAdmin()
		h := NewExpenseHandler(svc, zap.NewNop())
		reviewed := newClaim()
		reviewed.Review(models.ExpenseStatusApproved, admin.ID)
		svc.On("Update", mock.Anything, admin, reviewed.ID, mock.Anything).Return(reviewed, nil)

		w := httptest.NewRecorder()
		h.HandleUpdate(w, newRequest(http.MethodPatch, "/api/v1/expenses/"+reviewed.ID.String(),
			`{"status":"approved"}`, admin, "id", reviewed.ID.String()))

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, "approved", data["status"])
		assert.Equal(t, admin.ID.String(), data["reviewed_by"])
	})

	t.Run("delete", func(t *testing.T) {
		svc := new(MockExpenseService)
		h := NewExpenseHandler(svc, zap.NewNop())
		id := uuid.New()
		svc.On("Delete", mock.Anything, user, id).Return(nil)

		w := httptest.NewRecorder()
		h.HandleDelete(w, newRequest(http.MethodDelete, "/api/v1/expenses/"+id.String(), "", user, "id", id.String()))

		assert.Equal(t, http.StatusNoContent, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("delete reviewed", func(t *testing.T) {
		svc := new(MockExpenseService)
		h := NewExpenseHandler(svc, zap.NewNop())
		id := uuid.New()
		svc.On("Delete", mock.Anything, user, id).Return(services.ErrExpenseReviewed)

		w := httptest.NewRecorder()
		h.HandleDelete(w, newRequest(http.MethodDelete, "/api/v1/expenses/"+id.String(), "", user, "id", id.String()))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("get with bad id", func(t *testing.T) {
		svc := new(MockExpenseService)
		h := NewExpenseHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleGet(w, newRequest(http.MethodGet, "/api/v1/expenses/nope", "", user, "id", "nope"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
