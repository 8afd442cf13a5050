package expense

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/upb/travel-control-plane/internal/observability"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"github.com/upb/travel-control-plane/services"
	"github.com/upb/travel-control-plane/services/audit"
	"go.uber.org/zap"
)

// CreateInput describes a new expense claim. Date uses models.BookingDateLayout.
type CreateInput struct {
	TripID      uuid.UUID              `json:"trip_id" validate:"required"`
	Title       string                 `json:"title" validate:"required,max=255"`
	Description string                 `json:"description,omitempty" validate:"max=2000"`
	Amount      decimal.Decimal        `json:"amount"`
	Currency    string                 `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Date        string                 `json:"date" validate:"required"`
	Category    models.ExpenseCategory `json:"category" validate:"required,oneof=accommodation transportation food entertainment other"`
}

// UpdateInput carries optional expense changes. Status is reserved for admins.
type UpdateInput struct {
	Title       *string                 `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string                 `json:"description,omitempty" validate:"omitempty,max=2000"`
	Amount      *decimal.Decimal        `json:"amount,omitempty"`
	Currency    *string                 `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Date        *string                 `json:"date,omitempty"`
	Category    *models.ExpenseCategory `json:"category,omitempty" validate:"omitempty,oneof=accommodation transportation food entertainment other"`
	Status      *models.ExpenseStatus   `json:"status,omitempty" validate:"omitempty,oneof=pending approved rejected"`
}

// ListInput filters expense listings
type ListInput struct {
	TripID *uuid.UUID
	UserID *uuid.UUID
	Status *models.ExpenseStatus
	Limit  int
	Offset int
}

// Config tunes the expense service
type Config struct {
	DefaultCurrency string
}

// ExpenseService manages the expenses travelers claim against their trips
type ExpenseService struct {
	expenses repositories.ExpenseRepository
	trips    repositories.TripRepository
	audit    audit.Recorder
	logger   *zap.Logger
	currency string
}

// NewExpenseService creates a new ExpenseService instance
func NewExpenseService(expenses repositories.ExpenseRepository, trips repositories.TripRepository, recorder audit.Recorder, logger *zap.Logger, cfg Config) *ExpenseService {
	currency := strings.ToUpper(cfg.DefaultCurrency)
	if currency == "" {
		currency = "USD"
	}
	return &ExpenseService{
		expenses: expenses,
		trips:    trips,
		audit:    recorder,
		logger:   logger,
		currency: currency,
	}
}

func parseDate(value string) (time.Time, error) {
	date, err := time.Parse(models.BookingDateLayout, value)
	if err != nil {
		return time.Time{}, services.ErrInvalidExpense.Wrapf("date must be YYYY-MM-DD").WithDetail("field", "date")
	}
	return date, nil
}

func checkAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return services.ErrInvalidExpense.Wrapf("amount must not be negative").WithDetail("field", "amount")
	}
	return nil
}

// Create files a pending expense against a trip the actor owns or administers
func (s *ExpenseService) Create(ctx context.Context, actor *models.User, input CreateInput) (*models.Expense, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	if err := services.ValidateInput(input); err != nil {
		return nil, err
	}
	if err := checkAmount(input.Amount); err != nil {
		return nil, err
	}
	date, err := parseDate(input.Date)
	if err != nil {
		return nil, err
	}

	trip, err := s.trips.GetByID(ctx, input.TripID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrInvalidExpense.Wrapf("trip %s does not exist", input.TripID).WithDetail("field", "trip_id")
		}
		return nil, services.WrapInternal("failed to load trip", err)
	}
	if trip.CompanyID != actor.CompanyID {
		return nil, services.ErrInvalidExpense.Wrapf("trip belongs to another company").WithDetail("field", "trip_id")
	}
	if trip.UserID != actor.ID && !actor.CanManageCompany(trip.CompanyID) {
		return nil, services.ErrInvalidExpense.Wrapf("trip belongs to another traveler").WithDetail("field", "trip_id")
	}
	if trip.Status == models.TripStatusCancelled {
		return nil, services.ErrInvalidExpense.Wrapf("trip is cancelled").WithDetail("field", "trip_id")
	}

	currency := strings.ToUpper(input.Currency)
	if currency == "" {
		currency = s.currency
	}

	e := models.NewExpense(actor.CompanyID, trip.ID, actor.ID, strings.TrimSpace(input.Title), input.Amount.Round(2), currency, date, input.Category)
	e.Description = input.Description

	if err := s.expenses.Create(ctx, e); err != nil {
		return nil, services.FromRepository(err, services.ErrExpenseNotFound, "failed to create expense")
	}

	observability.Logger(ctx, s.logger).Info("expense created",
		zap.String("expense_id", e.ID.String()),
		zap.String("trip_id", trip.ID.String()),
		zap.String("amount", e.Amount.String()))
	s.record(ctx, audit.ExpenseCreated(e, actor.ID))
	return e, nil
}

// load returns an expense the actor filed or administers
func (s *ExpenseService) load(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Expense, error) {
	e, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrExpenseNotFound, "failed to get expense")
	}
	if !e.IsOwnedBy(actor.ID) && !actor.CanManageCompany(e.CompanyID) {
		return nil, services.ErrExpenseNotFound
	}
	return e, nil
}

// Get returns an expense visible to the actor
func (s *ExpenseService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Expense, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	return s.load(ctx, actor, id)
}

// List returns the actor's own expenses, or for admins the company's
func (s *ExpenseService) List(ctx context.Context, actor *models.User, input ListInput) ([]*models.Expense, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	limit, offset := input.Limit, input.Offset
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	filter := repositories.ExpenseFilter{
		CompanyID: actor.CompanyID,
		UserID:    input.UserID,
		TripID:    input.TripID,
		Status:    input.Status,
		Limit:     limit,
		Offset:    offset,
	}
	if !actor.CanManageCompany(actor.CompanyID) {
		if input.UserID != nil && *input.UserID != actor.ID {
			return nil, services.ErrInsufficientPermissions
		}
		filter.UserID = &actor.ID
	}

	expenses, err := s.expenses.List(ctx, filter)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrExpenseNotFound, "failed to list expenses")
	}
	return expenses, nil
}

// Update edits an expense or, for admins, approves, rejects or reopens it.
// Owners may only edit pending expenses, and nobody reviews their own claim.
func (s *ExpenseService) Update(ctx context.Context, actor *models.User, id uuid.UUID, input UpdateInput) (*models.Expense, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	if err := services.ValidateInput(input); err != nil {
		return nil, err
	}

	e, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	admin := actor.CanManageCompany(e.CompanyID)

	changes := make(map[string]interface{})
	if input.Title != nil && strings.TrimSpace(*input.Title) != e.Title {
		changes["title"] = map[string]string{"old": e.Title, "new": *input.Title}
		e.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil && *input.Description != e.Description {
		changes["description"] = map[string]string{"old": e.Description, "new": *input.Description}
		e.Description = *input.Description
	}
	if input.Amount != nil && !input.Amount.Round(2).Equal(e.Amount) {
		if err := checkAmount(*input.Amount); err != nil {
			return nil, err
		}
		changes["amount"] = map[string]string{"old": e.Amount.String(), "new": input.Amount.Round(2).String()}
		e.Amount = input.Amount.Round(2)
	}
	if input.Currency != nil && strings.ToUpper(*input.Currency) != e.Currency {
		changes["currency"] = map[string]string{"old": e.Currency, "new": strings.ToUpper(*input.Currency)}
		e.Currency = strings.ToUpper(*input.Currency)
	}
	if input.Date != nil {
		date, err := parseDate(*input.Date)
		if err != nil {
			return nil, err
		}
		if !date.Equal(e.Date) {
			changes["date"] = map[string]string{"old": e.Date.Format(models.BookingDateLayout), "new": *input.Date}
			e.Date = date
		}
	}
	if input.Category != nil && *input.Category != e.Category {
		changes["category"] = map[string]string{"old": string(e.Category), "new": string(*input.Category)}
		e.Category = *input.Category
	}
	if len(changes) > 0 && e.IsReviewed() && !admin {
		return nil, services.ErrExpenseReviewed.WithDetail("status", string(e.Status))
	}

	from := e.Status
	reviewed := false
	if input.Status != nil && *input.Status != e.Status {
		if !admin {
			return nil, services.ErrInsufficientPermissions.Wrapf("only admins can review expenses")
		}
		if e.IsOwnedBy(actor.ID) {
			return nil, services.ErrInsufficientPermissions.Wrapf("expenses cannot be reviewed by their owner")
		}
		if !e.Status.CanTransitionTo(*input.Status) {
			return nil, services.ErrInvalidTransition.Wrapf("expense cannot move from %s to %s", e.Status, *input.Status)
		}
		e.Review(*input.Status, actor.ID)
		reviewed = true
	}

	if len(changes) == 0 && !reviewed {
		return e, nil
	}
	e.UpdatedAt = time.Now()

	if err := s.expenses.Update(ctx, e); err != nil {
		return nil, services.FromRepository(err, services.ErrExpenseNotFound, "failed to update expense")
	}

	logger := observability.Logger(ctx, s.logger)
	if len(changes) > 0 {
		logger.Info("expense updated",
			zap.String("expense_id", e.ID.String()),
			zap.Int("changes", len(changes)))
		s.record(ctx, audit.ExpenseUpdated(e, actor.ID, changes))
	}
	if reviewed {
		logger.Info("expense reviewed",
			zap.String("expense_id", e.ID.String()),
			zap.String("from", string(from)),
			zap.String("to", string(e.Status)))
		s.record(ctx, audit.ExpenseReviewed(e, actor.ID, from))
	}
	return e, nil
}

// Delete removes an expense. Owners may only delete pending expenses.
func (s *ExpenseService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if actor == nil {
		return services.ErrUnauthorized
	}
	e, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if e.IsReviewed() && !actor.CanManageCompany(e.CompanyID) {
		return services.ErrExpenseReviewed.WithDetail("status", string(e.Status))
	}

	if err := s.expenses.Delete(ctx, e.ID); err != nil {
		return services.FromRepository(err, services.ErrExpenseNotFound, "failed to delete expense")
	}

	observability.Logger(ctx, s.logger).Info("expense deleted", zap.String("expense_id", e.ID.String()))
	s.record(ctx, audit.ExpenseDeleted(e, actor.ID))
	return nil
}

func (s *ExpenseService) record(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		observability.Logger(ctx, s.logger).Warn("failed to record audit event",
			zap.String("action", string(log.Action)),
			zap.Error(err))
	}
}
