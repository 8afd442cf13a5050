package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseCategory classifies an out-of-pocket trip expense
type ExpenseCategory string

const (
	ExpenseCategoryAccommodation  ExpenseCategory = "accommodation"
	ExpenseCategoryTransportation ExpenseCategory = "transportation"
	ExpenseCategoryFood           ExpenseCategory = "food"
	ExpenseCategoryEntertainment  ExpenseCategory = "entertainment"
	ExpenseCategoryOther          ExpenseCategory = "other"
)

// IsValid reports whether the category is known
func (c ExpenseCategory) IsValid() bool {
	switch c {
	case ExpenseCategoryAccommodation, ExpenseCategoryTransportation, ExpenseCategoryFood,
		ExpenseCategoryEntertainment, ExpenseCategoryOther:
		return true
	}
	return false
}

// ExpenseStatus represents the review state of an expense
type ExpenseStatus string

const (
	ExpenseStatusPending  ExpenseStatus = "pending"
	ExpenseStatusApproved ExpenseStatus = "approved"
	ExpenseStatusRejected ExpenseStatus = "rejected"
)

// IsValid reports whether the status is known
func (s ExpenseStatus) IsValid() bool {
	switch s {
	case ExpenseStatusPending, ExpenseStatusApproved, ExpenseStatusRejected:
		return true
	}
	return false
}

var expenseTransitions = map[ExpenseStatus][]ExpenseStatus{
	ExpenseStatusPending:  {ExpenseStatusApproved, ExpenseStatusRejected},
	ExpenseStatusApproved: {ExpenseStatusPending},
	ExpenseStatusRejected: {ExpenseStatusPending},
}

// CanTransitionTo reports whether moving from s to next is allowed.
// A reviewed expense can only be reopened.
func (s ExpenseStatus) CanTransitionTo(next ExpenseStatus) bool {
	for _, allowed := range expenseTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Expense is a cost a traveler paid during a trip and claims back
type Expense struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	CompanyID   uuid.UUID       `json:"company_id" db:"company_id"`
	TripID      uuid.UUID       `json:"trip_id" db:"trip_id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	Title       string          `json:"title" db:"title"`
	Description string          `json:"description,omitempty" db:"description"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Currency    string          `json:"currency" db:"currency"`
	Date        time.Time       `json:"date" db:"expense_date"`
	Category    ExpenseCategory `json:"category" db:"category"`
	Status      ExpenseStatus   `json:"status" db:"status"`
	ReviewedBy  *uuid.UUID      `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt  *time.Time      `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Expense model
func (Expense) TableName() string {
	return "expenses"
}

// NewExpense creates a new pending Expense
func NewExpense(companyID, tripID, userID uuid.UUID, title string, amount decimal.Decimal, currency string, date time.Time, category ExpenseCategory) *Expense {
	now := time.Now()
	return &Expense{
		ID:        uuid.New(),
		CompanyID: companyID,
		TripID:    tripID,
		UserID:    userID,
		Title:     title,
		Amount:    amount,
		Currency:  currency,
		Date:      date,
		Category:  category,
		Status:    ExpenseStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsOwnedBy reports whether userID filed the expense
func (e *Expense) IsOwnedBy(userID uuid.UUID) bool {
	return e.UserID == userID
}

// IsReviewed reports whether an admin has approved or rejected the expense
func (e *Expense) IsReviewed() bool {
	return e.Status != ExpenseStatusPending
}

// Review moves the expense to status and stamps the reviewer. Reopening
// clears the stamp.
func (e *Expense) Review(status ExpenseStatus, reviewerID uuid.UUID) {
	now := time.Now()
	e.Status = status
	e.UpdatedAt = now
	if status == ExpenseStatusPending {
		e.ReviewedBy = nil
		e.ReviewedAt = nil
		return
	}
	e.ReviewedBy = &reviewerID
	e.ReviewedAt = &now
}
