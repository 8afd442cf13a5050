package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"go.uber.org/zap"
)

const expenseColumns = `id, company_id, trip_id, user_id, title, description, amount, currency,
	expense_date, category, status, reviewed_by, reviewed_at, created_at, updated_at`

// ExpenseRepository implements the repositories.ExpenseRepository interface
type ExpenseRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *DB, logger *zap.Logger) repositories.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new expense
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	query := `
		INSERT INTO expenses (` + expenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		expense.ID,
		expense.CompanyID,
		expense.TripID,
		expense.UserID,
		expense.Title,
		expense.Description,
		expense.Amount,
		expense.Currency,
		expense.Date,
		expense.Category,
		expense.Status,
		expense.ReviewedBy,
		expense.ReviewedAt,
		expense.CreatedAt,
		expense.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "create expense", "expense "+expense.ID.String())
	}

	r.logger.Debug("expense created", zap.String("id", expense.ID.String()), zap.String("trip_id", expense.TripID.String()))
	return nil
}

// GetByID retrieves an expense by ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	expense, err := scanExpense(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "get expense", "expense "+id.String())
	}
	return expense, nil
}

// List retrieves a company's expenses matching filter, latest first
func (r *ExpenseRepository) List(ctx context.Context, filter repositories.ExpenseFilter) ([]*models.Expense, error) {
	conditions := []string{"company_id = $1"}
	args := []interface{}{filter.CompanyID}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.TripID != nil {
		args = append(args, *filter.TripID)
		conditions = append(conditions, fmt.Sprintf("trip_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	args = append(args, filter.Limit, filter.Offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM expenses
		WHERE %s
		ORDER BY expense_date DESC, id ASC
		LIMIT $%d OFFSET $%d
	`, expenseColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]*models.Expense, 0)
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense rows: %w", err)
	}

	return expenses, nil
}

// Update updates an expense
func (r *ExpenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	query := `
		UPDATE expenses
		SET title = $2, description = $3, amount = $4, currency = $5, expense_date = $6,
		    category = $7, status = $8, reviewed_by = $9, reviewed_at = $10, updated_at = $11
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		expense.ID,
		expense.Title,
		expense.Description,
		expense.Amount,
		expense.Currency,
		expense.Date,
		expense.Category,
		expense.Status,
		expense.ReviewedBy,
		expense.ReviewedAt,
		expense.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "update expense", "expense "+expense.ID.String())
	}
	if err := expectOneRow(result, "expense "+expense.ID.String()); err != nil {
		return err
	}

	r.logger.Debug("expense updated", zap.String("id", expense.ID.String()))
	return nil
}

// Delete removes an expense
func (r *ExpenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM expenses WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return mapError(err, "delete expense", "expense "+id.String())
	}
	if err := expectOneRow(result, "expense "+id.String()); err != nil {
		return err
	}

	r.logger.Debug("expense deleted", zap.String("id", id.String()))
	return nil
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	e := &models.Expense{}
	err := row.Scan(
		&e.ID,
		&e.CompanyID,
		&e.TripID,
		&e.UserID,
		&e.Title,
		&e.Description,
		&e.Amount,
		&e.Currency,
		&e.Date,
		&e.Category,
		&e.Status,
		&e.ReviewedBy,
		&e.ReviewedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}
