package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"go.uber.org/zap"
)

const approvalColumns = `id, company_id, booking_id, policy_id, approver_id, restriction, approvers,
	status, comments, resolved_by, resolved_at, created_at, updated_at`

// ApprovalRepository implements the repositories.ApprovalRepository interface
type ApprovalRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *DB, logger *zap.Logger) repositories.ApprovalRepository {
	return &ApprovalRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new approval
func (r *ApprovalRepository) Create(ctx context.Context, approval *models.Approval) error {
	query := `
		INSERT INTO approvals (` + approvalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		approval.ID,
		approval.CompanyID,
		approval.BookingID,
		approval.PolicyID,
		approval.ApproverID,
		approval.Restriction,
		approval.Approvers,
		approval.Status,
		approval.Comments,
		approval.ResolvedBy,
		approval.ResolvedAt,
		approval.CreatedAt,
		approval.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "create approval", "approval for booking "+approval.BookingID.String())
	}

	r.logger.Debug("approval created",
		zap.String("id", approval.ID.String()),
		zap.String("booking_id", approval.BookingID.String()),
		zap.String("approver_id", approval.ApproverID.String()))
	return nil
}

// GetByID retrieves an approval by ID
func (r *ApprovalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Approval, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals WHERE id = $1`
	return r.queryOne(ctx, query, "approval "+id.String(), id)
}

// GetByIDForUpdate retrieves an approval and locks its row
func (r *ApprovalRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Approval, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals WHERE id = $1 FOR UPDATE`
	return r.queryOne(ctx, query, "approval "+id.String(), id)
}

// GetPendingByBookingID retrieves the open approval of a booking
func (r *ApprovalRepository) GetPendingByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Approval, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM approvals
		WHERE booking_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`
	return r.queryOne(ctx, query, "pending approval for booking "+bookingID.String(), bookingID, models.ApprovalStatusPending)
}

// GetByBookingID retrieves every approval of a booking, oldest first
func (r *ApprovalRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*models.Approval, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM approvals
		WHERE booking_id = $1
		ORDER BY created_at ASC, id ASC
	`
	return r.queryMany(ctx, query, bookingID)
}

// GetPendingByApproverID retrieves the queue of a designated approver
func (r *ApprovalRepository) GetPendingByApproverID(ctx context.Context, approverID uuid.UUID, limit, offset int) ([]*models.Approval, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM approvals
		WHERE approver_id = $1 AND status = $2
		ORDER BY created_at ASC, id ASC
		LIMIT $3 OFFSET $4
	`
	return r.queryMany(ctx, query, approverID, models.ApprovalStatusPending, limit, offset)
}

// GetPendingByCompanyID retrieves every open approval of a company
func (r *ApprovalRepository) GetPendingByCompanyID(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Approval, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM approvals
		WHERE company_id = $1 AND status = $2
		ORDER BY created_at ASC, id ASC
		LIMIT $3 OFFSET $4
	`
	return r.queryMany(ctx, query, companyID, models.ApprovalStatusPending, limit, offset)
}

// Resolve persists a decision. Only pending approvals are updated.
func (r *ApprovalRepository) Resolve(ctx context.Context, approval *models.Approval) error {
	query := `
		UPDATE approvals
		SET status = $2, comments = $3, resolved_by = $4, resolved_at = $5, updated_at = $6
		WHERE id = $1 AND status = $7
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		approval.ID,
		approval.Status,
		approval.Comments,
		approval.ResolvedBy,
		approval.ResolvedAt,
		approval.UpdatedAt,
		models.ApprovalStatusPending,
	)
	if err != nil {
		return mapError(err, "resolve approval", "approval "+approval.ID.String())
	}
	if err := expectOneRow(result, "pending approval "+approval.ID.String()); err != nil {
		return err
	}

	r.logger.Debug("approval resolved",
		zap.String("id", approval.ID.String()),
		zap.String("status", string(approval.Status)))
	return nil
}

func (r *ApprovalRepository) queryOne(ctx context.Context, query, what string, args ...interface{}) (*models.Approval, error) {
	executor := GetExecutor(ctx, r.db)
	approval, err := scanApproval(executor.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "get approval", what)
	}
	return approval, nil
}

func (r *ApprovalRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*models.Approval, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer rows.Close()

	approvals := make([]*models.Approval, 0)
	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		approvals = append(approvals, approval)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating approval rows: %w", err)
	}

	return approvals, nil
}

func scanApproval(row rowScanner) (*models.Approval, error) {
	a := &models.Approval{}
	err := row.Scan(
		&a.ID,
		&a.CompanyID,
		&a.BookingID,
		&a.PolicyID,
		&a.ApproverID,
		&a.Restriction,
		&a.Approvers,
		&a.Status,
		&a.Comments,
		&a.ResolvedBy,
		&a.ResolvedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}
