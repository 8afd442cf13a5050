package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"go.uber.org/zap"
)

const bookingColumns = `id, company_id, user_id, trip_id, policy_id, type, status, price, currency,
	booking_date, details, is_policy_compliant, compliance_notes, created_at, updated_at`

// BookingRepository implements the repositories.BookingRepository interface
type BookingRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *DB, logger *zap.Logger) repositories.BookingRepository {
	return &BookingRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new booking
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	details := []byte(booking.Details)
	if len(details) == 0 {
		details = []byte("{}")
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		booking.ID,
		booking.CompanyID,
		booking.UserID,
		booking.TripID,
		booking.PolicyID,
		booking.Type,
		booking.Status,
		booking.Price,
		booking.Currency,
		booking.BookingDate,
		details,
		booking.IsPolicyCompliant,
		booking.ComplianceNotes,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "create booking", "booking "+booking.ID.String())
	}

	r.logger.Debug("booking created",
		zap.String("id", booking.ID.String()),
		zap.String("status", string(booking.Status)))
	return nil
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	booking, err := scanBooking(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "get booking", "booking "+id.String())
	}
	return booking, nil
}

// GetByIDForUpdate retrieves a booking and locks its row
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	executor := GetExecutor(ctx, r.db)
	booking, err := scanBooking(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "lock booking", "booking "+id.String())
	}
	return booking, nil
}

// List retrieves bookings matching the filter, newest first
func (r *BookingRepository) List(ctx context.Context, filter repositories.BookingFilter) ([]*models.Booking, error) {
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
		FROM bookings
		WHERE %s
		ORDER BY created_at DESC, id ASC
		LIMIT $%d OFFSET $%d
	`, bookingColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating booking rows: %w", err)
	}

	return bookings, nil
}

// UpdateStatus moves a booking between statuses. The current status must match from.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, from, to, time.Now())
	if err != nil {
		return mapError(err, "update booking status", "booking "+id.String())
	}
	if err := expectOneRow(result, fmt.Sprintf("booking %s in status %s", id, from)); err != nil {
		return err
	}

	r.logger.Debug("booking status updated",
		zap.String("id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var details []byte
	err := row.Scan(
		&b.ID,
		&b.CompanyID,
		&b.UserID,
		&b.TripID,
		&b.PolicyID,
		&b.Type,
		&b.Status,
		&b.Price,
		&b.Currency,
		&b.BookingDate,
		&details,
		&b.IsPolicyCompliant,
		&b.ComplianceNotes,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		b.Details = json.RawMessage(details)
	}
	return b, nil
}
