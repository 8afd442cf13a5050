package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"go.uber.org/zap"
)

const tripColumns = `id, company_id, user_id, name, purpose, destination, start_date, end_date,
	status, total_cost, created_at, updated_at`

// TripRepository implements the repositories.TripRepository interface
type TripRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *DB, logger *zap.Logger) repositories.TripRepository {
	return &TripRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new trip
func (r *TripRepository) Create(ctx context.Context, trip *models.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		trip.ID,
		trip.CompanyID,
		trip.UserID,
		trip.Name,
		trip.Purpose,
		trip.Destination,
		trip.StartDate,
		trip.EndDate,
		trip.Status,
		trip.TotalCost,
		trip.CreatedAt,
		trip.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "create trip", "trip "+trip.ID.String())
	}

	r.logger.Debug("trip created", zap.String("id", trip.ID.String()), zap.String("user_id", trip.UserID.String()))
	return nil
}

// GetByID retrieves a trip by ID
func (r *TripRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	trip, err := scanTrip(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "get trip", "trip "+id.String())
	}
	return trip, nil
}

// GetByUserID retrieves a traveler's trips, latest start first
func (r *TripRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Trip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE user_id = $1
		ORDER BY start_date DESC, id ASC
		LIMIT $2 OFFSET $3
	`
	return r.queryTrips(ctx, query, userID, limit, offset)
}

// GetByCompanyID retrieves a company's trips, latest start first
func (r *TripRepository) GetByCompanyID(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Trip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE company_id = $1
		ORDER BY start_date DESC, id ASC
		LIMIT $2 OFFSET $3
	`
	return r.queryTrips(ctx, query, companyID, limit, offset)
}

// Update updates a trip's editable fields. total_cost is only changed by AddCost.
func (r *TripRepository) Update(ctx context.Context, trip *models.Trip) error {
	query := `
		UPDATE trips
		SET name = $2, purpose = $3, destination = $4, start_date = $5, end_date = $6,
		    status = $7, updated_at = $8
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		trip.ID,
		trip.Name,
		trip.Purpose,
		trip.Destination,
		trip.StartDate,
		trip.EndDate,
		trip.Status,
		trip.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "update trip", "trip "+trip.ID.String())
	}
	if err := expectOneRow(result, "trip "+trip.ID.String()); err != nil {
		return err
	}

	r.logger.Debug("trip updated", zap.String("id", trip.ID.String()))
	return nil
}

// AddCost adds delta (negative to release) to the trip total in place and
// returns the new total.
func (r *TripRepository) AddCost(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE trips
		SET total_cost = total_cost + $2, updated_at = $3
		WHERE id = $1
		RETURNING total_cost
	`

	var total decimal.Decimal
	executor := GetExecutor(ctx, r.db)
	if err := executor.QueryRowContext(ctx, query, id, delta, time.Now()).Scan(&total); err != nil {
		return decimal.Zero, mapError(err, "update trip cost", "trip "+id.String())
	}
	return total, nil
}

func (r *TripRepository) queryTrips(ctx context.Context, query string, args ...interface{}) ([]*models.Trip, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	trips := make([]*models.Trip, 0)
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trip rows: %w", err)
	}

	return trips, nil
}

func scanTrip(row rowScanner) (*models.Trip, error) {
	t := &models.Trip{}
	err := row.Scan(
		&t.ID,
		&t.CompanyID,
		&t.UserID,
		&t.Name,
		&t.Purpose,
		&t.Destination,
		&t.StartDate,
		&t.EndDate,
		&t.Status,
		&t.TotalCost,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
