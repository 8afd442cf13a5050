package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"go.uber.org/zap"
)

const policyColumns = `id, company_id, name, active,
	flight_dynamic_pricing, flight_price_threshold_percent, flight_max_amount, flight_advance_booking_days,
	economy_class, premium_economy_class, business_class, first_class,
	hotel_dynamic_pricing, hotel_price_threshold_percent, hotel_max_amount, hotel_advance_booking_days, hotel_max_star_rating,
	approval_restriction, approvers, created_at, updated_at`

// PolicyRepository implements the repositories.PolicyRepository interface
type PolicyRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *DB, logger *zap.Logger) repositories.PolicyRepository {
	return &PolicyRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new policy
func (r *PolicyRepository) Create(ctx context.Context, policy *models.Policy) error {
	query := `
		INSERT INTO policies (` + policyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query, policyArgs(policy)...)
	if err != nil {
		return mapError(err, "create policy", "policy "+policy.Name)
	}

	r.logger.Debug("policy created",
		zap.String("id", policy.ID.String()),
		zap.String("company_id", policy.CompanyID.String()))
	return nil
}

// GetByID retrieves a policy by ID
func (r *PolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	policy, err := scanPolicy(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "get policy", "policy "+id.String())
	}
	return policy, nil
}

// GetByCompanyID retrieves all policies for a company, newest first
func (r *PolicyRepository) GetByCompanyID(ctx context.Context, companyID uuid.UUID) ([]*models.Policy, error) {
	query := `
		SELECT ` + policyColumns + `
		FROM policies
		WHERE company_id = $1
		ORDER BY updated_at DESC, id ASC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	policies := make([]*models.Policy, 0)
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, policy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating policy rows: %w", err)
	}

	return policies, nil
}

// GetActiveByCompanyID retrieves the most recently updated active policy
func (r *PolicyRepository) GetActiveByCompanyID(ctx context.Context, companyID uuid.UUID) (*models.Policy, error) {
	query := `
		SELECT ` + policyColumns + `
		FROM policies
		WHERE company_id = $1 AND active = true
		ORDER BY updated_at DESC, id ASC
		LIMIT 1
	`

	executor := GetExecutor(ctx, r.db)
	policy, err := scanPolicy(executor.QueryRowContext(ctx, query, companyID))
	if err != nil {
		return nil, mapError(err, "get active policy", "active policy for company "+companyID.String())
	}
	return policy, nil
}

// Update replaces every rule of a policy
func (r *PolicyRepository) Update(ctx context.Context, policy *models.Policy) error {
	query := `
		UPDATE policies
		SET company_id = $2, name = $3, active = $4,
		    flight_dynamic_pricing = $5, flight_price_threshold_percent = $6,
		    flight_max_amount = $7, flight_advance_booking_days = $8,
		    economy_class = $9, premium_economy_class = $10, business_class = $11, first_class = $12,
		    hotel_dynamic_pricing = $13, hotel_price_threshold_percent = $14,
		    hotel_max_amount = $15, hotel_advance_booking_days = $16, hotel_max_star_rating = $17,
		    approval_restriction = $18, approvers = $19,
		    created_at = $20, updated_at = $21
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, policyArgs(policy)...)
	if err != nil {
		return mapError(err, "update policy", "policy "+policy.ID.String())
	}
	if err := expectOneRow(result, "policy "+policy.ID.String()); err != nil {
		return err
	}

	r.logger.Debug("policy updated", zap.String("id", policy.ID.String()))
	return nil
}

// Delete deletes a policy
func (r *PolicyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM policies WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return mapError(err, "delete policy", "policy "+id.String())
	}
	if err := expectOneRow(result, "policy "+id.String()); err != nil {
		return err
	}

	r.logger.Debug("policy deleted", zap.String("id", id.String()))
	return nil
}

// policyArgs lists the policy fields in policyColumns order
func policyArgs(p *models.Policy) []interface{} {
	return []interface{}{
		p.ID,
		p.CompanyID,
		p.Name,
		p.Active,
		p.FlightDynamicPricing,
		p.FlightPriceThresholdPercent,
		p.FlightMaxAmount,
		p.FlightAdvanceBookingDays,
		p.EconomyClass,
		p.PremiumEconomyClass,
		p.BusinessClass,
		p.FirstClass,
		p.HotelDynamicPricing,
		p.HotelPriceThresholdPercent,
		p.HotelMaxAmount,
		p.HotelAdvanceBookingDays,
		p.HotelMaxStarRating,
		p.ApprovalRestriction,
		p.Approvers,
		p.CreatedAt,
		p.UpdatedAt,
	}
}

func scanPolicy(row rowScanner) (*models.Policy, error) {
	p := &models.Policy{}
	err := row.Scan(
		&p.ID,
		&p.CompanyID,
		&p.Name,
		&p.Active,
		&p.FlightDynamicPricing,
		&p.FlightPriceThresholdPercent,
		&p.FlightMaxAmount,
		&p.FlightAdvanceBookingDays,
		&p.EconomyClass,
		&p.PremiumEconomyClass,
		&p.BusinessClass,
		&p.FirstClass,
		&p.HotelDynamicPricing,
		&p.HotelPriceThresholdPercent,
		&p.HotelMaxAmount,
		&p.HotelAdvanceBookingDays,
		&p.HotelMaxStarRating,
		&p.ApprovalRestriction,
		&p.Approvers,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
