package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"go.uber.org/zap"
)

const companyColumns = `id, name, email, phone, address, city, country, website, created_at, updated_at`

// CompanyRepository implements the repositories.CompanyRepository interface
type CompanyRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *DB, logger *zap.Logger) repositories.CompanyRepository {
	return &CompanyRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new company
func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	query := `
		INSERT INTO companies (` + companyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		company.ID,
		company.Name,
		company.Email,
		company.Phone,
		company.Address,
		company.City,
		company.Country,
		company.Website,
		company.CreatedAt,
		company.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "create company", "company "+company.Name)
	}

	r.logger.Debug("company created", zap.String("id", company.ID.String()), zap.String("name", company.Name))
	return nil
}

// GetByID retrieves a company by ID
func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	company, err := scanCompany(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "get company", "company "+id.String())
	}
	return company, nil
}

// List retrieves companies ordered by name
func (r *CompanyRepository) List(ctx context.Context, limit, offset int) ([]*models.Company, error) {
	query := `
		SELECT ` + companyColumns + `
		FROM companies
		ORDER BY name ASC
		LIMIT $1 OFFSET $2
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	companies := make([]*models.Company, 0)
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, company)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating company rows: %w", err)
	}

	return companies, nil
}

// Update updates a company's contact details
func (r *CompanyRepository) Update(ctx context.Context, company *models.Company) error {
	query := `
		UPDATE companies
		SET name = $2, email = $3, phone = $4, address = $5,
		    city = $6, country = $7, website = $8, updated_at = $9
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		company.ID,
		company.Name,
		company.Email,
		company.Phone,
		company.Address,
		company.City,
		company.Country,
		company.Website,
		company.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "update company", "company "+company.ID.String())
	}
	if err := expectOneRow(result, "company "+company.ID.String()); err != nil {
		return err
	}

	r.logger.Debug("company updated", zap.String("id", company.ID.String()))
	return nil
}

func scanCompany(row rowScanner) (*models.Company, error) {
	c := &models.Company{}
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.Address,
		&c.City,
		&c.Country,
		&c.Website,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}
