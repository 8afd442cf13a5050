package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"go.uber.org/zap"
)

const userColumns = `id, email, name, subject, company_id, role, manager_id, created_at, updated_at`

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.Subject,
		user.CompanyID,
		user.Role,
		user.ManagerID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "create user", "user "+user.Email)
	}

	r.logger.Debug("user created", zap.String("id", user.ID.String()), zap.String("email", user.Email))
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "get user", "user "+id.String())
	}
	return user, nil
}

// GetBySubject retrieves a user by token subject
func (r *UserRepository) GetBySubject(ctx context.Context, subject string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE subject = $1`

	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, query, subject))
	if err != nil {
		return nil, mapError(err, "get user", "user for subject "+subject)
	}
	return user, nil
}

// GetByCompanyID retrieves all users for a company
func (r *UserRepository) GetByCompanyID(ctx context.Context, companyID uuid.UUID) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE company_id = $1
		ORDER BY created_at ASC, id ASC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

// GetFirstByRole retrieves the earliest created user holding role in the company.
// Ties on created_at are broken by id so the choice is stable.
func (r *UserRepository) GetFirstByRole(ctx context.Context, companyID uuid.UUID, role models.UserRole, excludeID uuid.UUID) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE company_id = $1 AND role = $2 AND id <> $3
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`

	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, query, companyID, role, excludeID))
	if err != nil {
		return nil, mapError(err, "get user by role", fmt.Sprintf("%s in company %s", role, companyID))
	}
	return user, nil
}

// Update updates a user's profile, role and manager
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET email = $2,
		    name = $3,
		    role = $4,
		    manager_id = $5,
		    updated_at = $6
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.Role,
		user.ManagerID,
		user.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "update user", "user "+user.ID.String())
	}
	if err := expectOneRow(result, "user "+user.ID.String()); err != nil {
		return err
	}

	r.logger.Debug("user updated", zap.String("id", user.ID.String()))
	return nil
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Subject,
		&u.CompanyID,
		&u.Role,
		&u.ManagerID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}
