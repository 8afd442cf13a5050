package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/upb/travel-control-plane/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// WrapDB wraps an already opened pool
func WrapDB(sqlDB *sql.DB, logger *zap.Logger) *DB {
	return &DB{DB: sqlDB, logger: logger}
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	// Check if we can query
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// Stats returns database connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}

// InitAuditSchema initializes the audit database schema (audit_logs only, no FK).
// Use for the separate audit database when DATABASE_URL_AUDIT is set.
func (db *DB) InitAuditSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	db.logger.Info("audit schema initialized successfully")
	return nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS companies (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(50) NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		city VARCHAR(100) NOT NULL DEFAULT '',
		country VARCHAR(100) NOT NULL DEFAULT '',
		website VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL DEFAULT '',
		subject VARCHAR(255) NOT NULL UNIQUE,
		company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		role VARCHAR(50) NOT NULL CHECK (role IN ('super_admin', 'travel_admin', 'employee')),
		manager_id UUID REFERENCES users(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS policies (
		id UUID PRIMARY KEY,
		company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT true,
		flight_dynamic_pricing BOOLEAN NOT NULL DEFAULT false,
		flight_price_threshold_percent INTEGER,
		flight_max_amount NUMERIC(12, 2),
		flight_advance_booking_days INTEGER,
		economy_class VARCHAR(20) NOT NULL DEFAULT 'always',
		premium_economy_class VARCHAR(20) NOT NULL DEFAULT 'always',
		business_class VARCHAR(20) NOT NULL DEFAULT 'always',
		first_class VARCHAR(20) NOT NULL DEFAULT 'always',
		hotel_dynamic_pricing BOOLEAN NOT NULL DEFAULT false,
		hotel_price_threshold_percent INTEGER,
		hotel_max_amount NUMERIC(12, 2),
		hotel_advance_booking_days INTEGER,
		hotel_max_star_rating INTEGER,
		approval_restriction VARCHAR(20) NOT NULL DEFAULT 'out-of-policy',
		approvers JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS trips (
		id UUID PRIMARY KEY,
		company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		purpose TEXT NOT NULL DEFAULT '',
		destination VARCHAR(255) NOT NULL DEFAULT '',
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'draft',
		total_cost NUMERIC(12, 2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		trip_id UUID REFERENCES trips(id) ON DELETE SET NULL,
		policy_id UUID REFERENCES policies(id) ON DELETE SET NULL,
		type VARCHAR(20) NOT NULL CHECK (type IN ('flight', 'hotel')),
		status VARCHAR(30) NOT NULL,
		price NUMERIC(12, 2) NOT NULL CHECK (price >= 0),
		currency VARCHAR(3) NOT NULL DEFAULT 'USD',
		booking_date DATE NOT NULL,
		details JSONB NOT NULL DEFAULT '{}',
		is_policy_compliant BOOLEAN NOT NULL DEFAULT true,
		compliance_notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS approvals (
		id UUID PRIMARY KEY,
		company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		booking_id UUID NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
		policy_id UUID NOT NULL,
		approver_id UUID NOT NULL REFERENCES users(id),
		restriction VARCHAR(20) NOT NULL,
		approvers JSONB NOT NULL DEFAULT '[]',
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		comments TEXT NOT NULL DEFAULT '',
		resolved_by UUID REFERENCES users(id),
		resolved_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS expenses (
		id UUID PRIMARY KEY,
		company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		trip_id UUID NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		amount NUMERIC(12, 2) NOT NULL CHECK (amount >= 0),
		currency VARCHAR(3) NOT NULL DEFAULT 'USD',
		expense_date DATE NOT NULL,
		category VARCHAR(20) NOT NULL CHECK (category IN ('accommodation', 'transportation', 'food', 'entertainment', 'other')),
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		reviewed_by UUID REFERENCES users(id),
		reviewed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
` + auditSchema + `
	CREATE INDEX IF NOT EXISTS idx_users_company_role ON users(company_id, role, created_at);
	CREATE INDEX IF NOT EXISTS idx_users_manager_id ON users(manager_id);

	CREATE INDEX IF NOT EXISTS idx_policies_company_active ON policies(company_id, active, updated_at DESC);

	CREATE INDEX IF NOT EXISTS idx_trips_user_id ON trips(user_id);
	CREATE INDEX IF NOT EXISTS idx_trips_company_id ON trips(company_id);

	CREATE INDEX IF NOT EXISTS idx_expenses_company_id ON expenses(company_id, expense_date DESC);
	CREATE INDEX IF NOT EXISTS idx_expenses_trip_id ON expenses(trip_id);
	CREATE INDEX IF NOT EXISTS idx_expenses_user_id ON expenses(user_id);

	CREATE INDEX IF NOT EXISTS idx_bookings_company_id ON bookings(company_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id);
	CREATE INDEX IF NOT EXISTS idx_bookings_trip_id ON bookings(trip_id);
	CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status);

	CREATE INDEX IF NOT EXISTS idx_approvals_booking_id ON approvals(booking_id);
	CREATE INDEX IF NOT EXISTS idx_approvals_approver_pending ON approvals(approver_id) WHERE status = 'pending';
	CREATE UNIQUE INDEX IF NOT EXISTS idx_approvals_one_pending ON approvals(booking_id) WHERE status = 'pending';
`

// auditSchema has no foreign keys so it can live in a separate database
const auditSchema = `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		company_id UUID NOT NULL,
		user_id UUID,
		action VARCHAR(100) NOT NULL,
		resource_type VARCHAR(100) NOT NULL,
		resource_id UUID,
		details JSONB,
		ip_address VARCHAR(45),
		user_agent TEXT,
		request_id VARCHAR(255),
		timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_company_id ON audit_logs(company_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs(action);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_request_id ON audit_logs(request_id);
`
