package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"go.uber.org/zap"
)

const auditColumns = `id, company_id, user_id, action, resource_type, resource_id,
	details, ip_address, user_agent, request_id, timestamp`

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	var details interface{}
	if len(log.Details) > 0 {
		details = []byte(log.Details)
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		log.ID,
		log.CompanyID,
		log.UserID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		details,
		log.IPAddress,
		log.UserAgent,
		log.RequestID,
		log.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID.String()), zap.String("action", string(log.Action)))
	return nil
}

// GetByID retrieves an audit log by ID
func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	log, err := scanAuditLog(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "get audit log", "audit log "+id.String())
	}
	return log, nil
}

// GetByCompanyID retrieves audit logs for a company with pagination
func (r *AuditRepository) GetByCompanyID(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_logs
		WHERE company_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryAuditLogs(ctx, query, companyID, limit, offset)
}

// GetByResource retrieves the history of one resource, oldest first
func (r *AuditRepository) GetByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_logs
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY timestamp ASC
	`
	return r.queryAuditLogs(ctx, query, resourceType, resourceID)
}

// GetByDateRange retrieves audit logs within a date range
func (r *AuditRepository) GetByDateRange(ctx context.Context, companyID uuid.UUID, start, end time.Time, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_logs
		WHERE company_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp DESC
		LIMIT $4 OFFSET $5
	`
	return r.queryAuditLogs(ctx, query, companyID, start, end, limit, offset)
}

// queryAuditLogs is a helper function to query multiple audit logs
func (r *AuditRepository) queryAuditLogs(ctx context.Context, query string, args ...interface{}) ([]*models.AuditLog, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)
	for rows.Next() {
		log, err := scanAuditLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}

func scanAuditLog(row rowScanner) (*models.AuditLog, error) {
	log := &models.AuditLog{}
	var (
		details                         []byte
		ipAddress, userAgent, requestID sql.NullString
	)
	err := row.Scan(
		&log.ID,
		&log.CompanyID,
		&log.UserID,
		&log.Action,
		&log.ResourceType,
		&log.ResourceID,
		&details,
		&ipAddress,
		&userAgent,
		&requestID,
		&log.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		log.Details = json.RawMessage(details)
	}
	log.IPAddress = ipAddress.String
	log.UserAgent = userAgent.String
	log.RequestID = requestID.String
	return log, nil
}
