package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wenwu/saas-platform/tenant-service/internal/models"
)

type LogRepository struct {
	pool *pgxpool.Pool
}

func NewLogRepository(pool *pgxpool.Pool) *LogRepository {
	return &LogRepository{pool: pool}
}

// Create creates a new tenant log entry
func (r *LogRepository) Create(ctx context.Context, logEntry *models.TenantLog) error {
	if logEntry.ID == "" {
		logEntry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO tenancy.tenant_logs (id, tenant_id, action, status, message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		logEntry.ID, logEntry.TenantID, logEntry.Action, logEntry.Status, logEntry.Message, logEntry.Metadata,
	)
	if err != nil {
		return fmt.Errorf("insert tenant log: %w", err)
	}

	return nil
}

// GetByTenantID retrieves logs for a tenant
func (r *LogRepository) GetByTenantID(ctx context.Context, tenantID string, limit int) ([]*models.TenantLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, tenant_id, action, status, message, metadata, created_at
		FROM tenancy.tenant_logs
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("query tenant logs: %w", err)
	}
	defer rows.Close()

	var logEntries []*models.TenantLog
	for rows.Next() {
		logEntry := &models.TenantLog{}
		err := rows.Scan(
			&logEntry.ID, &logEntry.TenantID, &logEntry.Action, &logEntry.Status,
			&logEntry.Message, &logEntry.Metadata, &logEntry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tenant log: %w", err)
		}
		logEntries = append(logEntries, logEntry)
	}

	return logEntries, rows.Err()
}

// LogAction is a helper to log an action
func (r *LogRepository) LogAction(ctx context.Context, tenantID, action, status, message string) error {
	logEntry := &models.TenantLog{
		TenantID: tenantID,
		Action:   action,
		Status:   status,
		Message:  message,
	}
	return r.Create(ctx, logEntry)
}
