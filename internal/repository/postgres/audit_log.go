package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"registrar/internal/models"
	"registrar/internal/repository"

	"github.com/lib/pq"
)

const auditLogColumns = `
	id, event_type, user_id, username, ip_address, user_agent,
	resource, action, details, status, created_at`

type auditLogRepository struct {
	repository.BaseRepository
}

// NewAuditLogRepository creates a new PostgreSQL audit log repository
func NewAuditLogRepository(db *sql.DB) repository.AuditLogRepository {
	return &auditLogRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *auditLogRepository) Create(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			event_type, user_id, username, ip_address, user_agent,
			resource, action, details, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		RETURNING id, created_at`

	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	// A nil RawMessage must reach the driver as NULL, not as an empty byte slice
	var details interface{}
	if len(log.Details) > 0 {
		details = []byte(log.Details)
	}

	return r.Conn(ctx).QueryRowContext(ctx, query,
		log.EventType,
		log.UserID,
		log.Username,
		log.IPAddress,
		log.UserAgent,
		log.Resource,
		log.Action,
		details,
		log.Status,
		log.CreatedAt,
	).Scan(&log.ID, &log.CreatedAt)
}

// buildWhere renders the filter conditions starting at placeholder $1
func buildWhere(filter repository.AuditLogFilter) (string, []interface{}) {
	var conditions []string
	var params []interface{}
	paramCount := 1

	if len(filter.EventTypes) > 0 {
		types := make([]string, len(filter.EventTypes))
		for i, t := range filter.EventTypes {
			types[i] = string(t)
		}
		conditions = append(conditions, fmt.Sprintf("event_type = ANY($%d)", paramCount))
		params = append(params, pq.Array(types))
		paramCount++
	}

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", paramCount))
		params = append(params, *filter.UserID)
		paramCount++
	}

	if filter.Username != nil {
		conditions = append(conditions, fmt.Sprintf("username = $%d", paramCount))
		params = append(params, *filter.Username)
		paramCount++
	}

	if filter.IPAddress != nil {
		conditions = append(conditions, fmt.Sprintf("ip_address = $%d", paramCount))
		params = append(params, *filter.IPAddress)
		paramCount++
	}

	if filter.CreatedAfter != nil {
		conditions = append(conditions, fmt.Sprintf("created_at > $%d", paramCount))
		params = append(params, *filter.CreatedAfter)
	}

	if len(conditions) == 0 {
		return "", params
	}
	return " WHERE " + strings.Join(conditions, " AND "), params
}

func (r *auditLogRepository) List(ctx context.Context, filter repository.AuditLogFilter) ([]models.AuditLog, error) {
	where, params := buildWhere(filter)
	query := "SELECT" + auditLogColumns + " FROM audit_logs" + where + " ORDER BY created_at DESC, id DESC"

	if filter.Limit != nil {
		params = append(params, *filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(params))
	}

	if filter.Offset != nil {
		params = append(params, *filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(params))
	}

	return r.queryLogs(ctx, query, params...)
}

func (r *auditLogRepository) Count(ctx context.Context, filter repository.AuditLogFilter) (int64, error) {
	where, params := buildWhere(filter)
	var count int64
	err := r.Conn(ctx).QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs"+where, params...).Scan(&count)
	return count, err
}

func (r *auditLogRepository) CountByEventType(ctx context.Context, filter repository.AuditLogFilter) (map[models.AuditEventType]int64, error) {
	where, params := buildWhere(filter)
	rows, err := r.Conn(ctx).QueryContext(ctx,
		"SELECT event_type, COUNT(*) FROM audit_logs"+where+" GROUP BY event_type",
		params...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.AuditEventType]int64)
	for rows.Next() {
		var eventType models.AuditEventType
		var count int64
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, err
		}
		counts[eventType] = count
	}
	return counts, rows.Err()
}

func (r *auditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.Conn(ctx).ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *auditLogRepository) queryLogs(ctx context.Context, query string, args ...interface{}) ([]models.AuditLog, error) {
	rows, err := r.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var log models.AuditLog
		var details []byte
		err := rows.Scan(
			&log.ID,
			&log.EventType,
			&log.UserID,
			&log.Username,
			&log.IPAddress,
			&log.UserAgent,
			&log.Resource,
			&log.Action,
			&details,
			&log.Status,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(details) > 0 {
			log.Details = details
		}
		logs = append(logs, log)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return logs, nil
}
