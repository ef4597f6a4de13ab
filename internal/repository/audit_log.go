package repository

import (
	"context"
	"time"

	"registrar/internal/models"
)

// AuditLogRepository defines the interface for audit log operations
type AuditLogRepository interface {
	Repository
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]models.AuditLog, error)
	Count(ctx context.Context, filter AuditLogFilter) (int64, error)
	CountByEventType(ctx context.Context, filter AuditLogFilter) (map[models.AuditEventType]int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditLogFilter defines the filter options for listing audit logs.
// Results are always ordered newest first.
type AuditLogFilter struct {
	EventTypes   []models.AuditEventType // Filter by event types
	UserID       *int64                  // Filter by user ID
	Username     *string                 // Filter by username
	IPAddress    *string                 // Filter by IP address
	CreatedAfter *time.Time              // Filter by creation time
	Limit        *int                    // Limit results
	Offset       *int                    // Offset results
}
