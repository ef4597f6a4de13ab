package audit

import (
	"context"
	"strings"
	"time"

	"registrar/internal/apperror"
	"registrar/internal/models"
	"registrar/internal/repository"
)

// DefaultPageSize is used when a query does not set a limit
const DefaultPageSize = 50

// Page is one slice of a filtered audit log listing
type Page struct {
	Logs   []models.AuditLog
	Total  int64
	Limit  int
	Offset int
}

// List returns a page of entries matching filter, newest first
func (t *Trail) List(ctx context.Context, filter repository.AuditLogFilter) (*Page, error) {
	if filter.Limit == nil {
		limit := DefaultPageSize
		filter.Limit = &limit
	}
	if filter.Offset == nil {
		offset := 0
		filter.Offset = &offset
	}

	logs, err := t.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Storage(err)
	}

	countFilter := filter
	countFilter.Limit, countFilter.Offset = nil, nil
	total, err := t.repo.Count(ctx, countFilter)
	if err != nil {
		return nil, apperror.Storage(err)
	}

	if logs == nil {
		logs = []models.AuditLog{}
	}
	return &Page{Logs: logs, Total: total, Limit: *filter.Limit, Offset: *filter.Offset}, nil
}

// ByEventType returns the newest entries of one event type
func (t *Trail) ByEventType(ctx context.Context, eventType models.AuditEventType, limit int) ([]models.AuditLog, error) {
	if !eventType.Valid() {
		return nil, apperror.InvalidInput("unknown event type")
	}
	return t.find(ctx, repository.AuditLogFilter{EventTypes: []models.AuditEventType{eventType}}, limit)
}

// ByUser returns the newest entries about a user id
func (t *Trail) ByUser(ctx context.Context, userID int64, limit int) ([]models.AuditLog, error) {
	return t.find(ctx, repository.AuditLogFilter{UserID: &userID}, limit)
}

// ByUsername returns the newest entries recorded for a username, including
// attempts against names that do not exist
func (t *Trail) ByUsername(ctx context.Context, username string, limit int) ([]models.AuditLog, error) {
	return t.find(ctx, repository.AuditLogFilter{Username: &username}, limit)
}

// ByIP returns the newest entries from one client address
func (t *Trail) ByIP(ctx context.Context, ip string, limit int) ([]models.AuditLog, error) {
	return t.find(ctx, repository.AuditLogFilter{IPAddress: &ip}, limit)
}

// Recent returns entries created within the last hours
func (t *Trail) Recent(ctx context.Context, hours, limit int) ([]models.AuditLog, error) {
	if hours <= 0 {
		return nil, apperror.InvalidInput("hours must be positive")
	}
	since := t.now().Add(-time.Duration(hours) * time.Hour)
	return t.find(ctx, repository.AuditLogFilter{CreatedAfter: &since}, limit)
}

// Count returns the number of entries matching filter
func (t *Trail) Count(ctx context.Context, filter repository.AuditLogFilter) (int64, error) {
	filter.Limit, filter.Offset = nil, nil
	count, err := t.repo.Count(ctx, filter)
	if err != nil {
		return 0, apperror.Storage(err)
	}
	return count, nil
}

// CountByEventType returns per-type counts for entries matching filter.
// Every known event type is present in the result.
func (t *Trail) CountByEventType(ctx context.Context, filter repository.AuditLogFilter) (map[models.AuditEventType]int64, error) {
	filter.Limit, filter.Offset = nil, nil
	counts, err := t.repo.CountByEventType(ctx, filter)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	result := make(map[models.AuditEventType]int64, len(models.AuditEventTypes))
	for _, eventType := range models.AuditEventTypes {
		result[eventType] = counts[eventType]
	}
	return result, nil
}

// FilterFrom converts admin query parameters into a repository filter.
// EventType may hold several comma separated types.
func (t *Trail) FilterFrom(q models.AuditLogQuery) (repository.AuditLogFilter, error) {
	var filter repository.AuditLogFilter
	if q.EventType != "" {
		for _, raw := range strings.Split(q.EventType, ",") {
			eventType := models.AuditEventType(strings.ToUpper(strings.TrimSpace(raw)))
			if !eventType.Valid() {
				return filter, apperror.InvalidInput("unknown event type: " + strings.TrimSpace(raw))
			}
			filter.EventTypes = append(filter.EventTypes, eventType)
		}
	}
	if q.UserID != nil {
		id := *q.UserID
		filter.UserID = &id
	}
	if q.Username != "" {
		username := q.Username
		filter.Username = &username
	}
	if q.IPAddress != "" {
		ip := q.IPAddress
		filter.IPAddress = &ip
	}
	if q.Hours > 0 {
		since := t.now().Add(-time.Duration(q.Hours) * time.Hour)
		filter.CreatedAfter = &since
	}
	if q.Limit > 0 {
		limit := q.Limit
		filter.Limit = &limit
	}
	if q.Offset > 0 {
		offset := q.Offset
		filter.Offset = &offset
	}
	return filter, nil
}

// DeleteOlderThan removes entries older than days. It backs the retention sweep.
func (t *Trail) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, apperror.InvalidInput("retention days must be positive")
	}
	cutoff := t.now().AddDate(0, 0, -days)
	deleted, err := t.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, apperror.Storage(err)
	}
	return deleted, nil
}

func (t *Trail) find(ctx context.Context, filter repository.AuditLogFilter, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	filter.Limit = &limit
	logs, err := t.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return logs, nil
}
