package jobs

import (
	"context"

	"registrar/internal/config"

	"go.uber.org/zap"
)

const (
	TokenCleanupJob   = "refresh-token-cleanup"
	AuditRetentionJob = "audit-retention"
)

// TokenCleaner deletes expired refresh tokens
type TokenCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// AuditPruner deletes audit entries older than a number of days
type AuditPruner interface {
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}

// MaintenanceJobs builds the token cleanup and audit retention jobs
func MaintenanceJobs(cfg *config.Config, tokens TokenCleaner, audit AuditPruner, logger *zap.Logger) []Job {
	return []Job{
		{
			Name:     TokenCleanupJob,
			Schedule: cfg.Jobs.TokenCleanupSchedule,
			Run: func(ctx context.Context) error {
				deleted, err := tokens.CleanupExpired(ctx)
				if err != nil {
					return err
				}
				logger.Info("expired refresh tokens removed", zap.Int64("deleted", deleted))
				return nil
			},
		},
		{
			Name:     AuditRetentionJob,
			Schedule: cfg.Jobs.AuditRetentionSchedule,
			Run: func(ctx context.Context) error {
				deleted, err := audit.DeleteOlderThan(ctx, cfg.Audit.RetentionDays)
				if err != nil {
					return err
				}
				logger.Info("audit logs pruned",
					zap.Int64("deleted", deleted), zap.Int("retention_days", cfg.Audit.RetentionDays))
				return nil
			},
		},
	}
}
