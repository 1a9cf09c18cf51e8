package storage

import (
	"context"

	"github.com/zorenko/aircap/internal/core/domain"
	"github.com/zorenko/aircap/internal/core/ports"
)

var _ ports.AuditRepository = (*SQLiteAdapter)(nil)

// SaveAuditLog persists a single audit entry.
func (a *SQLiteAdapter) SaveAuditLog(ctx context.Context, log domain.AuditLog) error {
	model := AuditModel{
		Actor:     log.Actor,
		Action:    string(log.Action),
		Target:    log.Target,
		Details:   log.Details,
		Timestamp: log.Timestamp,
	}
	return a.db.WithContext(ctx).Create(&model).Error
}

// ListAuditLogs retrieves audit entries, newest first.
func (a *SQLiteAdapter) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	var models []AuditModel
	q := a.db.WithContext(ctx).Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	logs := make([]domain.AuditLog, len(models))
	for i, m := range models {
		logs[i] = domain.AuditLog{
			ID:        m.ID,
			Actor:     m.Actor,
			Action:    domain.AuditAction(m.Action),
			Target:    m.Target,
			Details:   m.Details,
			Timestamp: m.Timestamp,
		}
	}
	return logs, nil
}
