package repository

import (
	"context"

	"saas-api-console/internal/domain/model"
)

// AuditLogRepository is the port for the append-only audit trail.
type AuditLogRepository interface {
	Insert(ctx context.Context, tx Tx, e *model.AuditLog) error
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.AuditLog, error)
}
