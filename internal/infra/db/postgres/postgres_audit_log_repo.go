package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"saas-api-console/internal/domain"
	"saas-api-console/internal/domain/model"
	"saas-api-console/internal/domain/ports/repository"
)

var _ repository.AuditLogRepository = (*auditLogRepo)(nil)

type auditLogRepo struct{ pool *pgxpool.Pool }

func NewAuditLogRepo(pool *pgxpool.Pool) *auditLogRepo {
	return &auditLogRepo{pool: pool}
}

func (r *auditLogRepo) Insert(ctx context.Context, tx repository.Tx, e *model.AuditLog) error {
	const q = `
INSERT INTO audit_logs (
  id, user_id, action, resource_type, resource_id, details, ip_address, user_agent, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
);`

	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.UserID, e.Action, e.ResourceType, e.ResourceID, e.Details, e.IPAddress, e.UserAgent, e.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *auditLogRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, user_id, action, resource_type, resource_id, details, ip_address, user_agent, created_at
  FROM audit_logs
 WHERE user_id=$1
 ORDER BY created_at DESC
 LIMIT $2;`

	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		return nil, mapQueryErr(err)
	}
	defer rows.Close()

	var out []*model.AuditLog
	for rows.Next() {
		e := &model.AuditLog{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.ResourceType, &e.ResourceID, &e.Details, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	return out, nil
}
