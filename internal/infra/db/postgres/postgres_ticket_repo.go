package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"saas-api-console/internal/domain"
	"saas-api-console/internal/domain/model"
	"saas-api-console/internal/domain/ports/repository"
)

var _ repository.SupportTicketRepository = (*ticketRepo)(nil)

type ticketRepo struct{ pool *pgxpool.Pool }

func NewTicketRepo(pool *pgxpool.Pool) *ticketRepo {
	return &ticketRepo{pool: pool}
}

const ticketColumns = `id, user_id, subject, description, affected_vertical, priority, status, responses, created_at, updated_at, resolved_at`

// Responses live in a jsonb column; the thread is always read and written
// whole alongside its ticket.
func scanTicket(row pgx.Row) (*model.SupportTicket, error) {
	t := &model.SupportTicket{}
	var responses []byte
	if err := row.Scan(&t.ID, &t.UserID, &t.Subject, &t.Description, &t.AffectedVertical, &t.Priority, &t.Status, &responses, &t.CreatedAt, &t.UpdatedAt, &t.ResolvedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &t.Responses); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return t, nil
}

func (r *ticketRepo) Save(ctx context.Context, tx repository.Tx, t *model.SupportTicket) error {
	responses, err := json.Marshal(t.Responses)
	if err != nil {
		return domain.ErrInvalidArgument
	}

	const q = `
INSERT INTO support_tickets (
  id, user_id, subject, description, affected_vertical, priority, status, responses, created_at, updated_at, resolved_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
) ON CONFLICT (id) DO UPDATE SET
  priority=$6, status=$7, responses=$8, updated_at=$10, resolved_at=$11;`

	_, err = execSQL(ctx, r.pool, tx, q, t.ID, t.UserID, t.Subject, t.Description, t.AffectedVertical, t.Priority, t.Status, responses, t.CreatedAt, t.UpdatedAt, t.ResolvedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *ticketRepo) FindByUserAndID(ctx context.Context, tx repository.Tx, userID, id string) (*model.SupportTicket, error) {
	q := `SELECT ` + ticketColumns + ` FROM support_tickets WHERE user_id=$1 AND id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, id)
	if err != nil {
		return nil, err
	}
	return scanTicket(row)
}

func (r *ticketRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.SupportTicket, error) {
	q := `SELECT ` + ticketColumns + ` FROM support_tickets WHERE user_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, mapQueryErr(err)
	}
	defer rows.Close()

	var out []*model.SupportTicket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
