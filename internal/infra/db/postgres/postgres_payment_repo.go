package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"saas-api-console/internal/domain"
	"saas-api-console/internal/domain/model"
	"saas-api-console/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, plan_id, industry, app_name, url, email, amount, currency, transaction_reference, status, payment_method, gateway_metadata, invoice_id, created_at, updated_at, paid_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	if err := row.Scan(&p.ID, &p.UserID, &p.PlanID, &p.Industry, &p.AppName, &p.URL, &p.Email, &p.Amount, &p.Currency, &p.TransactionReference, &p.Status, &p.PaymentMethod, &p.GatewayMetadata, &p.InvoiceID, &p.CreatedAt, &p.UpdatedAt, &p.PaidAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, user_id, plan_id, industry, app_name, url, email, amount, currency, transaction_reference, status, payment_method, gateway_metadata, invoice_id, created_at, updated_at, paid_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
) ON CONFLICT (id) DO UPDATE SET
  industry=$4, app_name=$5, url=$6, email=$7, amount=$8, currency=$9, transaction_reference=$10, status=$11, payment_method=$12, gateway_metadata=$13, invoice_id=$14, updated_at=$16, paid_at=$17;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.PlanID, p.Industry, p.AppName, p.URL, p.Email, p.Amount, p.Currency, p.TransactionReference, p.Status, p.PaymentMethod, p.GatewayMetadata, p.InvoiceID, p.CreatedAt, p.UpdatedAt, p.PaidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByUserAndID(ctx context.Context, tx repository.Tx, userID, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id=$1 AND id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByUserAndReferences(ctx context.Context, tx repository.Tx, userID string, refs []string, successOnly bool) (*model.Payment, error) {
	if len(refs) == 0 {
		return nil, domain.ErrNotFound
	}
	q := `SELECT ` + paymentColumns + ` FROM payments
 WHERE user_id=$1 AND (transaction_reference = ANY($2) OR gateway_metadata->>'reference' = ANY($2))`
	if successOnly {
		q += ` AND status='success'`
	}
	q += ` ORDER BY created_at DESC LIMIT 1;`

	row, err := pickRow(ctx, r.pool, tx, q, userID, refs)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

// MarkSuccess is the conditional settlement write: the status guard keeps a
// concurrent second writer from believing it performed the first transition,
// and nothing ever moves a payment out of success.
func (r *paymentRepo) MarkSuccess(ctx context.Context, tx repository.Tx, id string, reference string, method string, meta map[string]any, paidAt time.Time) (bool, error) {
	const q = `
UPDATE payments
   SET status='success',
       transaction_reference=$2,
       payment_method=$3,
       gateway_metadata=$4,
       paid_at=$5,
       updated_at=NOW()
 WHERE id=$1
   AND status <> 'success';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, reference, method, meta, paidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) MarkFailed(ctx context.Context, tx repository.Tx, id string, meta map[string]any) (bool, error) {
	const q = `
UPDATE payments
   SET status='failed',
       gateway_metadata=$2,
       updated_at=NOW()
 WHERE id=$1
   AND status = 'pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, meta)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		return nil, mapQueryErr(err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, mapQueryErr(err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

func collectPayments(rows pgx.Rows) ([]*model.Payment, error) {
	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func mapQueryErr(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrNotFound
	case err == domain.ErrInvalidArgument, err == domain.ErrInvalidExecContext:
		return err
	default:
		return domain.ErrOperationFailed
	}
}
