package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"saas-api-console/internal/domain"
	"saas-api-console/internal/domain/model"
	"saas-api-console/internal/domain/ports/repository"
)

var _ repository.APIKeyRepository = (*apiKeyRepo)(nil)

type apiKeyRepo struct{ pool *pgxpool.Pool }

func NewAPIKeyRepo(pool *pgxpool.Pool) *apiKeyRepo {
	return &apiKeyRepo{pool: pool}
}

const apiKeyColumns = `id, user_id, key, key_prefix, key_digest, name, industry, plan_id, url, payment_id, transaction_reference, status, usage, quota, environment, created_at, last_rotated_at, revoked_at`

func scanAPIKey(row pgx.Row) (*model.APIKey, error) {
	k := &model.APIKey{}
	if err := row.Scan(&k.ID, &k.UserID, &k.Key, &k.KeyPrefix, &k.KeyDigest, &k.Name, &k.Industry, &k.PlanID, &k.URL, &k.PaymentID, &k.TransactionReference, &k.Status, &k.Usage, &k.Limit, &k.Environment, &k.CreatedAt, &k.LastRotatedAt, &k.RevokedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return k, nil
}

// isUniqueViolation reports whether err is the SQLSTATE for a unique index
// conflict. The partial unique index on payment_id is what makes duplicate
// provisioning for one payment impossible under concurrency.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *apiKeyRepo) Insert(ctx context.Context, tx repository.Tx, k *model.APIKey) error {
	const q = `
INSERT INTO api_keys (
  id, user_id, key, key_prefix, key_digest, name, industry, plan_id, url, payment_id, transaction_reference, status, usage, quota, environment, created_at, last_rotated_at, revoked_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
);`

	_, err := execSQL(ctx, r.pool, tx, q, k.ID, k.UserID, k.Key, k.KeyPrefix, k.KeyDigest, k.Name, k.Industry, k.PlanID, k.URL, k.PaymentID, k.TransactionReference, k.Status, k.Usage, k.Limit, k.Environment, k.CreatedAt, k.LastRotatedAt, k.RevokedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *apiKeyRepo) Update(ctx context.Context, tx repository.Tx, k *model.APIKey) error {
	const q = `
UPDATE api_keys
   SET key=$3, key_prefix=$4, key_digest=$5, name=$6, status=$7, usage=$8, quota=$9, last_rotated_at=$10, revoked_at=$11
 WHERE id=$1 AND user_id=$2;`

	cmd, err := execSQL(ctx, r.pool, tx, q, k.ID, k.UserID, k.Key, k.KeyPrefix, k.KeyDigest, k.Name, k.Status, k.Usage, k.Limit, k.LastRotatedAt, k.RevokedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *apiKeyRepo) FindByUserAndID(ctx context.Context, tx repository.Tx, userID, id string) (*model.APIKey, error) {
	q := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE user_id=$1 AND id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, id)
	if err != nil {
		return nil, err
	}
	return scanAPIKey(row)
}

func (r *apiKeyRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, userID, paymentID string) (*model.APIKey, error) {
	q := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE user_id=$1 AND payment_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, paymentID)
	if err != nil {
		return nil, err
	}
	return scanAPIKey(row)
}

func (r *apiKeyRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, includeRevoked bool) ([]*model.APIKey, error) {
	q := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE user_id=$1`
	if !includeRevoked {
		q += ` AND status <> 'revoked'`
	}
	q += ` ORDER BY created_at DESC;`

	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, mapQueryErr(err)
	}
	defer rows.Close()

	var out []*model.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}
