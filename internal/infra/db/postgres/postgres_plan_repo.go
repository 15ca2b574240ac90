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

var _ repository.PricingPlanRepository = (*planRepo)(nil)

type planRepo struct{ pool *pgxpool.Pool }

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

const planColumns = `id, name, description, price_ngn, features, api_call_limit, status, popular, created_at, updated_at`

func scanPlan(row pgx.Row) (*model.PricingPlan, error) {
	p := &model.PricingPlan{}
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceNGN, &p.Features, &p.APICallLimit, &p.Status, &p.Popular, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, plan *model.PricingPlan) error {
	const q = `
INSERT INTO pricing_plans (
  id, name, description, price_ngn, features, api_call_limit, status, popular, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (id) DO UPDATE SET
  name=$2, description=$3, price_ngn=$4, features=$5, api_call_limit=$6, status=$7, popular=$8, updated_at=$10;`

	_, err := execSQL(ctx, r.pool, tx, q, plan.ID, plan.Name, plan.Description, plan.PriceNGN, plan.Features, plan.APICallLimit, plan.Status, plan.Popular, plan.CreatedAt, plan.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PricingPlan, error) {
	q := `SELECT ` + planColumns + ` FROM pricing_plans WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

// FindByName matches case-insensitively; plan names arrive from gateway
// metadata typed by humans.
func (r *planRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.PricingPlan, error) {
	q := `SELECT ` + planColumns + ` FROM pricing_plans WHERE lower(name)=lower($1);`
	row, err := pickRow(ctx, r.pool, tx, q, name)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *planRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.PricingPlan, error) {
	q := `SELECT ` + planColumns + ` FROM pricing_plans WHERE status='active' ORDER BY price_ngn ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapQueryErr(err)
	}
	defer rows.Close()

	var out []*model.PricingPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
