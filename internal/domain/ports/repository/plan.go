package repository

import (
	"context"

	"saas-api-console/internal/domain/model"
)

// PricingPlanRepository is the port for plan persistence.
type PricingPlanRepository interface {
	Save(ctx context.Context, tx Tx, plan *model.PricingPlan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PricingPlan, error)
	FindByName(ctx context.Context, tx Tx, name string) (*model.PricingPlan, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.PricingPlan, error)
}
