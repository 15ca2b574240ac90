package usecase

import (
	"context"

	"saas-api-console/internal/domain/model"
	"saas-api-console/internal/domain/ports/repository"
)

var _ PlanUseCase = (*planUC)(nil)

// PlanUseCase exposes pricing plans to the console.
type PlanUseCase interface {
	Get(ctx context.Context, id string) (*model.PricingPlan, error)
	ListActive(ctx context.Context) ([]*model.PricingPlan, error)
}

type planUC struct {
	plans repository.PricingPlanRepository
}

func NewPlanUseCase(plans repository.PricingPlanRepository) *planUC {
	return &planUC{plans: plans}
}

func (u *planUC) Get(ctx context.Context, id string) (*model.PricingPlan, error) {
	return u.plans.FindByID(ctx, nil, id)
}

func (u *planUC) ListActive(ctx context.Context) ([]*model.PricingPlan, error) {
	return u.plans.ListActive(ctx, nil)
}
