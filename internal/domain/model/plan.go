package model

import (
	"time"

	"saas-api-console/internal/domain"
)

type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusInactive PlanStatus = "inactive"
)

// PricingPlan represents a purchasable API access tier priced in NGN.
// An APICallLimit of -1 means unlimited.
type PricingPlan struct {
	ID           string
	Name         string
	Description  string
	PriceNGN     int64
	Features     []string
	APICallLimit int64
	Status       PlanStatus
	Popular      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p *PricingPlan) IsZero() bool { return p == nil || p.ID == "" }

func (p *PricingPlan) IsActive() bool { return p != nil && p.Status == PlanStatusActive }

// NewPricingPlan validates and constructs a plan.
func NewPricingPlan(id, name, description string, priceNGN, apiCallLimit int64, features []string) (*PricingPlan, error) {
	if id == "" || name == "" || priceNGN <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if apiCallLimit < -1 || apiCallLimit == 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &PricingPlan{
		ID:           id,
		Name:         name,
		Description:  description,
		PriceNGN:     priceNGN,
		Features:     features,
		APICallLimit: apiCallLimit,
		Status:       PlanStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
