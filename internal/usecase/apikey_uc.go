package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"saas-api-console/internal/domain"
	"saas-api-console/internal/domain/model"
	"saas-api-console/internal/domain/ports/repository"
	"saas-api-console/internal/infra/security"
)

// Compile-time check
var _ APIKeyUseCase = (*apiKeyUC)(nil)

type APIKeyUseCase interface {
	// EnsureForPayment returns the credential linked to the payment, creating
	// it exactly once. Safe under concurrent invocation for the same payment:
	// the check-then-create race is resolved by the storage-level unique
	// constraint on the payment link, after which the loser returns the
	// winner's credential unchanged.
	EnsureForPayment(ctx context.Context, payment *model.Payment) (*model.APIKey, error)

	// FindForPayment returns the credential linked to a payment, or
	// domain.ErrNotFound. It never creates one.
	FindForPayment(ctx context.Context, userID, paymentID string) (*model.APIKey, error)

	// Create mints a key outside the payment flow (no payment link).
	Create(ctx context.Context, userID, name, industry, planID string, env model.Environment) (*model.APIKey, error)

	List(ctx context.Context, userID string, includeRevoked bool) ([]*model.APIKey, error)
	Get(ctx context.Context, userID, id string) (*model.APIKey, error)

	// Rotate replaces the secret in place and returns the key with the new
	// secret populated.
	Rotate(ctx context.Context, userID, id string) (*model.APIKey, error)
	Revoke(ctx context.Context, userID, id string) error
}

type apiKeyUC struct {
	keys  repository.APIKeyRepository
	plans repository.PricingPlanRepository
	audit *AuditRecorder
	flow  FlowMetrics
	log   *zerolog.Logger
}

func NewAPIKeyUseCase(keys repository.APIKeyRepository, plans repository.PricingPlanRepository, audit *AuditRecorder, flow FlowMetrics, logger *zerolog.Logger) *apiKeyUC {
	return &apiKeyUC{keys: keys, plans: plans, audit: audit, flow: flowOrNop(flow), log: logger}
}

func (u *apiKeyUC) EnsureForPayment(ctx context.Context, payment *model.Payment) (*model.APIKey, error) {
	if payment.IsZero() || payment.Status != model.PaymentStatusSuccess {
		return nil, domain.ErrInvalidArgument
	}

	existing, err := u.keys.FindByPaymentID(ctx, nil, payment.UserID, payment.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	plan, err := u.plans.FindByID(ctx, nil, payment.PlanID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: pricing plan %s not found", domain.ErrValidation, payment.PlanID)
		}
		return nil, err
	}

	gen, err := security.GenerateAPIKey(model.EnvProduction)
	if err != nil {
		return nil, err
	}

	paymentID := payment.ID
	key := &model.APIKey{
		ID:                   uuid.NewString(),
		UserID:               payment.UserID,
		Key:                  gen.FullKey,
		KeyPrefix:            gen.Prefix,
		KeyDigest:            gen.Digest,
		Name:                 fmt.Sprintf("%s - %s", payment.AppName, payment.Industry),
		Industry:             payment.Industry,
		PlanID:               payment.PlanID,
		URL:                  payment.URL,
		PaymentID:            &paymentID,
		TransactionReference: payment.TransactionReference,
		Status:               model.APIKeyStatusActive,
		Usage:                0,
		Limit:                model.QuotaFromPlan(plan),
		Environment:          model.EnvProduction,
		CreatedAt:            time.Now(),
	}

	if err := u.keys.Insert(ctx, nil, key); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// A concurrent handler won the insert; hand back its credential.
			u.flow.KeyDuplicateSuppressed()
			u.log.Info().Str("payment_id", payment.ID).Msg("duplicate credential insert suppressed")
			return u.keys.FindByPaymentID(ctx, nil, payment.UserID, payment.ID)
		}
		return nil, err
	}

	u.flow.KeyIssued("payment")
	return key, nil
}

func (u *apiKeyUC) FindForPayment(ctx context.Context, userID, paymentID string) (*model.APIKey, error) {
	return u.keys.FindByPaymentID(ctx, nil, userID, paymentID)
}

func (u *apiKeyUC) Create(ctx context.Context, userID, name, industry, planID string, env model.Environment) (*model.APIKey, error) {
	if userID == "" || name == "" || planID == "" {
		return nil, domain.ErrInvalidArgument
	}
	plan, err := u.plans.FindByID(ctx, nil, planID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: pricing plan not found", domain.ErrValidation)
		}
		return nil, err
	}
	if env == "" {
		env = model.EnvProduction
	}

	gen, err := security.GenerateAPIKey(env)
	if err != nil {
		return nil, err
	}
	key, err := model.NewAPIKey(uuid.NewString(), userID, name, industry, planID, gen.FullKey, gen.Prefix, gen.Digest, model.QuotaFromPlan(plan), env)
	if err != nil {
		return nil, err
	}
	if err := u.keys.Insert(ctx, nil, key); err != nil {
		return nil, err
	}

	u.flow.KeyIssued("manual")
	u.audit.Record(ctx, userID, "api_key_created", "apikey", key.ID, map[string]any{
		"name": name, "industry": industry, "environment": string(env),
	})
	return key, nil
}

func (u *apiKeyUC) List(ctx context.Context, userID string, includeRevoked bool) ([]*model.APIKey, error) {
	return u.keys.ListByUser(ctx, nil, userID, includeRevoked)
}

func (u *apiKeyUC) Get(ctx context.Context, userID, id string) (*model.APIKey, error) {
	return u.keys.FindByUserAndID(ctx, nil, userID, id)
}

func (u *apiKeyUC) Rotate(ctx context.Context, userID, id string) (*model.APIKey, error) {
	key, err := u.keys.FindByUserAndID(ctx, nil, userID, id)
	if err != nil {
		return nil, err
	}
	if key.Status == model.APIKeyStatusRevoked {
		return nil, domain.ErrKeyRevoked
	}

	gen, err := security.GenerateAPIKey(key.Environment)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	key.Key = gen.FullKey
	key.KeyPrefix = gen.Prefix
	key.KeyDigest = gen.Digest
	key.LastRotatedAt = &now
	if err := u.keys.Update(ctx, nil, key); err != nil {
		return nil, err
	}

	u.audit.Record(ctx, userID, "api_key_rotated", "apikey", key.ID, nil)
	return key, nil
}

func (u *apiKeyUC) Revoke(ctx context.Context, userID, id string) error {
	key, err := u.keys.FindByUserAndID(ctx, nil, userID, id)
	if err != nil {
		return err
	}
	if key.Status == model.APIKeyStatusRevoked {
		return nil
	}
	now := time.Now()
	key.Status = model.APIKeyStatusRevoked
	key.RevokedAt = &now
	if err := u.keys.Update(ctx, nil, key); err != nil {
		return err
	}

	u.audit.Record(ctx, userID, "api_key_revoked", "apikey", key.ID, nil)
	return nil
}
