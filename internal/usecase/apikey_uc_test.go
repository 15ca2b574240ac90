//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"saas-api-console/internal/domain"
	"saas-api-console/internal/domain/model"
	"saas-api-console/internal/domain/ports/repository"
	"saas-api-console/internal/usecase"
)

type apiKeyUCTestDeps struct {
	keys      *MockAPIKeyRepo
	plans     *MockPlanRepo
	auditRepo *MockAuditRepo
	flow      *MockFlowMetrics
	uc        usecase.APIKeyUseCase
}

func newAPIKeyUCDeps() *apiKeyUCTestDeps {
	logger := newTestLogger()
	deps := &apiKeyUCTestDeps{
		keys:      NewMockAPIKeyRepo(),
		plans:     NewMockPlanRepo(),
		auditRepo: NewMockAuditRepo(),
		flow:      NewMockFlowMetrics(),
	}
	audit := usecase.NewAuditRecorder(deps.auditRepo, logger)
	deps.uc = usecase.NewAPIKeyUseCase(deps.keys, deps.plans, audit, deps.flow, logger)
	return deps
}

func settledPayment(id string) *model.Payment {
	return &model.Payment{
		ID:                   id,
		UserID:               testUserID,
		PlanID:               "plan-1",
		Industry:             "fintech",
		AppName:              "LedgerApp",
		URL:                  "https://ledger.example",
		TransactionReference: "order_1000_abc",
		Status:               model.PaymentStatusSuccess,
	}
}

func TestAPIKeyUseCase_EnsureForPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses unsettled payments", func(t *testing.T) {
		deps := newAPIKeyUCDeps()
		p := settledPayment("aaaaaaaa-1111-4111-8111-111111111111")
		p.Status = model.PaymentStatusPending

		if _, err := deps.uc.EnsureForPayment(ctx, p); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("creates once and returns the same credential after", func(t *testing.T) {
		deps := newAPIKeyUCDeps()
		deps.plans.Save(ctx, nil, growthPlan())
		p := settledPayment("aaaaaaaa-1111-4111-8111-111111111111")

		first, err := deps.uc.EnsureForPayment(ctx, p)
		if err != nil {
			t.Fatalf("first ensure: %v", err)
		}
		if !strings.HasPrefix(first.Key, "ak_live_") {
			t.Errorf("expected production key prefix, got %q", first.Key)
		}
		if first.Name != "LedgerApp - fintech" {
			t.Errorf("unexpected key name %q", first.Name)
		}
		if first.Limit != 5000 {
			t.Errorf("expected quota 5000, got %d", first.Limit)
		}
		if first.PaymentID == nil || *first.PaymentID != p.ID {
			t.Error("key not linked to its payment")
		}

		second, err := deps.uc.EnsureForPayment(ctx, p)
		if err != nil {
			t.Fatalf("second ensure: %v", err)
		}
		if second.ID != first.ID {
			t.Error("repeated ensure minted a new credential")
		}
		if deps.keys.Count() != 1 {
			t.Errorf("expected one credential, got %d", deps.keys.Count())
		}
	})

	t.Run("unlimited plan maps to the sentinel quota", func(t *testing.T) {
		deps := newAPIKeyUCDeps()
		plan := growthPlan()
		plan.APICallLimit = -1
		deps.plans.Save(ctx, nil, plan)

		key, err := deps.uc.EnsureForPayment(ctx, settledPayment("aaaaaaaa-1111-4111-8111-111111111111"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key.Limit != model.UnlimitedQuota {
			t.Errorf("expected %d, got %d", model.UnlimitedQuota, key.Limit)
		}
	})

	t.Run("lost insert race returns the winner's credential", func(t *testing.T) {
		deps := newAPIKeyUCDeps()
		deps.plans.Save(ctx, nil, growthPlan())
		p := settledPayment("aaaaaaaa-1111-4111-8111-111111111111")

		winner := &model.APIKey{
			ID:        "winner-key",
			UserID:    testUserID,
			Key:       "ak_live_winner",
			PaymentID: &p.ID,
			PlanID:    "plan-1",
			Status:    model.APIKeyStatusActive,
		}

		// The pre-insert existence check misses, the insert hits the unique
		// index, and only then does the winner become visible. This is the
		// exact interleaving the storage constraint exists for.
		lookups := 0
		deps.keys.FindByPaymentIDFunc = func(ctx context.Context, tx repository.Tx, userID, paymentID string) (*model.APIKey, error) {
			lookups++
			if lookups == 1 {
				return nil, domain.ErrNotFound
			}
			cp := *winner
			return &cp, nil
		}
		inserts := 0
		deps.keys.InsertFunc = func(ctx context.Context, tx repository.Tx, k *model.APIKey) error {
			inserts++
			return domain.ErrAlreadyExists
		}

		got, err := deps.uc.EnsureForPayment(ctx, p)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ID != winner.ID {
			t.Errorf("expected the winner's credential, got %s", got.ID)
		}
		if inserts != 1 {
			t.Errorf("expected exactly one insert attempt, got %d", inserts)
		}
		if lookups != 2 {
			t.Errorf("expected a re-fetch after the conflict, lookups=%d", lookups)
		}
		if deps.flow.Suppressed() != 1 {
			t.Errorf("expected the suppressed duplicate to be recorded, got %d", deps.flow.Suppressed())
		}
		if deps.flow.Issued("payment") != 0 {
			t.Errorf("the loser must not count an issuance, got %d", deps.flow.Issued("payment"))
		}
	})

	t.Run("unknown plan is a validation error", func(t *testing.T) {
		deps := newAPIKeyUCDeps()
		_, err := deps.uc.EnsureForPayment(ctx, settledPayment("aaaaaaaa-1111-4111-8111-111111111111"))
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}

func TestAPIKeyUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("mints an unlinked key", func(t *testing.T) {
		deps := newAPIKeyUCDeps()
		deps.plans.Save(ctx, nil, growthPlan())

		key, err := deps.uc.Create(ctx, testUserID, "CI key", "fintech", "plan-1", model.EnvTest)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key.PaymentID != nil {
			t.Error("manual keys must not carry a payment link")
		}
		if !strings.HasPrefix(key.Key, "ak_test_") {
			t.Errorf("expected test environment prefix, got %q", key.Key)
		}
	})

	t.Run("unknown plan is rejected", func(t *testing.T) {
		deps := newAPIKeyUCDeps()
		if _, err := deps.uc.Create(ctx, testUserID, "CI key", "", "nope", ""); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		deps := newAPIKeyUCDeps()
		if _, err := deps.uc.Create(ctx, testUserID, "", "", "plan-1", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestAPIKeyUseCase_RotateAndRevoke(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*apiKeyUCTestDeps, *model.APIKey) {
		t.Helper()
		deps := newAPIKeyUCDeps()
		deps.plans.Save(ctx, nil, growthPlan())
		key, err := deps.uc.Create(ctx, testUserID, "CI key", "fintech", "plan-1", model.EnvProduction)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return deps, key
	}

	t.Run("rotate replaces the secret in place", func(t *testing.T) {
		deps, key := setup(t)

		rotated, err := deps.uc.Rotate(ctx, testUserID, key.ID)
		if err != nil {
			t.Fatalf("rotate: %v", err)
		}
		if rotated.Key == key.Key {
			t.Error("rotation must mint a new secret")
		}
		if rotated.ID != key.ID {
			t.Error("rotation must keep the key identity")
		}
		if rotated.LastRotatedAt == nil {
			t.Error("expected last_rotated_at set")
		}
	})

	t.Run("revoked keys cannot rotate", func(t *testing.T) {
		deps, key := setup(t)
		if err := deps.uc.Revoke(ctx, testUserID, key.ID); err != nil {
			t.Fatalf("revoke: %v", err)
		}
		if _, err := deps.uc.Rotate(ctx, testUserID, key.ID); !errors.Is(err, domain.ErrKeyRevoked) {
			t.Fatalf("expected ErrKeyRevoked, got %v", err)
		}
	})

	t.Run("revoke is idempotent and hides the key from default listing", func(t *testing.T) {
		deps, key := setup(t)
		if err := deps.uc.Revoke(ctx, testUserID, key.ID); err != nil {
			t.Fatalf("first revoke: %v", err)
		}
		if err := deps.uc.Revoke(ctx, testUserID, key.ID); err != nil {
			t.Fatalf("second revoke must be a no-op, got %v", err)
		}

		visible, err := deps.uc.List(ctx, testUserID, false)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(visible) != 0 {
			t.Errorf("revoked keys must be hidden by default, got %d", len(visible))
		}
		all, err := deps.uc.List(ctx, testUserID, true)
		if err != nil {
			t.Fatalf("list all: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("expected revoked key in full listing, got %d", len(all))
		}
	})
}
