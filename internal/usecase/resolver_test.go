//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"saas-api-console/internal/domain"
	"saas-api-console/internal/domain/model"
	"saas-api-console/internal/domain/ports/repository"
	"saas-api-console/internal/usecase"
)

const testUserID = "6a6e7f5e-46d5-4bb3-9f1c-0b7f2f2a9a01"

func seedPayment(t *testing.T, repo *MockPaymentRepo, id, reference string, status model.PaymentStatus) *model.Payment {
	t.Helper()
	p := &model.Payment{
		ID:                   id,
		UserID:               testUserID,
		PlanID:               "plan-1",
		TransactionReference: reference,
		Status:               status,
		Amount:               49,
		Currency:             "NGN",
		InvoiceID:            usecase.NewInvoiceID(),
		CreatedAt:            time.Now(),
	}
	if err := repo.Save(context.Background(), nil, p); err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return p
}

func TestResolvePayment_IDHintWins(t *testing.T) {
	ctx := context.Background()
	repo := NewMockPaymentRepo()

	// two records: the hint names one, the reference matches the other
	byID := seedPayment(t, repo, "aaaaaaaa-1111-4111-8111-111111111111", "order_1_aaa", model.PaymentStatusPending)
	seedPayment(t, repo, "bbbbbbbb-2222-4222-8222-222222222222", "order_2_bbb", model.PaymentStatusPending)

	got, err := usecase.ResolvePayment(ctx, repo, testUserID, usecase.ResolveQuery{
		PaymentIDHint:    byID.ID,
		RequestReference: "order_2_bbb",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != byID.ID {
		t.Errorf("expected id-hint record %s, got %s", byID.ID, got.ID)
	}
}

func TestResolvePayment_MalformedHintFallsToReference(t *testing.T) {
	ctx := context.Background()
	repo := NewMockPaymentRepo()
	p := seedPayment(t, repo, "aaaaaaaa-1111-4111-8111-111111111111", "order_1_aaa", model.PaymentStatusPending)

	got, err := usecase.ResolvePayment(ctx, repo, testUserID, usecase.ResolveQuery{
		PaymentIDHint:    "not-a-uuid",
		RequestReference: "order_1_aaa",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("expected %s, got %s", p.ID, got.ID)
	}
}

func TestResolvePayment_HintMissFallsThrough(t *testing.T) {
	ctx := context.Background()
	repo := NewMockPaymentRepo()
	p := seedPayment(t, repo, "aaaaaaaa-1111-4111-8111-111111111111", "order_1_aaa", model.PaymentStatusPending)

	// well-formed hint that matches nothing, reference that does
	got, err := usecase.ResolvePayment(ctx, repo, testUserID, usecase.ResolveQuery{
		PaymentIDHint:    "cccccccc-3333-4333-8333-333333333333",
		RequestReference: "order_1_aaa",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("expected %s, got %s", p.ID, got.ID)
	}
}

func TestResolvePayment_GatewayReferenceMatches(t *testing.T) {
	ctx := context.Background()
	repo := NewMockPaymentRepo()
	p := seedPayment(t, repo, "aaaaaaaa-1111-4111-8111-111111111111", "order_1_aaa", model.PaymentStatusPending)
	p.GatewayMetadata = map[string]any{"reference": "PSK_REF_42"}
	if err := repo.Save(ctx, nil, p); err != nil {
		t.Fatal(err)
	}

	got, err := usecase.ResolvePayment(ctx, repo, testUserID, usecase.ResolveQuery{
		GatewayReference: "PSK_REF_42",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("expected %s, got %s", p.ID, got.ID)
	}
}

func TestResolvePayment_NoIdentifiers(t *testing.T) {
	ctx := context.Background()
	repo := NewMockPaymentRepo()

	_, err := usecase.ResolvePayment(ctx, repo, testUserID, usecase.ResolveQuery{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolvePayment_SuccessOnlyRetry(t *testing.T) {
	ctx := context.Background()

	// Simulate the race: the broad search misses (a concurrent writer has not
	// committed), the success-restricted retry finds the settled record.
	settled := &model.Payment{
		ID:                   "dddddddd-4444-4444-8444-444444444444",
		UserID:               testUserID,
		TransactionReference: "order_9_race",
		Status:               model.PaymentStatusSuccess,
		CreatedAt:            time.Now(),
	}

	repo := NewMockPaymentRepo()
	repo.FindByUserAndReferencesFunc = func(ctx context.Context, tx repository.Tx, userID string, refs []string, successOnly bool) (*model.Payment, error) {
		if successOnly {
			cp := *settled
			return &cp, nil
		}
		return nil, domain.ErrNotFound
	}

	t.Run("retried when gateway reports success", func(t *testing.T) {
		got, err := usecase.ResolvePayment(ctx, repo, testUserID, usecase.ResolveQuery{
			RequestReference: "order_9_race",
			GatewaySuccess:   true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ID != settled.ID {
			t.Errorf("expected %s, got %s", settled.ID, got.ID)
		}
	})

	t.Run("not retried otherwise", func(t *testing.T) {
		_, err := usecase.ResolvePayment(ctx, repo, testUserID, usecase.ResolveQuery{
			RequestReference: "order_9_race",
			GatewaySuccess:   false,
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
