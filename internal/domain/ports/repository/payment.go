package repository

import (
	"context"
	"time"

	"saas-api-console/internal/domain/model"
)

// PaymentRepository is the port for payment persistence. All lookups are
// scoped to the owning user; a reference string is never trusted across users.
type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error

	FindByUserAndID(ctx context.Context, tx Tx, userID, id string) (*model.Payment, error)

	// FindByUserAndReferences matches either the persisted transaction
	// reference or the gateway-assigned reference in the verification
	// metadata against any of refs. When successOnly is set, only payments
	// already in status success are considered.
	FindByUserAndReferences(ctx context.Context, tx Tx, userID string, refs []string, successOnly bool) (*model.Payment, error)

	// MarkSuccess transitions a payment to success unless it already is.
	// It returns false (and no error) when the guard did not match, which
	// callers treat as "another writer got there first".
	MarkSuccess(ctx context.Context, tx Tx, id string, reference string, method string, meta map[string]any, paidAt time.Time) (bool, error)

	// MarkFailed transitions a payment to failed only from pending.
	MarkFailed(ctx context.Context, tx Tx, id string, meta map[string]any) (bool, error)

	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.Payment, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
}
