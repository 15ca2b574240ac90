package repository

import (
	"context"

	"saas-api-console/internal/domain/model"
)

// APIKeyRepository is the port for credential persistence.
type APIKeyRepository interface {
	// Insert persists a new key. When the key links a payment that already
	// has a credential, the storage-level unique index on payment_id fires
	// and Insert returns domain.ErrAlreadyExists.
	Insert(ctx context.Context, tx Tx, k *model.APIKey) error

	Update(ctx context.Context, tx Tx, k *model.APIKey) error

	FindByUserAndID(ctx context.Context, tx Tx, userID, id string) (*model.APIKey, error)
	FindByPaymentID(ctx context.Context, tx Tx, userID, paymentID string) (*model.APIKey, error)
	ListByUser(ctx context.Context, tx Tx, userID string, includeRevoked bool) ([]*model.APIKey, error)
}
