package repository

import (
	"context"

	"saas-api-console/internal/domain/model"
)

// SupportTicketRepository is the port for ticket persistence.
type SupportTicketRepository interface {
	Save(ctx context.Context, tx Tx, t *model.SupportTicket) error
	FindByUserAndID(ctx context.Context, tx Tx, userID, id string) (*model.SupportTicket, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.SupportTicket, error)
}
