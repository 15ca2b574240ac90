package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"saas-api-console/internal/domain"
	"saas-api-console/internal/domain/model"
	"saas-api-console/internal/domain/ports/repository"
)

var _ TicketUseCase = (*ticketUC)(nil)

// TicketUseCase manages user support tickets.
type TicketUseCase interface {
	Create(ctx context.Context, userID, subject, description, vertical string, priority model.TicketPriority) (*model.SupportTicket, error)
	Get(ctx context.Context, userID, id string) (*model.SupportTicket, error)
	List(ctx context.Context, userID string) ([]*model.SupportTicket, error)
	Respond(ctx context.Context, userID, id, message string) (*model.SupportTicket, error)
	UpdateStatus(ctx context.Context, userID, id string, status model.TicketStatus) (*model.SupportTicket, error)
}

type ticketUC struct {
	tickets repository.SupportTicketRepository
	tm      repository.TransactionManager
	audit   *AuditRecorder
	log     *zerolog.Logger
}

func NewTicketUseCase(tickets repository.SupportTicketRepository, tm repository.TransactionManager, audit *AuditRecorder, logger *zerolog.Logger) *ticketUC {
	return &ticketUC{tickets: tickets, tm: tm, audit: audit, log: logger}
}

func (u *ticketUC) Create(ctx context.Context, userID, subject, description, vertical string, priority model.TicketPriority) (*model.SupportTicket, error) {
	t, err := model.NewSupportTicket(uuid.NewString(), userID, subject, description, vertical, priority)
	if err != nil {
		return nil, err
	}
	if err := u.tickets.Save(ctx, nil, t); err != nil {
		return nil, err
	}
	u.audit.Record(ctx, userID, "ticket_created", "ticket", t.ID, map[string]any{"subject": subject, "priority": string(t.Priority)})
	return t, nil
}

func (u *ticketUC) Get(ctx context.Context, userID, id string) (*model.SupportTicket, error) {
	return u.tickets.FindByUserAndID(ctx, nil, userID, id)
}

func (u *ticketUC) List(ctx context.Context, userID string) ([]*model.SupportTicket, error) {
	return u.tickets.ListByUser(ctx, nil, userID)
}

// Respond appends a response inside a transaction so a concurrent close
// cannot interleave between the read and the write.
func (u *ticketUC) Respond(ctx context.Context, userID, id, message string) (*model.SupportTicket, error) {
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrValidation)
	}
	var out *model.SupportTicket
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		t, err := u.tickets.FindByUserAndID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if t.Status == model.TicketStatusClosed {
			return fmt.Errorf("%w: ticket is closed", domain.ErrValidation)
		}
		t.Responses = append(t.Responses, model.TicketResponse{
			Message:   message,
			UserID:    userID,
			CreatedAt: time.Now(),
		})
		t.UpdatedAt = time.Now()
		if err := u.tickets.Save(ctx, tx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *ticketUC) UpdateStatus(ctx context.Context, userID, id string, status model.TicketStatus) (*model.SupportTicket, error) {
	var out *model.SupportTicket
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		t, err := u.tickets.FindByUserAndID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if !model.ValidTicketTransition(t.Status, status) {
			return fmt.Errorf("%w: cannot move ticket from %s to %s", domain.ErrValidation, t.Status, status)
		}
		if t.Status != status {
			t.Status = status
			t.UpdatedAt = time.Now()
			if status == model.TicketStatusResolved {
				now := time.Now()
				t.ResolvedAt = &now
			}
			if err := u.tickets.Save(ctx, tx, t); err != nil {
				return err
			}
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
