package model

import (
	"time"

	"saas-api-console/internal/domain"
)

type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in-progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

type TicketPriority string

const (
	TicketPriorityNormal   TicketPriority = "normal"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

type TicketResponse struct {
	Message   string
	UserID    string
	IsAdmin   bool
	CreatedAt time.Time
}

// SupportTicket is a user-filed support request.
type SupportTicket struct {
	ID               string
	UserID           string
	Subject          string
	Description      string
	AffectedVertical string // industry
	Priority         TicketPriority
	Status           TicketStatus
	Responses        []TicketResponse
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ResolvedAt       *time.Time
}

func NewSupportTicket(id, userID, subject, description, vertical string, priority TicketPriority) (*SupportTicket, error) {
	if id == "" || userID == "" || subject == "" || description == "" {
		return nil, domain.ErrInvalidArgument
	}
	if priority == "" {
		priority = TicketPriorityNormal
	}
	now := time.Now()
	return &SupportTicket{
		ID:               id,
		UserID:           userID,
		Subject:          subject,
		Description:      description,
		AffectedVertical: vertical,
		Priority:         priority,
		Status:           TicketStatusOpen,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// ValidTicketTransition reports whether a status change is allowed.
// Closed is terminal.
func ValidTicketTransition(from, to TicketStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case TicketStatusOpen:
		return to == TicketStatusInProgress || to == TicketStatusResolved || to == TicketStatusClosed
	case TicketStatusInProgress:
		return to == TicketStatusResolved || to == TicketStatusClosed
	case TicketStatusResolved:
		return to == TicketStatusClosed || to == TicketStatusInProgress
	default:
		return false
	}
}
