package model

import (
	"fmt"
	"math/rand"
	"time"

	"saas-api-console/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending" // created at purchase initiation; awaiting verification
	PaymentStatusSuccess PaymentStatus = "success" // gateway confirmed; terminal
	PaymentStatusFailed  PaymentStatus = "failed"  // gateway reported not successful
)

// Payment records one purchase attempt and its settlement state.
// Payments are financial records and are never deleted.
type Payment struct {
	ID       string // UUID
	UserID   string // UUID of the owning user
	PlanID   string // UUID of the purchased pricing plan
	Industry string
	AppName  string
	URL      string
	Email    string
	Amount   int64  // NGN major units; plans are priced in whole naira
	Currency string // "NGN"
	// TransactionReference is generated locally at creation (order_<ts>_<rand>).
	// After verification it is overwritten with the gateway's canonical
	// reference, which may differ from the one we generated.
	TransactionReference string
	Status               PaymentStatus
	PaymentMethod        string
	// GatewayMetadata holds the opaque payload of the last verification
	// response (serialized as JSONB). Its "reference" entry is the
	// gateway-assigned reference used by the resolver.
	GatewayMetadata map[string]any
	InvoiceID       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PaidAt          *time.Time // set iff Status == success
}

func (p *Payment) IsZero() bool { return p == nil || p.ID == "" }

// GatewayReference returns the gateway-assigned reference stored in the last
// verification payload, or "" when no verification has happened yet.
func (p *Payment) GatewayReference() string {
	if p.GatewayMetadata == nil {
		return ""
	}
	if ref, ok := p.GatewayMetadata["reference"].(string); ok {
		return ref
	}
	return ""
}

// NewPayment validates and constructs a pending payment.
func NewPayment(id, userID, planID, industry, appName, url, email string, amount int64, currency string) (*Payment, error) {
	if id == "" || userID == "" || planID == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if currency == "" {
		currency = "NGN"
	}
	now := time.Now()
	return &Payment{
		ID:                   id,
		UserID:               userID,
		PlanID:               planID,
		Industry:             industry,
		AppName:              appName,
		URL:                  url,
		Email:                email,
		Amount:               amount,
		Currency:             currency,
		TransactionReference: NewTransactionReference(),
		Status:               PaymentStatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// NewTransactionReference generates the locally assigned order reference.
// Format mirrors what the purchase wizard embeds in the gateway request.
func NewTransactionReference() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 9)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return fmt.Sprintf("order_%d_%s", time.Now().UnixMilli(), string(b))
}
