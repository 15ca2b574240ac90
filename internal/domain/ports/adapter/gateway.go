package adapter

import (
	"context"
	"time"
)

// VerifyOutcome classifies a gateway verification response. Transport-level
// failures (non-2xx, malformed body, timeout) are NOT an outcome; they surface
// as an error from Verify so callers can distinguish "retry later" from
// "the gateway says no".
type VerifyOutcome string

const (
	OutcomeSuccess       VerifyOutcome = "success"
	OutcomeNotSuccessful VerifyOutcome = "not_successful"
)

// CustomField carries the purchase wizard fields echoed back by the gateway.
type CustomField struct {
	DisplayName  string
	VariableName string
	Value        string
}

// VerifyResult is the normalized verification response.
type VerifyResult struct {
	Outcome VerifyOutcome
	// Reference is the canonical transaction reference as the gateway itself
	// reports it; it may differ from the reference the caller supplied.
	Reference   string
	AmountMinor int64 // minor units (kobo)
	Currency    string
	Email       string
	PaidAt      time.Time
	Channel     string // card, bank_transfer, ...
	// Message is the gateway's human-readable disposition, shown to the user
	// on rejection.
	Message string
	// PaymentIDHint is metadata.payment_id: the internal payment id embedded
	// at initiation time, round-tripped through the gateway unmodified.
	PaymentIDHint string
	CustomFields  []CustomField
	// Raw is the full response payload, persisted as the payment's gateway
	// metadata.
	Raw map[string]any
}

// InitiateRequest describes a create-charge call.
type InitiateRequest struct {
	Reference   string
	AmountMinor int64
	Currency    string
	Email       string
	CallbackURL string
	// PaymentID is stored in the request metadata so verification can resolve
	// the record by id even when references diverge.
	PaymentID    string
	CustomFields []CustomField
}

// InitiateResult carries the redirect the client completes the charge on.
type InitiateResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// PaymentGateway is the hex port for the external payment processor.
// Implementations never mutate local state; both calls are pure queries
// against the provider.
type PaymentGateway interface {
	Name() string

	// Initiate creates a charge on the provider and returns the redirect URL.
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)

	// Verify queries the provider for the transaction behind reference.
	// A transport failure returns a non-nil error wrapping
	// domain.ErrGatewayUnavailable; a completed call returns a result whose
	// Outcome says whether the transaction actually succeeded.
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}
