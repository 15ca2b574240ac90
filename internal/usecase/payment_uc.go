package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"saas-api-console/internal/domain"
	"saas-api-console/internal/domain/model"
	"saas-api-console/internal/domain/ports/adapter"
	"saas-api-console/internal/domain/ports/repository"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// VerifiedKey is the credential payload of a successful verification. Key is
// the full secret value.
type VerifiedKey struct {
	Key    string `json:"key"`
	Prefix string `json:"prefix"`
}

type VerificationData struct {
	Reference string       `json:"reference"`
	Amount    int64        `json:"amount"`
	Currency  string       `json:"currency"`
	Email     string       `json:"email"`
	PaidAt    *time.Time   `json:"paid_at,omitempty"`
	InvoiceID string       `json:"invoiceId"`
	APIKey    *VerifiedKey `json:"apiKey,omitempty"`
}

// VerificationResult is the outward contract of the verification flow.
// Status is "success" or "failed"; transport-level failures surface as errors
// and are mapped to "error" by the HTTP layer.
type VerificationResult struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    *VerificationData `json:"data,omitempty"`
}

type PaymentUseCase interface {
	// Initiate creates a pending payment for the plan and opens a charge on
	// the gateway, returning the redirect the client completes it on.
	Initiate(ctx context.Context, userID string, req InitiateParams) (*model.Payment, *adapter.InitiateResult, error)

	// Verify reconciles a gateway transaction with the local payment record
	// exactly once and provisions the linked credential. It is safe to call
	// repeatedly and concurrently for the same reference.
	Verify(ctx context.Context, userID, reference string) (*VerificationResult, error)

	Get(ctx context.Context, userID, id string) (*model.Payment, error)
	History(ctx context.Context, userID string, limit int) ([]*model.Payment, error)
}

// InitiateParams carries the purchase wizard inputs.
type InitiateParams struct {
	PlanID   string
	Industry string
	AppName  string
	URL      string
	Email    string
}

type paymentUC struct {
	payments    repository.PaymentRepository
	plans       repository.PricingPlanRepository
	gateway     adapter.PaymentGateway
	provisioner APIKeyUseCase
	audit       *AuditRecorder
	flow        FlowMetrics
	log         *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	plans repository.PricingPlanRepository,
	gateway adapter.PaymentGateway,
	provisioner APIKeyUseCase,
	audit *AuditRecorder,
	flow FlowMetrics,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		payments:    payments,
		plans:       plans,
		gateway:     gateway,
		provisioner: provisioner,
		audit:       audit,
		flow:        flowOrNop(flow),
		log:         logger,
	}
}

// NewInvoiceID generates a display invoice id.
func NewInvoiceID() string {
	return "INV-" + ulid.Make().String()
}

func (u *paymentUC) Initiate(ctx context.Context, userID string, req InitiateParams) (*model.Payment, *adapter.InitiateResult, error) {
	plan, err := u.plans.FindByID(ctx, nil, req.PlanID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: pricing plan not found", domain.ErrValidation)
		}
		return nil, nil, err
	}
	if !plan.IsActive() {
		return nil, nil, fmt.Errorf("%w: pricing plan is not active", domain.ErrValidation)
	}

	p, err := model.NewPayment(uuid.NewString(), userID, plan.ID, req.Industry, req.AppName, req.URL, req.Email, plan.PriceNGN, "NGN")
	if err != nil {
		return nil, nil, err
	}
	p.InvoiceID = NewInvoiceID()

	// The pending record exists before any gateway interaction so that a
	// crash between the two steps leaves a resolvable payment behind.
	if err := u.payments.Save(ctx, nil, p); err != nil {
		return nil, nil, err
	}

	res, err := u.gateway.Initiate(ctx, adapter.InitiateRequest{
		Reference:   p.TransactionReference,
		AmountMinor: p.Amount * 100,
		Currency:    p.Currency,
		Email:       p.Email,
		PaymentID:   p.ID,
		CustomFields: []adapter.CustomField{
			{DisplayName: "Industry", VariableName: "industry", Value: p.Industry},
			{DisplayName: "Application", VariableName: "app_name", Value: p.AppName},
			{DisplayName: "Origin URL", VariableName: "origin_url", Value: p.URL},
			{DisplayName: "Pricing Plan", VariableName: "pricing_plan", Value: plan.Name},
		},
	})
	if err != nil {
		return nil, nil, err
	}

	u.flow.PaymentTransition(string(model.PaymentStatusPending))
	u.audit.Record(ctx, userID, "payment_initiated", "payment", p.ID, map[string]any{
		"planId": plan.ID, "amount": p.Amount, "industry": p.Industry,
	})
	return p, res, nil
}

func (u *paymentUC) Verify(ctx context.Context, userID, reference string) (*VerificationResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: transaction reference is required", domain.ErrValidation)
	}

	// RESOLVING: a payment already settled under this reference with a linked
	// credential means this is a duplicate call; answer from local state
	// without a gateway round-trip.
	if settled, err := u.payments.FindByUserAndReferences(ctx, nil, userID, []string{reference}, true); err == nil {
		if key, kerr := u.provisioner.FindForPayment(ctx, userID, settled.ID); kerr == nil {
			u.log.Debug().Str("payment_id", settled.ID).Msg("verification short-circuited on settled payment")
			return u.successResult(settled, key, "Payment already verified"), nil
		} else if !errors.Is(kerr, domain.ErrNotFound) {
			return nil, kerr
		}
		// Settled but never provisioned (e.g. a crash between the two
		// writes): continue through the full flow so provisioning happens
		// after the gateway re-confirms.
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// VERIFYING: the gateway call is bounded external I/O; no database locks
	// are held across it. A transport failure propagates unchanged so the
	// caller can retry without any local state having moved.
	vr, err := u.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}

	// DECIDING: re-run resolution with the gateway's own canonical reference,
	// which may differ from what the caller supplied.
	query := ResolveQuery{
		PaymentIDHint:    vr.PaymentIDHint,
		RequestReference: reference,
		GatewayReference: vr.Reference,
		GatewaySuccess:   vr.Outcome == adapter.OutcomeSuccess,
	}
	payment, resolveErr := ResolvePayment(ctx, u.payments, userID, query)
	if resolveErr != nil && !errors.Is(resolveErr, domain.ErrNotFound) {
		return nil, resolveErr
	}

	if vr.Outcome != adapter.OutcomeSuccess {
		if resolveErr == nil && payment.Status == model.PaymentStatusPending {
			if _, err := u.payments.MarkFailed(ctx, nil, payment.ID, vr.Raw); err != nil {
				return nil, err
			}
			u.flow.PaymentTransition(string(model.PaymentStatusFailed))
		}
		msg := vr.Message
		if msg == "" {
			msg = "Transaction was not successful"
		}
		return &VerificationResult{Status: "failed", Message: msg}, nil
	}

	switch {
	case resolveErr == nil && payment.Status == model.PaymentStatusSuccess:
		// Already settled; fall through to provisioning.

	case resolveErr == nil:
		payment, err = u.settle(ctx, payment, vr)
		if err != nil {
			return nil, err
		}

	case query.HasIDHint():
		// The id hint round-trips from initiation, so its record must exist;
		// its absence is a data-integrity problem, not metadata loss. Never
		// fabricate on this path.
		u.log.Error().Str("payment_id_hint", vr.PaymentIDHint).Str("user_id", userID).
			Str("reference", vr.Reference).Msg("payment from gateway metadata not found")
		return nil, fmt.Errorf("%w: payment record for gateway transaction", domain.ErrNotFound)

	default:
		payment, err = u.synthesize(ctx, userID, vr)
		if err != nil {
			return nil, err
		}
	}

	// PROVISIONING
	key, err := u.provisioner.EnsureForPayment(ctx, payment)
	if err != nil {
		return nil, err
	}

	u.audit.Record(ctx, userID, "payment_successful", "payment", payment.ID, map[string]any{
		"amount": payment.Amount, "planId": payment.PlanID, "industry": payment.Industry,
	})
	return u.successResult(payment, key, "Payment verified successfully"), nil
}

// settle transitions the resolved payment to success. The store-level guard
// rejects the write when another handler settled it first; in that case the
// current row is re-read and used as-is.
func (u *paymentUC) settle(ctx context.Context, payment *model.Payment, vr *adapter.VerifyResult) (*model.Payment, error) {
	paidAt := vr.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	moved, err := u.payments.MarkSuccess(ctx, nil, payment.ID, vr.Reference, vr.Channel, vr.Raw, paidAt)
	if err != nil {
		return nil, err
	}
	if moved {
		u.flow.PaymentTransition(string(model.PaymentStatusSuccess))
		u.flow.PaymentRevenue(payment.Currency, payment.Amount)
	}
	return u.payments.FindByUserAndID(ctx, nil, payment.UserID, payment.ID)
}

// synthesize is the orphaned-success fallback: the gateway confirms a
// settlement for which no local record exists and no id hint was supplied.
// A record should have been created at purchase initiation, so this path is
// alert-worthy; it exists for metadata loss, not normal operation.
func (u *paymentUC) synthesize(ctx context.Context, userID string, vr *adapter.VerifyResult) (*model.Payment, error) {
	fields := customFieldMap(vr.CustomFields)
	planName := fields["pricing_plan"]

	plan, err := u.plans.FindByName(ctx, nil, planName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: pricing plan %q not found", domain.ErrValidation, planName)
		}
		return nil, err
	}

	u.log.Error().Str("user_id", userID).Str("reference", vr.Reference).
		Msg("no payment record for successful gateway transaction; synthesizing from gateway metadata")
	u.flow.OrphanedPayment()

	paidAt := vr.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	currency := vr.Currency
	if currency == "" {
		currency = "NGN"
	}
	now := time.Now()
	p := &model.Payment{
		ID:                   uuid.NewString(),
		UserID:               userID,
		PlanID:               plan.ID,
		Industry:             fields["industry"],
		AppName:              fields["app_name"],
		URL:                  fields["origin_url"],
		Email:                vr.Email,
		Amount:               vr.AmountMinor / 100,
		Currency:             currency,
		TransactionReference: vr.Reference,
		Status:               model.PaymentStatusSuccess,
		PaymentMethod:        vr.Channel,
		GatewayMetadata:      vr.Raw,
		InvoiceID:            NewInvoiceID(),
		CreatedAt:            now,
		UpdatedAt:            now,
		PaidAt:               &paidAt,
	}
	if err := u.payments.Save(ctx, nil, p); err != nil {
		return nil, err
	}
	u.flow.PaymentTransition(string(model.PaymentStatusSuccess))
	u.flow.PaymentRevenue(p.Currency, p.Amount)
	return p, nil
}

func (u *paymentUC) successResult(p *model.Payment, key *model.APIKey, message string) *VerificationResult {
	data := &VerificationData{
		Reference: p.TransactionReference,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Email:     p.Email,
		PaidAt:    p.PaidAt,
		InvoiceID: p.InvoiceID,
	}
	if ref := p.GatewayReference(); ref != "" {
		data.Reference = ref
	}
	if key != nil {
		data.APIKey = &VerifiedKey{Key: key.Key, Prefix: key.KeyPrefix}
	}
	return &VerificationResult{Status: "success", Message: message, Data: data}
}

func (u *paymentUC) Get(ctx context.Context, userID, id string) (*model.Payment, error) {
	return u.payments.FindByUserAndID(ctx, nil, userID, id)
}

func (u *paymentUC) History(ctx context.Context, userID string, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	return u.payments.ListByUser(ctx, nil, userID, limit)
}

func customFieldMap(fields []adapter.CustomField) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.VariableName] = f.Value
	}
	return out
}
