package payment

import (
	"context"
	"sync"
	"time"

	"saas-api-console/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway is a simple in-memory gateway for dev mode and tests: every
// initiated charge verifies as successful.
type NoopGateway struct {
	mu      sync.Mutex
	intents map[string]adapter.InitiateRequest // reference -> original request
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{intents: make(map[string]adapter.InitiateRequest)}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) Initiate(ctx context.Context, req adapter.InitiateRequest) (*adapter.InitiateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[req.Reference] = req
	return &adapter.InitiateResult{
		AuthorizationURL: "https://example.test/pay/" + req.Reference,
		AccessCode:       "noop_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (g *NoopGateway) Verify(ctx context.Context, reference string) (*adapter.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	req, ok := g.intents[reference]
	if !ok {
		return &adapter.VerifyResult{
			Outcome:   adapter.OutcomeNotSuccessful,
			Reference: reference,
			Message:   "Transaction reference not found",
		}, nil
	}
	return &adapter.VerifyResult{
		Outcome:       adapter.OutcomeSuccess,
		Reference:     reference,
		AmountMinor:   req.AmountMinor,
		Currency:      req.Currency,
		Email:         req.Email,
		PaidAt:        time.Now(),
		Channel:       "noop",
		PaymentIDHint: req.PaymentID,
		CustomFields:  req.CustomFields,
		Raw:           map[string]any{"reference": reference, "status": "success"},
	}, nil
}
