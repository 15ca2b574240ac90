//go:build !integration

package usecase_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"saas-api-console/internal/domain"
	"saas-api-console/internal/domain/model"
	"saas-api-console/internal/domain/ports/adapter"
	"saas-api-console/internal/domain/ports/repository"
	"saas-api-console/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---------------- payments ----------------

type MockPaymentRepo struct {
	mu   sync.Mutex
	data map[string]*model.Payment

	SaveFunc                    func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindByUserAndReferencesFunc func(ctx context.Context, tx repository.Tx, userID string, refs []string, successOnly bool) (*model.Payment, error)
	MarkSuccessFunc             func(ctx context.Context, tx repository.Tx, id, reference, method string, meta map[string]any, paidAt time.Time) (bool, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPaymentRepo) FindByUserAndID(ctx context.Context, tx repository.Tx, userID, id string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPaymentRepo) FindByUserAndReferences(ctx context.Context, tx repository.Tx, userID string, refs []string, successOnly bool) (*model.Payment, error) {
	if r.FindByUserAndReferencesFunc != nil {
		return r.FindByUserAndReferencesFunc(ctx, tx, userID, refs, successOnly)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *model.Payment
	for _, p := range r.data {
		if p.UserID != userID {
			continue
		}
		if successOnly && p.Status != model.PaymentStatusSuccess {
			continue
		}
		if !matchesAnyRef(p, refs) {
			continue
		}
		if best == nil || p.CreatedAt.After(best.CreatedAt) {
			best = p
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func matchesAnyRef(p *model.Payment, refs []string) bool {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if p.TransactionReference == ref || p.GatewayReference() == ref {
			return true
		}
	}
	return false
}

func (r *MockPaymentRepo) MarkSuccess(ctx context.Context, tx repository.Tx, id, reference, method string, meta map[string]any, paidAt time.Time) (bool, error) {
	if r.MarkSuccessFunc != nil {
		return r.MarkSuccessFunc(ctx, tx, id, reference, method, meta, paidAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.Status == model.PaymentStatusSuccess {
		return false, nil
	}
	p.Status = model.PaymentStatusSuccess
	p.TransactionReference = reference
	p.PaymentMethod = method
	p.GatewayMetadata = meta
	p.PaidAt = &paidAt
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockPaymentRepo) MarkFailed(ctx context.Context, tx repository.Tx, id string, meta map[string]any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = model.PaymentStatusFailed
	p.GatewayMetadata = meta
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockPaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.data {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.data {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns the stored record directly, bypassing user scoping. Test helper.
func (r *MockPaymentRepo) Get(id string) *model.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (r *MockPaymentRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// ---------------- api keys ----------------

type MockAPIKeyRepo struct {
	mu        sync.Mutex
	data      map[string]*model.APIKey
	byPayment map[string]string // paymentID -> keyID

	InsertFunc          func(ctx context.Context, tx repository.Tx, k *model.APIKey) error
	FindByPaymentIDFunc func(ctx context.Context, tx repository.Tx, userID, paymentID string) (*model.APIKey, error)
}

var _ repository.APIKeyRepository = (*MockAPIKeyRepo)(nil)

func NewMockAPIKeyRepo() *MockAPIKeyRepo {
	return &MockAPIKeyRepo{data: map[string]*model.APIKey{}, byPayment: map[string]string{}}
}

func (r *MockAPIKeyRepo) Insert(ctx context.Context, tx repository.Tx, k *model.APIKey) error {
	if r.InsertFunc != nil {
		return r.InsertFunc(ctx, tx, k)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if k.PaymentID != nil {
		if _, taken := r.byPayment[*k.PaymentID]; taken {
			return domain.ErrAlreadyExists
		}
		r.byPayment[*k.PaymentID] = k.ID
	}
	cp := *k
	r.data[k.ID] = &cp
	return nil
}

func (r *MockAPIKeyRepo) Update(ctx context.Context, tx repository.Tx, k *model.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[k.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *k
	r.data[k.ID] = &cp
	return nil
}

func (r *MockAPIKeyRepo) FindByUserAndID(ctx context.Context, tx repository.Tx, userID, id string) (*model.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.data[id]
	if !ok || k.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *k
	return &cp, nil
}

func (r *MockAPIKeyRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, userID, paymentID string) (*model.APIKey, error) {
	if r.FindByPaymentIDFunc != nil {
		return r.FindByPaymentIDFunc(ctx, tx, userID, paymentID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPayment[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	k := r.data[id]
	if k == nil || k.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *k
	return &cp, nil
}

func (r *MockAPIKeyRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, includeRevoked bool) ([]*model.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.APIKey
	for _, k := range r.data {
		if k.UserID != userID {
			continue
		}
		if !includeRevoked && k.Status == model.APIKeyStatusRevoked {
			continue
		}
		cp := *k
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockAPIKeyRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// ---------------- plans ----------------

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.PricingPlan
}

var _ repository.PricingPlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{data: map[string]*model.PricingPlan{}}
}

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.PricingPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *plan
	r.data[plan.ID] = &cp
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PricingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPlanRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.PricingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if strings.EqualFold(p.Name, name) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.PricingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PricingPlan
	for _, p := range r.data {
		if p.Status == model.PlanStatusActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---------------- tickets ----------------

type MockTicketRepo struct {
	mu   sync.Mutex
	data map[string]*model.SupportTicket
}

var _ repository.SupportTicketRepository = (*MockTicketRepo)(nil)

func NewMockTicketRepo() *MockTicketRepo {
	return &MockTicketRepo{data: map[string]*model.SupportTicket{}}
}

func (r *MockTicketRepo) Save(ctx context.Context, tx repository.Tx, t *model.SupportTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	cp.Responses = append([]model.TicketResponse(nil), t.Responses...)
	r.data[t.ID] = &cp
	return nil
}

func (r *MockTicketRepo) FindByUserAndID(ctx context.Context, tx repository.Tx, userID, id string) (*model.SupportTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *t
	cp.Responses = append([]model.TicketResponse(nil), t.Responses...)
	return &cp, nil
}

func (r *MockTicketRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.SupportTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SupportTicket
	for _, t := range r.data {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---------------- transaction manager ----------------

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

// WithTx runs fn immediately outside any real transaction unless a test
// installs WithTxFunc to assert transactional behavior.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

// ---------------- audit ----------------

type MockAuditRepo struct {
	mu      sync.Mutex
	entries []*model.AuditLog

	InsertErr error
}

var _ repository.AuditLogRepository = (*MockAuditRepo)(nil)

func NewMockAuditRepo() *MockAuditRepo { return &MockAuditRepo{} }

func (r *MockAuditRepo) Insert(ctx context.Context, tx repository.Tx, e *model.AuditLog) error {
	if r.InsertErr != nil {
		return r.InsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *MockAuditRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AuditLog
	for _, e := range r.entries {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockAuditRepo) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// ---------------- gateway ----------------

type MockPaymentGateway struct {
	mu           sync.Mutex
	verifyCalls  int
	InitiateFunc func(ctx context.Context, req adapter.InitiateRequest) (*adapter.InitiateResult, error)
	VerifyFunc   func(ctx context.Context, reference string) (*adapter.VerifyResult, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (g *MockPaymentGateway) Name() string { return "mock" }

func (g *MockPaymentGateway) Initiate(ctx context.Context, req adapter.InitiateRequest) (*adapter.InitiateResult, error) {
	if g.InitiateFunc != nil {
		return g.InitiateFunc(ctx, req)
	}
	return &adapter.InitiateResult{
		AuthorizationURL: "https://checkout.example/" + req.Reference,
		AccessCode:       "ac_test",
		Reference:        req.Reference,
	}, nil
}

func (g *MockPaymentGateway) Verify(ctx context.Context, reference string) (*adapter.VerifyResult, error) {
	g.mu.Lock()
	g.verifyCalls++
	g.mu.Unlock()
	if g.VerifyFunc != nil {
		return g.VerifyFunc(ctx, reference)
	}
	return &adapter.VerifyResult{Outcome: adapter.OutcomeNotSuccessful, Reference: reference}, nil
}

func (g *MockPaymentGateway) VerifyCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifyCalls
}

// MockFlowMetrics counts domain flow observations.
type MockFlowMetrics struct {
	mu          sync.Mutex
	transitions map[string]int
	revenue     map[string]int64
	orphaned    int
	issued      map[string]int
	suppressed  int
}

var _ usecase.FlowMetrics = (*MockFlowMetrics)(nil)

func NewMockFlowMetrics() *MockFlowMetrics {
	return &MockFlowMetrics{
		transitions: make(map[string]int),
		revenue:     make(map[string]int64),
		issued:      make(map[string]int),
	}
}

func (m *MockFlowMetrics) PaymentTransition(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[status]++
}

func (m *MockFlowMetrics) PaymentRevenue(currency string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revenue[currency] += amount
}

func (m *MockFlowMetrics) OrphanedPayment() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orphaned++
}

func (m *MockFlowMetrics) KeyIssued(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued[source]++
}

func (m *MockFlowMetrics) KeyDuplicateSuppressed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppressed++
}

func (m *MockFlowMetrics) Transitions(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitions[status]
}

func (m *MockFlowMetrics) Issued(source string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issued[source]
}

func (m *MockFlowMetrics) Suppressed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suppressed
}
