package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"saas-api-console/internal/domain"
	"saas-api-console/internal/domain/model"
	"saas-api-console/internal/domain/ports/repository"
)

// ResolveQuery is the tagged set of candidate identifiers a verification
// attempt carries. PaymentIDHint is the internal id echoed back through the
// gateway's metadata; RequestReference is what the caller supplied;
// GatewayReference is the reference as the gateway itself reports it.
type ResolveQuery struct {
	PaymentIDHint    string
	RequestReference string
	GatewayReference string
	// GatewaySuccess enables the narrower success-only retry, guarding
	// against a race where the broad search ran before a concurrent writer
	// committed its success transition.
	GatewaySuccess bool
}

// HasIDHint reports whether the query carries a non-empty internal-id hint.
// A present-but-malformed hint still counts: the record is expected to exist
// and the caller must not fall back to fabrication.
func (q ResolveQuery) HasIDHint() bool { return q.PaymentIDHint != "" }

func (q ResolveQuery) references() []string {
	refs := make([]string, 0, 2)
	if q.GatewayReference != "" {
		refs = append(refs, q.GatewayReference)
	}
	if q.RequestReference != "" && q.RequestReference != q.GatewayReference {
		refs = append(refs, q.RequestReference)
	}
	return refs
}

// ResolvePayment finds at most one existing payment for the user, applying a
// strict priority order:
//
//  1. by internal id, when the hint is a well-formed UUID. The id is the only
//     identifier guaranteed unique and stable end-to-end, so it always wins
//     over reference-string matching;
//  2. by reference equality against the persisted transaction reference or the
//     gateway-assigned reference in the verification metadata;
//  3. when the gateway reports success, the same reference search restricted
//     to status = success.
//
// Returns domain.ErrNotFound when no step matches; the caller decides the
// fallback behavior.
func ResolvePayment(ctx context.Context, payments repository.PaymentRepository, userID string, q ResolveQuery) (*model.Payment, error) {
	if _, err := uuid.Parse(q.PaymentIDHint); err == nil {
		p, err := payments.FindByUserAndID(ctx, nil, userID, q.PaymentIDHint)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	refs := q.references()
	if len(refs) == 0 {
		return nil, domain.ErrNotFound
	}

	p, err := payments.FindByUserAndReferences(ctx, nil, userID, refs, false)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if q.GatewaySuccess {
		return payments.FindByUserAndReferences(ctx, nil, userID, refs, true)
	}
	return nil, domain.ErrNotFound
}
