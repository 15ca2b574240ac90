package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"saas-api-console/internal/domain"
	"saas-api-console/internal/domain/ports/repository"
	"saas-api-console/internal/infra/redis"
	"saas-api-console/internal/usecase"
)

const reconcileLockKey = "lock:payment_reconciler"

// PaymentReconciler periodically scans for stale pending payments and re-runs
// verification for them. This covers cases where the client abandoned the
// verify polling, the browser crashed after checkout, or the process died
// mid-settlement.
type PaymentReconciler struct {
	uc         usecase.PaymentUseCase
	payments   repository.PaymentRepository
	locker     redis.Locker
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to retry
	log        *zerolog.Logger
}

func NewPaymentReconciler(uc usecase.PaymentUseCase, payments repository.PaymentRepository, locker redis.Locker, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &PaymentReconciler{
		uc:         uc,
		payments:   payments,
		locker:     locker,
		interval:   interval,
		staleAfter: staleAfter,
		log:        logger,
	}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, reconcileLockKey, w.interval)
		if err != nil {
			// another replica holds the sweep
			return
		}
		defer w.locker.Unlock(ctx, reconcileLockKey, token)
	}

	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingOlderThan(ctx, nil, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("reconciler: list pending failed")
		return
	}
	for _, p := range pending {
		if p.TransactionReference == "" {
			continue
		}
		result, err := w.uc.Verify(ctx, p.UserID, p.TransactionReference)
		if err != nil {
			if errors.Is(err, domain.ErrGatewayUnavailable) {
				// gateway is down, the rest of the batch will fare no better
				w.log.Warn().Err(err).Msg("reconciler: gateway unavailable, stopping sweep")
				return
			}
			w.log.Error().Err(err).Str("payment_id", p.ID).Str("reference", p.TransactionReference).Msg("reconciler: verify failed")
			continue
		}
		w.log.Info().Str("payment_id", p.ID).Str("status", result.Status).Msg("reconciler: payment reconciled")
	}
}
