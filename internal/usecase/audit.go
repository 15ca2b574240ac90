package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"saas-api-console/internal/domain/model"
	"saas-api-console/internal/domain/ports/repository"
)

type requestMetaKey struct{}

// RequestMeta carries client attribution captured by the HTTP layer.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// WithRequestMeta attaches client attribution to the context so audit entries
// written deep in the flow can record it.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func requestMetaFrom(ctx context.Context) RequestMeta {
	if m, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return m
	}
	return RequestMeta{}
}

// AuditRecorder writes audit entries best-effort: a failed write is recorded
// to the operational log and swallowed, never aborting the calling flow.
type AuditRecorder struct {
	repo repository.AuditLogRepository
	log  *zerolog.Logger
}

func NewAuditRecorder(repo repository.AuditLogRepository, logger *zerolog.Logger) *AuditRecorder {
	return &AuditRecorder{repo: repo, log: logger}
}

func (a *AuditRecorder) Record(ctx context.Context, userID, action, resourceType, resourceID string, details map[string]any) {
	if a == nil || a.repo == nil {
		return
	}
	meta := requestMetaFrom(ctx)
	e := &model.AuditLog{
		ID:           uuid.NewString(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		CreatedAt:    time.Now(),
	}
	if err := a.repo.Insert(ctx, nil, e); err != nil {
		a.log.Error().Err(err).Str("action", action).Str("user_id", userID).Msg("audit write failed")
	}
}

// History returns the user's most recent audit entries.
func (a *AuditRecorder) History(ctx context.Context, userID string, limit int) ([]*model.AuditLog, error) {
	return a.repo.ListByUser(ctx, nil, userID, limit)
}
