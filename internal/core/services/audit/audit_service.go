package audit

import (
	"context"
	"log/slog"

	"github.com/zorenko/aircap/internal/core/domain"
	"github.com/zorenko/aircap/internal/core/ports"
)

// actorKey is the context key under which callers may set the acting
// operator name.
type actorKey struct{}

// WithActor returns a context carrying the operator name for subsequent
// audit entries.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Service records security-sensitive actions. Audit writes are best
// effort for callers: a persistence failure is surfaced as an error and
// logged, but must never abort the operation being audited.
type Service struct {
	repo   ports.AuditRepository
	logger *slog.Logger
}

var _ ports.AuditService = (*Service)(nil)

// NewService creates an audit service backed by the given repository.
func NewService(repo ports.AuditRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Log records one action. The actor is taken from the context when set
// via WithActor; the domain default applies otherwise.
func (s *Service) Log(ctx context.Context, action domain.AuditAction, target, details string) error {
	actor, _ := ctx.Value(actorKey{}).(string)
	entry, err := domain.NewAuditLog(actor, action, target, details)
	if err != nil {
		return err
	}
	if err := s.repo.SaveAuditLog(ctx, *entry); err != nil {
		s.logger.Error("audit write failed", "action", action, "target", target, "error", err)
		return err
	}
	return nil
}

// GetLogs retrieves historical audit records, newest first.
func (s *Service) GetLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	return s.repo.ListAuditLogs(ctx, limit)
}
