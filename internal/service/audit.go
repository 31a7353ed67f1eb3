// audit.go — журнал аудита действий, изменяющих состояние.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/rbac"
	"github.com/bigkaa/goartstore/fileportal/internal/repository"
)

// AuditService — запись и чтение журнала аудита.
type AuditService struct {
	repo   repository.AuditRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditService создаёт сервис аудита.
func NewAuditService(repo repository.AuditRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger.With(slog.String("component", "audit")),
		now:    time.Now,
	}
}

// Record сохраняет запись аудита и дублирует её в лог.
// Ошибка записи в БД логируется и не прерывает операцию.
func (s *AuditService) Record(ctx context.Context, actor, action, target, outcome, detail string) {
	e := &model.AuditEntry{
		At:      s.now().UTC(),
		Actor:   actor,
		Action:  action,
		Target:  target,
		Outcome: outcome,
		Detail:  detail,
	}

	level := slog.LevelInfo
	if outcome != model.OutcomeSuccess {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "Аудит",
		slog.String("actor", actor),
		slog.String("action", action),
		slog.String("target", target),
		slog.String("outcome", outcome),
		slog.String("detail", detail),
	)

	// Запись не должна отменяться вместе с запросом
	if err := s.repo.Insert(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Error("Ошибка записи аудита",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}

// recordResult записывает исход операции по её ошибке.
func (s *AuditService) recordResult(ctx context.Context, p *rbac.Principal, action, target string, err error) {
	s.Record(ctx, actorOf(p), action, target, outcomeOf(err), errDetail(err))
}

// List возвращает журнал аудита (требует audit.view).
func (s *AuditService) List(
	ctx context.Context, p *rbac.Principal, filters model.AuditFilters, limit, offset int,
) ([]*model.AuditEntry, int, error) {
	if !p.Can(rbac.ActionAuditView) {
		return nil, 0, ErrForbidden
	}
	items, err := s.repo.List(ctx, filters, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение журнала аудита: %w", err)
	}
	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт записей аудита: %w", err)
	}
	return items, total, nil
}

// outcomeOf определяет исход действия по ошибке.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return model.OutcomeSuccess
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrTooManyAttempts):
		return model.OutcomeDenied
	default:
		return model.OutcomeFailed
	}
}

func actorOf(p *rbac.Principal) string {
	if p == nil {
		return "anonymous"
	}
	return p.Username
}
