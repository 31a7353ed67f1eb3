package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
)

// AuditRepository — журнал аудита (только добавление и чтение).
type AuditRepository interface {
	Insert(ctx context.Context, e *model.AuditEntry) error
	// List возвращает записи от новых к старым.
	List(ctx context.Context, filters model.AuditFilters, limit, offset int) ([]*model.AuditEntry, error)
	Count(ctx context.Context, filters model.AuditFilters) (int, error)
}

// auditRepo — реализация AuditRepository.
type auditRepo struct {
	db DBTX
}

// NewAuditRepository создаёт репозиторий журнала аудита.
func NewAuditRepository(db DBTX) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Insert(ctx context.Context, e *model.AuditEntry) error {
	query := `
		INSERT INTO audit_log (at, actor, action, target, outcome, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRow(ctx, query, e.At, e.Actor, e.Action, e.Target, e.Outcome, e.Detail).
		Scan(&e.ID); err != nil {
		return fmt.Errorf("ошибка записи аудита: %w", err)
	}
	return nil
}

func buildAuditWhere(filters model.AuditFilters) *whereBuilder {
	w := newWhere(1)
	if filters.Actor != nil {
		w.add("actor = $%d", *filters.Actor)
	}
	if filters.Action != nil {
		w.add("action = $%d", *filters.Action)
	}
	if filters.Target != nil {
		w.add("target = $%d", *filters.Target)
	}
	if filters.Outcome != nil {
		w.add("outcome = $%d", *filters.Outcome)
	}
	return w
}

func (r *auditRepo) List(ctx context.Context, filters model.AuditFilters, limit, offset int) ([]*model.AuditEntry, error) {
	w := buildAuditWhere(filters)
	query := fmt.Sprintf(`SELECT id, at, actor, action, target, outcome, detail
		FROM audit_log %s ORDER BY at DESC, id DESC LIMIT $%d OFFSET $%d`,
		w.sql(), w.next, w.next+1)
	args := append(w.args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала аудита: %w", err)
	}
	defer rows.Close()

	var result []*model.AuditEntry
	for rows.Next() {
		e := &model.AuditEntry{}
		if err := rows.Scan(&e.ID, &e.At, &e.Actor, &e.Action, &e.Target, &e.Outcome, &e.Detail); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи аудита: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *auditRepo) Count(ctx context.Context, filters model.AuditFilters) (int, error) {
	w := buildAuditWhere(filters)
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log `+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта записей аудита: %w", err)
	}
	return count, nil
}
