package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
)

// InviteRepository — интерфейс для таблицы invites.
type InviteRepository interface {
	// CreateBatch создаёт пачку приглашений в одной транзакции.
	// Дубликат кода — ErrConflict, ни одно приглашение не создаётся.
	CreateBatch(ctx context.Context, invites []*model.Invite) error
	Get(ctx context.Context, code string) (*model.Invite, error)
	// List возвращает приглашения в состоянии state ("" — все) на момент now.
	List(ctx context.Context, state string, now time.Time, limit, offset int) ([]*model.Invite, error)
	Count(ctx context.Context, state string, now time.Time) (int, error)
	// Revoke отзывает неиспользованное приглашение.
	// Использованное — ErrConflict.
	Revoke(ctx context.Context, code string, now time.Time) (*model.Invite, error)
	// HasOpen сообщает, есть ли приглашения, пригодные для регистрации.
	HasOpen(ctx context.Context, now time.Time) (bool, error)
}

// inviteRepo — реализация InviteRepository.
type inviteRepo struct {
	db DBTX
}

// NewInviteRepository создаёт репозиторий приглашений.
func NewInviteRepository(db DBTX) InviteRepository {
	return &inviteRepo{db: db}
}

const inviteColumns = `code, country, expires_at, created_by, created_at, used_by, used_at, revoked_at`

func scanInvite(row pgx.Row) (*model.Invite, error) {
	inv := &model.Invite{}
	if err := row.Scan(&inv.Code, &inv.Country, &inv.ExpiresAt, &inv.CreatedBy,
		&inv.CreatedAt, &inv.UsedBy, &inv.UsedAt, &inv.RevokedAt); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *inviteRepo) CreateBatch(ctx context.Context, invites []*model.Invite) error {
	return runInTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO invites (code, country, expires_at, created_by)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at`
		for _, inv := range invites {
			err := tx.QueryRow(ctx, query, inv.Code, inv.Country, inv.ExpiresAt, inv.CreatedBy).
				Scan(&inv.CreatedAt)
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: приглашение %q уже существует", ErrConflict, inv.Code)
				}
				return fmt.Errorf("ошибка создания приглашения: %w", err)
			}
		}
		return nil
	})
}

func (r *inviteRepo) Get(ctx context.Context, code string) (*model.Invite, error) {
	inv, err := scanInvite(r.db.QueryRow(ctx, `SELECT `+inviteColumns+` FROM invites WHERE code = $1`, code))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения приглашения: %w", err)
	}
	return inv, nil
}

// buildInviteWhere переводит вычисляемое состояние в условие WHERE.
func buildInviteWhere(state string, now time.Time) *whereBuilder {
	w := newWhere(1)
	switch state {
	case model.InviteUsed:
		w.raw("used_at IS NOT NULL")
	case model.InviteRevoked:
		w.raw("used_at IS NULL AND revoked_at IS NOT NULL")
	case model.InviteExpired:
		w.raw("used_at IS NULL AND revoked_at IS NULL")
		w.add("expires_at IS NOT NULL AND expires_at <= $%d", now)
	case model.InviteOpen:
		w.raw("used_at IS NULL AND revoked_at IS NULL")
		w.add("(expires_at IS NULL OR expires_at > $%d)", now)
	}
	return w
}

func (r *inviteRepo) List(ctx context.Context, state string, now time.Time, limit, offset int) ([]*model.Invite, error) {
	w := buildInviteWhere(state, now)
	query := fmt.Sprintf(`SELECT %s FROM invites %s ORDER BY created_at DESC, code LIMIT $%d OFFSET $%d`,
		inviteColumns, w.sql(), w.next, w.next+1)
	args := append(w.args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка приглашений: %w", err)
	}
	defer rows.Close()

	var result []*model.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования приглашения: %w", err)
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func (r *inviteRepo) Count(ctx context.Context, state string, now time.Time) (int, error) {
	w := buildInviteWhere(state, now)
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM invites `+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта приглашений: %w", err)
	}
	return count, nil
}

func (r *inviteRepo) HasOpen(ctx context.Context, now time.Time) (bool, error) {
	w := buildInviteWhere(model.InviteOpen, now)
	var ok bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invites `+w.sql()+`)`, w.args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("ошибка проверки открытых приглашений: %w", err)
	}
	return ok, nil
}

func (r *inviteRepo) Revoke(ctx context.Context, code string, now time.Time) (*model.Invite, error) {
	query := `
		UPDATE invites SET revoked_at = COALESCE(revoked_at, $2)
		WHERE code = $1 AND used_at IS NULL
		RETURNING ` + inviteColumns

	inv, err := scanInvite(r.db.QueryRow(ctx, query, code, now))
	if err == nil {
		return inv, nil
	}
	if !isNoRows(err) {
		return nil, fmt.Errorf("ошибка отзыва приглашения: %w", err)
	}

	// Строк нет: либо кода нет, либо он уже использован
	if _, getErr := r.Get(ctx, code); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("%w: приглашение уже использовано", ErrConflict)
}
