package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/rbac"
)

// UserGuard проверяет изменение пользователя при заблокированном наборе
// активных super. activeSupers — количество активных super до изменения.
type UserGuard func(u *model.User, activeSupers int) error

// UserRepository — интерфейс CRUD для таблицы users.
type UserRepository interface {
	// Create создаёт пользователя. Дубликат username — ErrConflict.
	Create(ctx context.Context, u *model.User) error
	// CreateWithInvite атомарно погашает приглашение и создаёт пользователя.
	// redeem вычисляет роль и страны по приглашению до вставки.
	CreateWithInvite(ctx context.Context, u *model.User, code string, now time.Time,
		redeem func(inv *model.Invite, u *model.User) error) (*model.Invite, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context, filters model.UserFilters, limit, offset int) ([]*model.User, error)
	Count(ctx context.Context, filters model.UserFilters) (int, error)
	// Mutate блокирует активных super и целевую запись, вызывает guard
	// и фиксирует изменения роли, стран, активности и e-mail.
	Mutate(ctx context.Context, id string, guard UserGuard) (*model.User, error)
	// SetPassword меняет хэш пароля.
	SetPassword(ctx context.Context, id, hash string) error
	// DeleteGuarded удаляет пользователя после проверки guard.
	DeleteGuarded(ctx context.Context, id string, guard UserGuard) (*model.User, error)
	// CountActiveSupers возвращает число активных super.
	CountActiveSupers(ctx context.Context) (int, error)
}

// userRepo — реализация UserRepository.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, username, email, password_hash, role, countries, active, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.Countries, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if len(u.Countries) == 0 {
		u.Countries = nil
	}
	return u, nil
}

func countriesArg(c []string) []string {
	if c == nil {
		return []string{}
	}
	return c
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	return insertUser(ctx, r.db, u)
}

func insertUser(ctx context.Context, db DBTX, u *model.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, role, countries, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := db.QueryRow(ctx, query,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, countriesArg(u.Countries), u.Active,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: пользователь %q уже существует", ErrConflict, u.Username)
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) CreateWithInvite(ctx context.Context, u *model.User, code string, now time.Time,
	redeem func(inv *model.Invite, u *model.User) error,
) (*model.Invite, error) {
	var inv *model.Invite
	err := runInTx(ctx, r.db, func(tx pgx.Tx) error {
		// Условный UPDATE — одновременное погашение одного кода невозможно
		query := `
			UPDATE invites
			SET used_by = $2, used_at = $3
			WHERE code = $1 AND used_at IS NULL AND revoked_at IS NULL
				AND (expires_at IS NULL OR expires_at > $3)
			RETURNING ` + inviteColumns

		var err error
		inv, err = scanInvite(tx.QueryRow(ctx, query, code, u.Username, now))
		if err != nil {
			if isNoRows(err) {
				return ErrInviteInvalid
			}
			return fmt.Errorf("ошибка погашения приглашения: %w", err)
		}
		if redeem != nil {
			if err := redeem(inv, u); err != nil {
				return err
			}
		}
		return insertUser(ctx, tx, u)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

// buildUserWhere строит WHERE-условие для фильтрации пользователей.
func buildUserWhere(filters model.UserFilters, startArg int) *whereBuilder {
	w := newWhere(startArg)
	if filters.Role != nil {
		w.add("role = $%d", *filters.Role)
	}
	if filters.Active != nil {
		w.add("active = $%d", *filters.Active)
	}
	return w
}

func (r *userRepo) List(ctx context.Context, filters model.UserFilters, limit, offset int) ([]*model.User, error) {
	w := buildUserWhere(filters, 1)
	query := fmt.Sprintf(`SELECT %s FROM users %s ORDER BY username LIMIT $%d OFFSET $%d`,
		userColumns, w.sql(), w.next, w.next+1)
	args := append(w.args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	var result []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *userRepo) Count(ctx context.Context, filters model.UserFilters) (int, error) {
	w := buildUserWhere(filters, 1)
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users `+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}
	return count, nil
}

// lockSupers блокирует строки активных super и возвращает их количество.
func lockSupers(ctx context.Context, tx pgx.Tx) (int, error) {
	rows, err := tx.Query(ctx,
		`SELECT id FROM users WHERE role = $1 AND active ORDER BY id FOR UPDATE`, rbac.RoleSuper)
	if err != nil {
		return 0, fmt.Errorf("ошибка блокировки super: %w", err)
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		n++
	}
	return n, rows.Err()
}

func lockUser(ctx context.Context, tx pgx.Tx, id string) (*model.User, error) {
	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) Mutate(ctx context.Context, id string, guard UserGuard) (*model.User, error) {
	var result *model.User
	err := runInTx(ctx, r.db, func(tx pgx.Tx) error {
		supers, err := lockSupers(ctx, tx)
		if err != nil {
			return err
		}
		u, err := lockUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := guard(u, supers); err != nil {
			return err
		}

		query := `
			UPDATE users
			SET role = $2, countries = $3, active = $4, email = $5, updated_at = now()
			WHERE id = $1
			RETURNING updated_at`
		if err := tx.QueryRow(ctx, query, u.ID, u.Role, countriesArg(u.Countries), u.Active, u.Email).
			Scan(&u.UpdatedAt); err != nil {
			return fmt.Errorf("ошибка обновления пользователя: %w", err)
		}
		result = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *userRepo) SetPassword(ctx context.Context, id, hash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("ошибка смены пароля: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) DeleteGuarded(ctx context.Context, id string, guard UserGuard) (*model.User, error) {
	var deleted *model.User
	err := runInTx(ctx, r.db, func(tx pgx.Tx) error {
		supers, err := lockSupers(ctx, tx)
		if err != nil {
			return err
		}
		u, err := lockUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := guard(u, supers); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
			return fmt.Errorf("ошибка удаления пользователя: %w", err)
		}
		deleted = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *userRepo) CountActiveSupers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role = $1 AND active`, rbac.RoleSuper).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта super: %w", err)
	}
	return n, nil
}
