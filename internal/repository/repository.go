// Пакет repository — слой доступа к данным PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — запись уже существует")
	// ErrInviteInvalid — приглашение не найдено, использовано, отозвано или истекло.
	ErrInviteInvalid = errors.New("приглашение недействительно")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
// Begin внутри pgx.Tx открывает savepoint.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// runInTx выполняет fn в транзакции (в pgx.Tx — в savepoint).
// При ошибке fn транзакция откатывается, при успехе коммитится.
func runInTx(ctx context.Context, db DBTX, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// isNoRows проверяет отсутствие строк в результате.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// whereBuilder накапливает условия WHERE с нумерацией аргументов.
type whereBuilder struct {
	conditions []string
	args       []any
	next       int
}

func newWhere(startArg int) *whereBuilder {
	return &whereBuilder{next: startArg}
}

// add добавляет условие; %d в cond заменяется номером аргумента.
func (w *whereBuilder) add(cond string, arg any) {
	w.conditions = append(w.conditions, fmt.Sprintf(cond, w.next))
	w.args = append(w.args, arg)
	w.next++
}

// raw добавляет условие без аргумента.
func (w *whereBuilder) raw(cond string) {
	w.conditions = append(w.conditions, cond)
}

func (w *whereBuilder) sql() string {
	if len(w.conditions) == 0 {
		return ""
	}
	out := "WHERE " + w.conditions[0]
	for _, c := range w.conditions[1:] {
		out += " AND " + c
	}
	return out
}
