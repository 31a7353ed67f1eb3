// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"

	"github.com/bigkaa/goartstore/fileportal/internal/repository"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт состояния или дублирующийся ресурс.
	ErrConflict = errors.New("конфликт")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrForbidden — недостаточно прав или запись вне странового scope.
	ErrForbidden = errors.New("доступ запрещён")
	// ErrInvalidCredentials — неверное имя пользователя или пароль.
	// Причина (нет пользователя, отключён, неверный пароль) не раскрывается.
	ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")
	// ErrUnauthorized — субъект не найден или деактивирован.
	ErrUnauthorized = errors.New("требуется аутентификация")
	// ErrInviteInvalid — код приглашения неизвестен, использован, отозван или истёк.
	ErrInviteInvalid = errors.New("код приглашения недействителен")
	// ErrTooManyAttempts — превышено число неудачных попыток входа.
	ErrTooManyAttempts = errors.New("слишком много неудачных попыток входа")
	// ErrTooLarge — файл превышает допустимый размер.
	ErrTooLarge = errors.New("файл превышает допустимый размер")
	// ErrStorage — ошибка файлового хранилища.
	ErrStorage = errors.New("ошибка файлового хранилища")
)

// mapRepoError переводит ошибки репозитория в ошибки сервиса.
// Прочие ошибки возвращаются без изменений.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, repository.ErrInviteInvalid):
		return ErrInviteInvalid
	default:
		return err
	}
}
