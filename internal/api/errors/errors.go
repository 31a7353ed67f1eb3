// Пакет errors — конструкторы стандартных ошибок API File Portal.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/bigkaa/goartstore/fileportal/internal/service"
)

// Коды ошибок, определённые в OpenAPI контракте.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeConflict        = "CONFLICT"
	CodeInviteInvalid   = "INVITE_INVALID"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeStorageError    = "STORAGE_ERROR"
	CodeInternalError   = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden — 403 недостаточно прав.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// Conflict — 409 конфликт состояния.
func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeConflict, message)
}

// InviteInvalid — 410 код приглашения неизвестен, использован, отозван или истёк.
func InviteInvalid(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusGone, CodeInviteInvalid, message)
}

// PayloadTooLarge — 413 превышен лимит размера загрузки.
func PayloadTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, message)
}

// TooManyRequests — 429 вход временно заблокирован.
func TooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, CodeTooManyRequests, message)
}

// StorageError — 500 ошибка файлового хранилища.
func StorageError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeStorageError, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}

// FromService записывает ответ по sentinel-ошибке сервисного слоя.
// Неизвестные ошибки логируются и скрываются за INTERNAL_ERROR.
// Для неверных учётных данных текст всегда общий.
func FromService(w http.ResponseWriter, logger *slog.Logger, err error, internalMsg string) {
	switch {
	case stderrors.Is(err, service.ErrValidation):
		ValidationError(w, err.Error())
	case stderrors.Is(err, service.ErrNotFound):
		NotFound(w, "Ресурс не найден")
	case stderrors.Is(err, service.ErrInvalidCredentials):
		Unauthorized(w, "Неверное имя пользователя или пароль")
	case stderrors.Is(err, service.ErrUnauthorized):
		Unauthorized(w, "Требуется аутентификация")
	case stderrors.Is(err, service.ErrForbidden):
		Forbidden(w, err.Error())
	case stderrors.Is(err, service.ErrConflict):
		Conflict(w, err.Error())
	case stderrors.Is(err, service.ErrInviteInvalid):
		InviteInvalid(w, "Код приглашения недействителен")
	case stderrors.Is(err, service.ErrTooLarge):
		PayloadTooLarge(w, err.Error())
	case stderrors.Is(err, service.ErrTooManyAttempts):
		TooManyRequests(w, "Слишком много неудачных попыток входа, повторите позже")
	case stderrors.Is(err, service.ErrStorage):
		logger.Error(internalMsg, slog.String("error", err.Error()))
		StorageError(w, internalMsg)
	default:
		logger.Error(internalMsg, slog.String("error", err.Error()))
		InternalError(w, internalMsg)
	}
}
