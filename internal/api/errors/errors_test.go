package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bigkaa/goartstore/fileportal/internal/service"
)

func TestFromService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"валидация", fmt.Errorf("%w: пустое имя", service.ErrValidation), http.StatusBadRequest, CodeValidationError},
		{"не найдено", service.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{"неверные учётные данные", service.ErrInvalidCredentials, http.StatusUnauthorized, CodeUnauthorized},
		{"нет субъекта", service.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
		{"запрещено", service.ErrForbidden, http.StatusForbidden, CodeForbidden},
		{"конфликт", fmt.Errorf("%w: переход", service.ErrConflict), http.StatusConflict, CodeConflict},
		{"приглашение", service.ErrInviteInvalid, http.StatusGone, CodeInviteInvalid},
		{"слишком большой", service.ErrTooLarge, http.StatusRequestEntityTooLarge, CodePayloadTooLarge},
		{"блокировка входа", service.ErrTooManyAttempts, http.StatusTooManyRequests, CodeTooManyRequests},
		{"хранилище", fmt.Errorf("%w: rename", service.ErrStorage), http.StatusInternalServerError, CodeStorageError},
		{"неизвестная", fmt.Errorf("сбой"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			FromService(w, logger, tt.err, "Ошибка операции")

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, хотели %d", w.Code, tt.wantStatus)
			}
			var body errorBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("тело ответа: %v", err)
			}
			if body.Error.Code != tt.wantCode {
				t.Errorf("code = %q, хотели %q", body.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestFromService_GenericCredentialsMessage(t *testing.T) {
	w := httptest.NewRecorder()
	FromService(w, slog.New(slog.NewTextHandler(io.Discard, nil)),
		fmt.Errorf("%w: пользователь alice не найден", service.ErrInvalidCredentials), "")

	var body errorBody
	_ = json.NewDecoder(w.Body).Decode(&body)
	if body.Error.Message != "Неверное имя пользователя или пароль" {
		t.Errorf("message = %q, ожидается общий текст", body.Error.Message)
	}
}
