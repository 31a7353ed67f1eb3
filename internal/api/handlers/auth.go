// auth.go — обработчики /api/v1/auth endpoints.
// Вход по паролю (cookie сессии), выход, саморегистрация по приглашению,
// выпуск API-токена и текущий пользователь.
package handlers

import (
	"net/http"
	"time"

	apierrors "github.com/bigkaa/goartstore/fileportal/internal/api/errors"
	"github.com/bigkaa/goartstore/fileportal/internal/api/generated"
	"github.com/bigkaa/goartstore/fileportal/internal/service"
)

// Login — POST /api/v1/auth/login.
// Проверяет пароль и устанавливает зашифрованный cookie сессии.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req generated.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.auth.Login(r.Context(), req.Username, req.Password, remoteHost(r))
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка входа")
		return
	}

	session := h.sessions.NewSession(u.ID, u.Username, time.Now())
	if err := h.sessions.SetSessionCookie(w, session); err != nil {
		h.logger.Error("Ошибка установки cookie сессии", "username", u.Username, "error", err)
		apierrors.InternalError(w, "Ошибка создания сессии")
		return
	}

	writeJSON(w, http.StatusOK, mapUser(u))
}

// Logout — POST /api/v1/auth/logout.
// Удаляет cookie сессии. Работает и без активной сессии.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Register — POST /api/v1/auth/register.
// Создаёт пользователя по коду приглашения. Сессия не открывается.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req generated.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := service.RegisterInput{
		InviteCode: req.InviteCode,
		Username:   req.Username,
		Password:   req.Password,
		Confirm:    req.PasswordConfirm,
	}
	if req.Email != nil {
		email := string(*req.Email)
		in.Email = &email
	}

	u, err := h.auth.Register(r.Context(), in)
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка регистрации")
		return
	}

	writeJSON(w, http.StatusCreated, mapUser(u))
}

// IssueToken — POST /api/v1/auth/token.
// Выпускает API-токен (JWT RS256) по имени и паролю.
func (h *APIHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req generated.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, expiresAt, err := h.auth.IssueToken(r.Context(), req.Username, req.Password, remoteHost(r))
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка выпуска токена")
		return
	}

	writeJSON(w, http.StatusOK, generated.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	})
}

// GetCurrentUser — GET /api/v1/auth/me.
func (h *APIHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	u, err := h.users.Me(r.Context(), p)
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка получения пользователя")
		return
	}

	writeJSON(w, http.StatusOK, mapUser(u))
}
