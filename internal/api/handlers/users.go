// users.go — обработчики /api/v1/users endpoints.
// Управление учётными записями. Доступ: super (проверяется в сервисе).
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/goartstore/fileportal/internal/api/errors"
	"github.com/bigkaa/goartstore/fileportal/internal/api/generated"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
	"github.com/bigkaa/goartstore/fileportal/internal/service"
)

// ListUsers — GET /api/v1/users.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request, params generated.ListUsersParams) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	limit, offset := paginationDefaults(params.Limit, params.Offset)

	users, total, err := h.users.List(r.Context(), p, model.UserFilters{
		Role:   params.Role,
		Active: params.Active,
	}, limit, offset)
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка получения списка пользователей")
		return
	}

	writeJSON(w, http.StatusOK, generated.UserListResponse{
		Items:   mapUsers(users),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

// CreateUser — POST /api/v1/users.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	var req generated.UserCreate
	if !decodeJSON(w, r, &req) {
		return
	}

	in := service.CreateUserInput{
		Username:  req.Username,
		Password:  req.Password,
		Role:      req.Role,
		Countries: deref(req.Countries),
		Active:    req.Active,
	}
	if req.Email != nil {
		email := string(*req.Email)
		in.Email = &email
	}

	u, err := h.users.Create(r.Context(), p, in)
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка создания пользователя")
		return
	}

	writeJSON(w, http.StatusCreated, mapUser(u))
}

// GetUser — GET /api/v1/users/{user_id}.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request, userId generated.UserId) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	u, err := h.users.Get(r.Context(), p, userId.String())
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка получения пользователя")
		return
	}

	writeJSON(w, http.StatusOK, mapUser(u))
}

// UpdateUser — PATCH /api/v1/users/{user_id}.
// Изменяет роль, страны, активность и e-mail.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request, userId generated.UserId) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	var req generated.UserUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.Update(r.Context(), p, userId.String(), model.UserUpdate{
		Role:      req.Role,
		Countries: req.Countries,
		Active:    req.Active,
		Email:     req.Email,
	})
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка обновления пользователя")
		return
	}

	writeJSON(w, http.StatusOK, mapUser(u))
}

// DeleteUser — DELETE /api/v1/users/{user_id}.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request, userId generated.UserId) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	if err := h.users.Delete(r.Context(), p, userId.String()); err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка удаления пользователя")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResetUserPassword — POST /api/v1/users/{user_id}/password.
func (h *APIHandler) ResetUserPassword(w http.ResponseWriter, r *http.Request, userId generated.UserId) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	var req generated.PasswordReset
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.users.ResetPassword(r.Context(), p, userId.String(), req.Password); err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка смены пароля")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
