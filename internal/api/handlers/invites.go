// invites.go — обработчики /api/v1/invites endpoints.
// Выпуск, список и отзыв кодов приглашения.
package handlers

import (
	"net/http"
	"time"

	apierrors "github.com/bigkaa/goartstore/fileportal/internal/api/errors"
	"github.com/bigkaa/goartstore/fileportal/internal/api/generated"
	"github.com/bigkaa/goartstore/fileportal/internal/service"
)

// IssueInvites — POST /api/v1/invites.
// ttl_hours = 0 — бессрочное приглашение, отсутствие — срок по умолчанию.
func (h *APIHandler) IssueInvites(w http.ResponseWriter, r *http.Request) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	var req generated.InviteIssueRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := service.IssueInvitesInput{
		Count:   deref(req.Count),
		Length:  deref(req.Length),
		Country: req.Country,
		Code:    req.Code,
	}
	if req.TtlHours != nil {
		if *req.TtlHours < 0 {
			apierrors.ValidationError(w, "ttl_hours не может быть отрицательным")
			return
		}
		ttl := time.Duration(*req.TtlHours) * time.Hour
		in.TTL = &ttl
	}

	invites, err := h.invites.Issue(r.Context(), p, in)
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка выпуска приглашений")
		return
	}

	now := h.invites.Now()
	items := make([]generated.Invite, 0, len(invites))
	for _, inv := range invites {
		items = append(items, mapInvite(inv, inv.State(now)))
	}

	writeJSON(w, http.StatusCreated, generated.InviteIssueResponse{Items: items})
}

// ListInvites — GET /api/v1/invites.
func (h *APIHandler) ListInvites(w http.ResponseWriter, r *http.Request, params generated.ListInvitesParams) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	limit, offset := paginationDefaults(params.Limit, params.Offset)

	invites, total, err := h.invites.List(r.Context(), p, deref(params.State), limit, offset)
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка получения приглашений")
		return
	}

	now := h.invites.Now()
	items := make([]generated.Invite, 0, len(invites))
	for _, inv := range invites {
		items = append(items, mapInvite(inv, inv.State(now)))
	}

	writeJSON(w, http.StatusOK, generated.InviteListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

// RevokeInvite — DELETE /api/v1/invites/{code}.
// Использованное приглашение отозвать нельзя (409).
func (h *APIHandler) RevokeInvite(w http.ResponseWriter, r *http.Request, code generated.InviteCode) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	inv, err := h.invites.Revoke(r.Context(), p, code)
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка отзыва приглашения")
		return
	}

	writeJSON(w, http.StatusOK, mapInvite(inv, inv.State(h.invites.Now())))
}
