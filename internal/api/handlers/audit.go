// audit.go — обработчик /api/v1/audit.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/goartstore/fileportal/internal/api/errors"
	"github.com/bigkaa/goartstore/fileportal/internal/api/generated"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
)

// ListAudit — GET /api/v1/audit.
// Журнал от новых записей к старым. Доступ: audit.view.
func (h *APIHandler) ListAudit(w http.ResponseWriter, r *http.Request, params generated.ListAuditParams) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	limit, offset := paginationDefaults(params.Limit, params.Offset)

	entries, total, err := h.audit.List(r.Context(), p, model.AuditFilters{
		Actor:   params.Actor,
		Action:  params.Action,
		Target:  params.Target,
		Outcome: params.Outcome,
	}, limit, offset)
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка получения журнала аудита")
		return
	}

	items := make([]generated.AuditEntry, 0, len(entries))
	for _, e := range entries {
		items = append(items, mapAuditEntry(e))
	}

	writeJSON(w, http.StatusOK, generated.AuditListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}
