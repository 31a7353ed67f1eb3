// system.go — публичные ключи API-токенов и OpenAPI контракт.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/goartstore/fileportal/internal/api/errors"
	"github.com/bigkaa/goartstore/fileportal/internal/api/openapi"
)

// GetJWKS — GET /.well-known/jwks.json.
// Публичный ключ для проверки API-токенов внешними клиентами.
func (h *APIHandler) GetJWKS(w http.ResponseWriter, r *http.Request) {
	if h.jwks == nil {
		apierrors.NotFound(w, "API-токены отключены")
		return
	}

	raw, err := h.jwks.JWKS(r.Context())
	if err != nil {
		h.logger.Error("Ошибка формирования JWKS", "error", err)
		apierrors.InternalError(w, "Ошибка формирования JWKS")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// GetOpenAPISpec — GET /api/v1/openapi.yaml.
func (h *APIHandler) GetOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapi.Spec())
}
