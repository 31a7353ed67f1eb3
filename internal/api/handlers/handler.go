// handler.go — основной обработчик API, реализующий generated.ServerInterface.
// Объединяет все доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	apierrors "github.com/bigkaa/goartstore/fileportal/internal/api/errors"
	"github.com/bigkaa/goartstore/fileportal/internal/api/generated"
	"github.com/bigkaa/goartstore/fileportal/internal/api/middleware"
	"github.com/bigkaa/goartstore/fileportal/internal/auth"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/rbac"
	"github.com/bigkaa/goartstore/fileportal/internal/service"
)

// Проверка соответствия контракту на этапе компиляции.
var _ generated.ServerInterface = (*APIHandler)(nil)

// AuthAPI — вход, выпуск токенов и саморегистрация (service.AuthService).
type AuthAPI interface {
	Login(ctx context.Context, username, password, remote string) (*model.User, error)
	IssueToken(ctx context.Context, username, password, remote string) (string, time.Time, error)
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
}

// UserAPI — управление учётными записями (service.UserService).
type UserAPI interface {
	List(ctx context.Context, p *rbac.Principal, filters model.UserFilters, limit, offset int) ([]*model.User, int, error)
	Get(ctx context.Context, p *rbac.Principal, id string) (*model.User, error)
	Me(ctx context.Context, p *rbac.Principal) (*model.User, error)
	Create(ctx context.Context, p *rbac.Principal, in service.CreateUserInput) (*model.User, error)
	Update(ctx context.Context, p *rbac.Principal, id string, upd model.UserUpdate) (*model.User, error)
	ResetPassword(ctx context.Context, p *rbac.Principal, id, password string) error
	Delete(ctx context.Context, p *rbac.Principal, id string) error
}

// InviteAPI — приглашения (service.InviteService).
type InviteAPI interface {
	Issue(ctx context.Context, p *rbac.Principal, in service.IssueInvitesInput) ([]*model.Invite, error)
	List(ctx context.Context, p *rbac.Principal, state string, limit, offset int) ([]*model.Invite, int, error)
	Revoke(ctx context.Context, p *rbac.Principal, code string) (*model.Invite, error)
	Now() time.Time
}

// FileAPI — файлы и их жизненный цикл (service.FileService).
type FileAPI interface {
	Upload(ctx context.Context, p *rbac.Principal, in service.UploadInput) (*model.FileRecord, error)
	List(ctx context.Context, p *rbac.Principal, in service.ListFilesInput) ([]service.FileItem, int, error)
	Get(ctx context.Context, p *rbac.Principal, id string) (*service.FileItem, error)
	Open(ctx context.Context, p *rbac.Principal, id string) (*model.FileRecord, *os.File, error)
	UpdateMeta(ctx context.Context, p *rbac.Principal, id string, upd service.MetaUpdate) (*model.FileRecord, error)
	SetReviewed(ctx context.Context, p *rbac.Principal, id string, reviewed bool) error
	Approve(ctx context.Context, p *rbac.Principal, id string) (*model.FileRecord, error)
	Unapprove(ctx context.Context, p *rbac.Principal, id string) (*model.FileRecord, error)
	Archive(ctx context.Context, p *rbac.Principal, id string) (*model.FileRecord, error)
	Restore(ctx context.Context, p *rbac.Principal, id string) (*model.FileRecord, error)
	Delete(ctx context.Context, p *rbac.Principal, id string) error
}

// AuditAPI — журнал аудита (service.AuditService).
type AuditAPI interface {
	List(ctx context.Context, p *rbac.Principal, filters model.AuditFilters, limit, offset int) ([]*model.AuditEntry, int, error)
}

// JWKSProvider — публичные ключи API-токенов (auth.TokenService).
type JWKSProvider interface {
	JWKS(ctx context.Context) (json.RawMessage, error)
}

// Services — зависимости APIHandler из сервисного слоя.
type Services struct {
	Auth    AuthAPI
	Users   UserAPI
	Invites InviteAPI
	Files   FileAPI
	Audit   AuditAPI
	// JWKS может быть nil, если API-токены отключены
	JWKS JWKSProvider
}

// APIHandler — основной обработчик API File Portal.
// Реализует generated.ServerInterface, делегируя запросы в сервисный слой.
type APIHandler struct {
	health        *HealthHandler
	auth          AuthAPI
	users         UserAPI
	invites       InviteAPI
	files         FileAPI
	audit         AuditAPI
	jwks          JWKSProvider
	sessions      *auth.SessionManager
	maxUploadSize int64
	logger        *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// maxUploadSize — лимит размера загружаемого файла в байтах.
func NewAPIHandler(
	health *HealthHandler,
	svc Services,
	sessions *auth.SessionManager,
	maxUploadSize int64,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:        health,
		auth:          svc.Auth,
		users:         svc.Users,
		invites:       svc.Invites,
		files:         svc.Files,
		audit:         svc.Audit,
		jwks:          svc.JWKS,
		sessions:      sessions,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON разбирает тело запроса. При ошибке пишет 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// requirePrincipal возвращает субъекта запроса или пишет 401.
func requirePrincipal(w http.ResponseWriter, r *http.Request) *rbac.Principal {
	p := middleware.PrincipalFromContext(r.Context())
	if p == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
	}
	return p
}

// paginationDefaults нормализует параметры пагинации.
// Возвращает корректные limit и offset.
func paginationDefaults(limit *int, offset *int) (int, int) {
	l := 100
	o := 0

	if limit != nil {
		l = *limit
		if l < 1 {
			l = 1
		}
		if l > 1000 {
			l = 1000
		}
	}

	if offset != nil {
		o = *offset
		if o < 0 {
			o = 0
		}
	}

	return l, o
}

// remoteHost — адрес клиента без порта (для журнала аудита и блокировок входа).
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
