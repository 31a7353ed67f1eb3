// auth.go — middleware аутентификации File Portal.
// Субъект определяется по Bearer-токену (API) или зашифрованному
// cookie сессии (браузер) и пересобирается из БД на каждый запрос.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/goartstore/fileportal/internal/api/errors"
	"github.com/bigkaa/goartstore/fileportal/internal/auth"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/rbac"
	"github.com/bigkaa/goartstore/fileportal/internal/service"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyPrincipal — аутентифицированный субъект в контексте запроса.
	ContextKeyPrincipal contextKey = "principal"
	// contextKeyHolder — ячейка, через которую RequestLogger видит субъекта.
	contextKeyHolder contextKey = "principal_holder"
)

// principalHolder передаёт имя субъекта наружу, в RequestLogger.
type principalHolder struct {
	username string
}

func withPrincipalHolder(ctx context.Context, h *principalHolder) context.Context {
	return context.WithValue(ctx, contextKeyHolder, h)
}

// PrincipalResolver восстанавливает субъекта по ID из сессии или по API-токену.
// Реализуется service.AuthService.
type PrincipalResolver interface {
	Principal(ctx context.Context, userID string) (*rbac.Principal, error)
	VerifyToken(ctx context.Context, token string) (*rbac.Principal, error)
}

// Authenticator — middleware аутентификации.
type Authenticator struct {
	sessions *auth.SessionManager
	resolver PrincipalResolver
	logger   *slog.Logger
}

// NewAuthenticator создаёт middleware аутентификации.
func NewAuthenticator(sessions *auth.SessionManager, resolver PrincipalResolver, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		sessions: sessions,
		resolver: resolver,
		logger:   logger.With(slog.String("component", "auth_middleware")),
	}
}

// Middleware помещает субъекта в контекст, если запрос аутентифицирован.
// Анонимный запрос пропускается дальше: обработчики публичных операций
// (вход, регистрация) работают без субъекта, остальные отвечают 401.
// Невалидный Bearer-токен — 401 сразу. Невалидная или истёкшая сессия
// удаляется, запрос продолжается как анонимный. Сбой при загрузке
// субъекта (БД недоступна) — 500, cookie сохраняется.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if header := r.Header.Get("Authorization"); header != "" {
				parts := strings.SplitN(header, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
					apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
					return
				}
				p, err := a.resolver.VerifyToken(r.Context(), parts[1])
				if err != nil && !errors.Is(err, service.ErrUnauthorized) {
					a.internalError(w, r, err)
					return
				}
				if err != nil {
					a.logger.Debug("API-токен отклонён",
						slog.String("error", err.Error()),
						slog.String("remote_addr", r.RemoteAddr),
					)
					apierrors.Unauthorized(w, "Невалидный или просроченный токен")
					return
				}
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
				return
			}

			session, err := a.sessions.GetSessionFromRequest(r)
			if err != nil {
				if !errors.Is(err, auth.ErrSessionExpired) {
					a.logger.Debug("Невалидный cookie сессии",
						slog.String("error", err.Error()),
						slog.String("remote_addr", r.RemoteAddr),
					)
				}
				a.sessions.ClearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			p, err := a.resolver.Principal(r.Context(), session.UserID)
			if err != nil && !errors.Is(err, service.ErrUnauthorized) {
				a.internalError(w, r, err)
				return
			}
			if err != nil {
				// Пользователь удалён или деактивирован после входа
				a.logger.Info("Сессия отклонена",
					slog.String("user_id", session.UserID),
					slog.String("error", err.Error()),
				)
				a.sessions.ClearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func (a *Authenticator) internalError(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.Error("Ошибка загрузки субъекта",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	apierrors.InternalError(w, "Внутренняя ошибка сервера")
}

// --- Context helpers ---

// WithPrincipal возвращает контекст с субъектом.
func WithPrincipal(ctx context.Context, p *rbac.Principal) context.Context {
	if h, ok := ctx.Value(contextKeyHolder).(*principalHolder); ok && p != nil {
		h.username = p.Username
	}
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}

// PrincipalFromContext извлекает субъекта из контекста запроса.
// Возвращает nil для анонимного запроса.
func PrincipalFromContext(ctx context.Context) *rbac.Principal {
	p, _ := ctx.Value(ContextKeyPrincipal).(*rbac.Principal)
	return p
}
