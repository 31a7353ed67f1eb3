// Пакет service — бизнес-логика File Portal.
// auth.go — вход, регистрация по приглашению и загрузка субъекта запроса.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/fileportal/internal/auth"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/rbac"
	"github.com/bigkaa/goartstore/fileportal/internal/repository"
)

// usernamePattern — допустимое имя пользователя.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,64}$`)

// AuthOptions — параметры AuthService.
type AuthOptions struct {
	// InviteCode — общий многоразовый код (пусто — отключён)
	InviteCode string
	// LoginMaxFailures — неудачных попыток до блокировки (0 — без блокировки)
	LoginMaxFailures int
	// LoginLockout — длительность блокировки
	LoginLockout time.Duration
}

// RegisterInput — данные саморегистрации.
type RegisterInput struct {
	InviteCode string
	Username   string
	Password   string
	Confirm    string
	Email      *string
}

// AuthService — аутентификация и саморегистрация.
type AuthService struct {
	users      repository.UserRepository
	hasher     *auth.PasswordHasher
	tokens     *auth.TokenService
	audit      *AuditService
	limiter    *loginLimiter
	inviteCode string
	logger     *slog.Logger
	now        func() time.Time
}

// NewAuthService создаёт сервис аутентификации.
// tokens может быть nil, тогда выпуск API-токенов недоступен.
func NewAuthService(
	users repository.UserRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenService,
	audit *AuditService,
	opts AuthOptions,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		hasher:     hasher,
		tokens:     tokens,
		audit:      audit,
		limiter:    newLoginLimiter(opts.LoginMaxFailures, opts.LoginLockout),
		inviteCode: strings.ToUpper(strings.TrimSpace(opts.InviteCode)),
		logger:     logger.With(slog.String("component", "auth_service")),
		now:        time.Now,
	}
}

// Login проверяет учётные данные.
// Неизвестный пользователь, деактивированный и неверный пароль
// неразличимы: всегда ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password, remote string) (*model.User, error) {
	username = strings.TrimSpace(username)

	if s.limiter.Blocked(username) {
		loginLockoutsTotal.Inc()
		s.audit.Record(ctx, username, "auth.login", remote, model.OutcomeDenied, "вход заблокирован")
		return nil, ErrTooManyAttempts
	}

	u, err := s.users.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.hasher.VerifyDummy(password)
		return nil, s.loginFailed(ctx, username, remote)
	case err != nil:
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}

	if !s.hasher.Verify(u.PasswordHash, password) || !u.Active {
		return nil, s.loginFailed(ctx, username, remote)
	}

	s.limiter.Reset(username)
	s.audit.Record(ctx, u.Username, "auth.login", remote, model.OutcomeSuccess, "")
	return u, nil
}

// loginFailed учитывает неудачную попытку.
func (s *AuthService) loginFailed(ctx context.Context, username, remote string) error {
	loginFailuresTotal.Inc()
	n := s.limiter.Fail(username)
	s.logger.Warn("Неудачная попытка входа",
		slog.String("username", username),
		slog.String("remote", remote),
		slog.Int("failures", n),
	)
	s.audit.Record(ctx, username, "auth.login", remote, model.OutcomeDenied, "неверные учётные данные")
	return ErrInvalidCredentials
}

// IssueToken проверяет учётные данные и выпускает API-токен.
func (s *AuthService) IssueToken(ctx context.Context, username, password, remote string) (string, time.Time, error) {
	if s.tokens == nil {
		return "", time.Time{}, fmt.Errorf("выпуск токенов не настроен")
	}
	u, err := s.Login(ctx, username, password, remote)
	if err != nil {
		return "", time.Time{}, err
	}
	token, exp, err := s.tokens.Issue(u.ID, u.Username, s.now())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("выпуск токена: %w", err)
	}
	return token, exp, nil
}

// Register создаёт учётную запись по коду приглашения.
// Общий код даёт роль user и может использоваться повторно. Одноразовый
// код погашается атомарно вместе с созданием пользователя: страновой
// даёт роль country со scope из одной страны, прочие — роль user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (u *model.User, err error) {
	username := strings.TrimSpace(in.Username)
	defer func() {
		s.audit.Record(ctx, username, "auth.register", username, outcomeOf(err), errDetail(err))
	}()

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if in.Password != in.Confirm {
		return nil, fmt.Errorf("%w: пароли не совпадают", ErrValidation)
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(in.InviteCode))
	if code == "" {
		return nil, fmt.Errorf("%w: требуется код приглашения", ErrValidation)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("хэширование пароля: %w", err)
	}
	u = &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         rbac.RoleUser,
		Active:       true,
	}

	if s.inviteCode != "" && code == s.inviteCode {
		if err := s.users.Create(ctx, u); err != nil {
			return nil, mapRepoError(err)
		}
		s.logger.Info("Регистрация по общему коду", slog.String("username", username))
		return u, nil
	}

	_, err = s.users.CreateWithInvite(ctx, u, code, s.now().UTC(), func(inv *model.Invite, u *model.User) error {
		if inv.Country != nil {
			u.Role = rbac.RoleCountry
			u.Countries = []string{*inv.Country}
		}
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	invitesRedeemedTotal.Inc()
	s.logger.Info("Регистрация по приглашению",
		slog.String("username", username),
		slog.String("role", u.Role),
	)
	return u, nil
}

// Principal загружает субъект запроса по ID пользователя.
// Удалённый или деактивированный пользователь — ErrUnauthorized.
func (s *AuthService) Principal(ctx context.Context, userID string) (*rbac.Principal, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	if !u.Active {
		return nil, ErrUnauthorized
	}
	return PrincipalOf(u), nil
}

// VerifyToken проверяет API-токен и загружает субъект.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*rbac.Principal, error) {
	if s.tokens == nil {
		return nil, ErrUnauthorized
	}
	claims, err := s.tokens.Verify(ctx, token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return s.Principal(ctx, claims.Subject)
}

// PrincipalOf строит субъект из учётной записи.
func PrincipalOf(u *model.User) *rbac.Principal {
	return &rbac.Principal{
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		Countries: u.Countries,
	}
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: имя пользователя — 3–64 символа из A-Z, a-z, 0-9, '.', '_', '-'", ErrValidation)
	}
	return nil
}

// normalizeEmail проверяет необязательный адрес. Пустая строка — nil.
func normalizeEmail(email *string) (*string, error) {
	if email == nil {
		return nil, nil
	}
	e := strings.TrimSpace(*email)
	if e == "" {
		return nil, nil
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return nil, fmt.Errorf("%w: некорректный e-mail", ErrValidation)
	}
	return &e, nil
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
