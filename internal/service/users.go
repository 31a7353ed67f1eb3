// users.go — управление учётными записями (только super).
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/fileportal/internal/auth"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/rbac"
	"github.com/bigkaa/goartstore/fileportal/internal/repository"
)

// CreateUserInput — данные новой учётной записи.
type CreateUserInput struct {
	Username  string
	Password  string
	Email     *string
	Role      string
	Countries []string
	// Active — nil означает true
	Active *bool
}

// UserService — сервис управления пользователями.
type UserService struct {
	users     repository.UserRepository
	hasher    *auth.PasswordHasher
	audit     *AuditService
	countries []string
	logger    *slog.Logger
}

// NewUserService создаёт сервис управления пользователями.
// countries — настроенный список стран для проверки scope.
func NewUserService(
	users repository.UserRepository,
	hasher *auth.PasswordHasher,
	audit *AuditService,
	countries []string,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		hasher:    hasher,
		audit:     audit,
		countries: countries,
		logger:    logger.With(slog.String("component", "user_service")),
	}
}

// List возвращает пользователей с фильтрацией. p == nil — вызов из CLI.
func (s *UserService) List(
	ctx context.Context, p *rbac.Principal, filters model.UserFilters, limit, offset int,
) ([]*model.User, int, error) {
	if p != nil && !p.Can(rbac.ActionUserManage) {
		return nil, 0, ErrForbidden
	}
	if filters.Role != nil && !rbac.IsValidRole(*filters.Role) {
		return nil, 0, fmt.Errorf("%w: недопустимая роль %q", ErrValidation, *filters.Role)
	}
	users, err := s.users.List(ctx, filters, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение пользователей: %w", err)
	}
	total, err := s.users.Count(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт пользователей: %w", err)
	}
	return users, total, nil
}

// Get возвращает пользователя по ID.
func (s *UserService) Get(ctx context.Context, p *rbac.Principal, id string) (*model.User, error) {
	if !p.Can(rbac.ActionUserManage) {
		return nil, ErrForbidden
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return u, nil
}

// Me возвращает учётную запись самого субъекта.
func (s *UserService) Me(ctx context.Context, p *rbac.Principal) (*model.User, error) {
	if p == nil {
		return nil, ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return u, nil
}

// Create создаёт учётную запись. p == nil — вызов из CLI.
func (s *UserService) Create(ctx context.Context, p *rbac.Principal, in CreateUserInput) (u *model.User, err error) {
	defer func() { s.audit.recordResult(ctx, p, "user.create", strings.TrimSpace(in.Username), err) }()

	if p != nil && !p.Can(rbac.ActionUserManage) {
		return nil, ErrForbidden
	}
	username := strings.TrimSpace(in.Username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	role, countries, err := s.resolveScope(in.Role, in.Countries)
	if err != nil {
		return nil, err
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
		Role:         role,
		Countries:    countries,
		Active:       in.Active == nil || *in.Active,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("Пользователь создан",
		slog.String("username", u.Username),
		slog.String("role", u.Role),
	)
	return u, nil
}

// Update изменяет роль, scope, активность и e-mail.
// super не может понизить или деактивировать себя; последний активный
// super не может быть понижен или деактивирован.
func (s *UserService) Update(
	ctx context.Context, p *rbac.Principal, id string, upd model.UserUpdate,
) (result *model.User, err error) {
	defer func() { s.audit.recordResult(ctx, p, "user.update", id, err) }()

	if !p.Can(rbac.ActionUserManage) {
		return nil, ErrForbidden
	}
	var email *string
	if upd.Email != nil {
		if email, err = normalizeEmail(upd.Email); err != nil {
			return nil, err
		}
	}

	result, err = s.users.Mutate(ctx, id, func(u *model.User, activeSupers int) error {
		role, countries := u.Role, u.Countries
		if upd.Role != nil {
			r, legacy, err := rbac.ParseRole(*upd.Role)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrValidation, err)
			}
			role = r
			switch {
			case upd.Countries == nil && len(legacy) > 0:
				countries = legacy
			case upd.Countries == nil && role != rbac.RoleCountry:
				countries = nil
			}
		}
		if upd.Countries != nil {
			countries = *upd.Countries
		}
		normalized, err := rbac.NormalizeScope(role, countries, s.countries)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}

		active := u.Active
		if upd.Active != nil {
			active = *upd.Active
		}
		if err := checkSuperRetained(p, u, role == rbac.RoleSuper && active, activeSupers); err != nil {
			return err
		}

		u.Role, u.Countries, u.Active = role, normalized, active
		if upd.Email != nil {
			u.Email = email
		}
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("Пользователь обновлён",
		slog.String("username", result.Username),
		slog.String("role", result.Role),
		slog.Bool("active", result.Active),
	)
	return result, nil
}

// ResetPassword устанавливает новый пароль пользователю.
func (s *UserService) ResetPassword(ctx context.Context, p *rbac.Principal, id, password string) (err error) {
	defer func() { s.audit.recordResult(ctx, p, "user.reset_password", id, err) }()

	if !p.Can(rbac.ActionUserManage) {
		return ErrForbidden
	}
	if err := auth.ValidatePassword(password); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("хэширование пароля: %w", err)
	}
	return mapRepoError(s.users.SetPassword(ctx, id, hash))
}

// Delete удаляет учётную запись. Себя и последнего активного super удалить нельзя.
func (s *UserService) Delete(ctx context.Context, p *rbac.Principal, id string) (err error) {
	defer func() { s.audit.recordResult(ctx, p, "user.delete", id, err) }()

	if !p.Can(rbac.ActionUserManage) {
		return ErrForbidden
	}
	deleted, err := s.users.DeleteGuarded(ctx, id, func(u *model.User, activeSupers int) error {
		return checkSuperRetained(p, u, false, activeSupers)
	})
	if err != nil {
		return mapRepoError(err)
	}
	s.logger.Info("Пользователь удалён", slog.String("username", deleted.Username))
	return nil
}

// resolveScope разбирает роль (включая историческое имя) и проверяет страны.
func (s *UserService) resolveScope(rawRole string, countries []string) (string, []string, error) {
	role, legacy, err := rbac.ParseRole(rawRole)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(countries) == 0 {
		countries = legacy
	}
	normalized, err := rbac.NormalizeScope(role, countries, s.countries)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return role, normalized, nil
}

// checkSuperRetained запрещает потерю статуса активного super для себя
// и для последнего активного super. staysSuper — останется ли u активным super.
func checkSuperRetained(p *rbac.Principal, u *model.User, staysSuper bool, activeSupers int) error {
	if p != nil && u.ID == p.UserID && !staysSuper {
		return fmt.Errorf("%w: нельзя понизить, деактивировать или удалить свою учётную запись", ErrConflict)
	}
	isActiveSuper := u.Role == rbac.RoleSuper && u.Active
	if isActiveSuper && !staysSuper && activeSupers <= 1 {
		return fmt.Errorf("%w: нельзя лишить прав последнего активного super", ErrConflict)
	}
	return nil
}
