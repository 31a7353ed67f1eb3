// invites.go — выпуск, просмотр и отзыв кодов приглашения (только super).
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/rbac"
	"github.com/bigkaa/goartstore/fileportal/internal/repository"
)

// Ограничения выпуска приглашений.
const (
	maxInviteBatch      = 50
	minInviteLength     = 5
	maxInviteLength     = 10
	defaultInviteLength = 6
	inviteAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// inviteRetries — повторы при совпадении сгенерированного кода
	inviteRetries = 3
)

// explicitCodePattern — формат явно заданного кода.
var explicitCodePattern = regexp.MustCompile(`^[A-Z0-9]{4,32}$`)

// IssueInvitesInput — параметры выпуска приглашений.
type IssueInvitesInput struct {
	// Count — количество кодов (0 — один)
	Count int
	// Length — длина генерируемого кода (0 — 6)
	Length int
	// Country — страна для роли country; nil — роль user
	Country *string
	// Code — явный код (только при Count <= 1)
	Code *string
	// TTL — время жизни; nil — значение по умолчанию, 0 — бессрочно
	TTL *time.Duration
}

// InviteService — сервис приглашений.
type InviteService struct {
	invites    repository.InviteRepository
	audit      *AuditService
	countries  []string
	defaultTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewInviteService создаёт сервис приглашений.
func NewInviteService(
	invites repository.InviteRepository,
	audit *AuditService,
	countries []string,
	defaultTTL time.Duration,
	logger *slog.Logger,
) *InviteService {
	return &InviteService{
		invites:    invites,
		audit:      audit,
		countries:  countries,
		defaultTTL: defaultTTL,
		logger:     logger.With(slog.String("component", "invite_service")),
		now:        time.Now,
	}
}

// Issue выпускает пачку приглашений. p == nil — вызов из CLI.
func (s *InviteService) Issue(ctx context.Context, p *rbac.Principal, in IssueInvitesInput) (result []*model.Invite, err error) {
	defer func() {
		s.audit.recordResult(ctx, p, "invite.issue", fmt.Sprintf("count=%d", len(result)), err)
	}()

	if p != nil && !p.Can(rbac.ActionInviteManage) {
		return nil, ErrForbidden
	}
	count, length := in.Count, in.Length
	if count == 0 {
		count = 1
	}
	if length == 0 {
		length = defaultInviteLength
	}
	if count < 1 || count > maxInviteBatch {
		return nil, fmt.Errorf("%w: количество — от 1 до %d", ErrValidation, maxInviteBatch)
	}
	if length < minInviteLength || length > maxInviteLength {
		return nil, fmt.Errorf("%w: длина кода — от %d до %d", ErrValidation, minInviteLength, maxInviteLength)
	}

	var country *string
	if in.Country != nil && strings.TrimSpace(*in.Country) != "" {
		c := strings.ToUpper(strings.TrimSpace(*in.Country))
		if !slices.Contains(s.countries, c) {
			return nil, fmt.Errorf("%w: неизвестная страна %q", ErrValidation, c)
		}
		country = &c
	}

	var explicit string
	if in.Code != nil && strings.TrimSpace(*in.Code) != "" {
		explicit = strings.ToUpper(strings.TrimSpace(*in.Code))
		if !explicitCodePattern.MatchString(explicit) {
			return nil, fmt.Errorf("%w: код — 4–32 символа A-Z, 0-9", ErrValidation)
		}
		if count != 1 {
			return nil, fmt.Errorf("%w: явный код допускается только для одного приглашения", ErrValidation)
		}
	}

	ttl := s.defaultTTL
	if in.TTL != nil {
		ttl = *in.TTL
	}
	if ttl < 0 {
		return nil, fmt.Errorf("%w: отрицательный срок действия", ErrValidation)
	}
	var expiresAt *time.Time
	if ttl > 0 {
		exp := s.now().UTC().Add(ttl)
		expiresAt = &exp
	}

	for attempt := 0; ; attempt++ {
		batch, err := buildInvites(count, length, explicit, country, expiresAt, actorOf(p))
		if err != nil {
			return nil, err
		}
		err = s.invites.CreateBatch(ctx, batch)
		if err == nil {
			result = batch
			break
		}
		// Совпадение явного кода или исчерпание повторов
		if !errors.Is(err, repository.ErrConflict) || explicit != "" || attempt+1 >= inviteRetries {
			return nil, mapRepoError(err)
		}
	}

	scope := "-"
	if country != nil {
		scope = *country
	}
	s.logger.Info("Приглашения выпущены",
		slog.Int("count", len(result)),
		slog.String("country", scope),
	)
	return result, nil
}

// List возвращает приглашения в состоянии state ("" — все).
func (s *InviteService) List(
	ctx context.Context, p *rbac.Principal, state string, limit, offset int,
) ([]*model.Invite, int, error) {
	if p != nil && !p.Can(rbac.ActionInviteManage) {
		return nil, 0, ErrForbidden
	}
	switch state {
	case "", model.InviteOpen, model.InviteUsed, model.InviteRevoked, model.InviteExpired:
	default:
		return nil, 0, fmt.Errorf("%w: недопустимое состояние %q", ErrValidation, state)
	}
	now := s.now().UTC()
	items, err := s.invites.List(ctx, state, now, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение приглашений: %w", err)
	}
	total, err := s.invites.Count(ctx, state, now)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт приглашений: %w", err)
	}
	return items, total, nil
}

// Revoke отзывает неиспользованное приглашение.
func (s *InviteService) Revoke(ctx context.Context, p *rbac.Principal, code string) (inv *model.Invite, err error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	defer func() { s.audit.recordResult(ctx, p, "invite.revoke", code, err) }()

	if p != nil && !p.Can(rbac.ActionInviteManage) {
		return nil, ErrForbidden
	}
	inv, err = s.invites.Revoke(ctx, code, s.now().UTC())
	if err != nil {
		return nil, mapRepoError(err)
	}
	return inv, nil
}

// HasOpen сообщает, можно ли сейчас зарегистрироваться по приглашению.
func (s *InviteService) HasOpen(ctx context.Context) (bool, error) {
	ok, err := s.invites.HasOpen(ctx, s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("проверка открытых приглашений: %w", err)
	}
	return ok, nil
}

// Now возвращает текущее время сервиса (для вычисления состояния).
func (s *InviteService) Now() time.Time { return s.now().UTC() }

// buildInvites формирует пачку без повторов внутри неё.
func buildInvites(count, length int, explicit string, country *string, expiresAt *time.Time, createdBy string) ([]*model.Invite, error) {
	seen := make(map[string]bool, count)
	batch := make([]*model.Invite, 0, count)
	for len(batch) < count {
		code := explicit
		if code == "" {
			var err error
			if code, err = generateCode(length); err != nil {
				return nil, err
			}
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		batch = append(batch, &model.Invite{
			Code:      code,
			Country:   country,
			ExpiresAt: expiresAt,
			CreatedBy: createdBy,
		})
	}
	return batch, nil
}

// generateCode генерирует код из A-Z0-9 через crypto/rand.
func generateCode(length int) (string, error) {
	max := big.NewInt(int64(len(inviteAlphabet)))
	var b strings.Builder
	b.Grow(length)
	for range length {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("ошибка генерации кода: %w", err)
		}
		b.WriteByte(inviteAlphabet[n.Int64()])
	}
	return b.String(), nil
}
