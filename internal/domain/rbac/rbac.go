// Пакет rbac — роли, страновой scope и таблица разрешений портала.
// Роль — закрытый набор значений, страны — отдельный атрибут пользователя.
// Добавление страны не требует новой роли.
package rbac

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Роли в порядке убывания привилегий.
const (
	RoleSuper   = "super"
	RoleAdmin   = "admin"
	RoleUser    = "user"
	RoleCountry = "country"
)

// legacyCountryPrefix — историческое именование роли «страновой пользователь»
// (country_user_de). Принимается только на входе.
const legacyCountryPrefix = "country_user_"

// Action — действие, на которое проверяется разрешение.
type Action string

// Действия над файлами.
const (
	ActionFileList        Action = "file.list"
	ActionFileRead        Action = "file.read"
	ActionFileUpload      Action = "file.upload"
	ActionFileUpdateMeta  Action = "file.update_meta"
	ActionFileNote        Action = "file.note"
	ActionFileReview      Action = "file.review"
	ActionFileDeleteOwn   Action = "file.delete_own"
	ActionFileDeleteAny   Action = "file.delete_any"
	ActionFileApprove     Action = "file.approve"
	ActionFileArchive     Action = "file.archive"
	ActionFileViewArchive Action = "file.view_archive"
	ActionFilePurge       Action = "file.purge"
)

// Административные действия.
const (
	ActionUserManage   Action = "user.manage"
	ActionInviteManage Action = "invite.manage"
	ActionAuditView    Action = "audit.view"
)

var (
	// ErrInvalidRole — неизвестная роль.
	ErrInvalidRole = errors.New("недопустимая роль")
	// ErrInvalidScope — список стран не согласован с ролью.
	ErrInvalidScope = errors.New("недопустимый набор стран")
)

// knownRoles — допустимые роли.
var knownRoles = map[string]struct{}{
	RoleCountry: {},
	RoleUser:    {},
	RoleAdmin:   {},
	RoleSuper:   {},
}

// baseActions доступны всем ролям (для country — в пределах scope).
var baseActions = []Action{
	ActionFileList, ActionFileRead, ActionFileUpload, ActionFileNote, ActionFileDeleteOwn,
}

// staffActions — управление жизненным циклом файлов.
var staffActions = []Action{
	ActionFileDeleteAny, ActionFileUpdateMeta, ActionFileApprove, ActionFileArchive, ActionFileViewArchive,
}

// superActions — только для super.
var superActions = []Action{
	ActionFilePurge, ActionUserManage, ActionInviteManage, ActionAuditView,
}

// capabilities — таблица role → набор разрешённых действий.
var capabilities = map[string]map[Action]bool{
	RoleSuper:   actionSet(baseActions, staffActions, superActions),
	RoleAdmin:   actionSet(baseActions, staffActions),
	RoleUser:    actionSet(baseActions, []Action{ActionFileReview}),
	RoleCountry: actionSet(baseActions),
}

// Allowed проверяет, разрешено ли действие роли.
func Allowed(role string, action Action) bool {
	return capabilities[role][action]
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := knownRoles[role]
	return ok
}

// IsStaff — super или admin.
func IsStaff(role string) bool {
	return role == RoleSuper || role == RoleAdmin
}

// ParseRole разбирает входное имя роли. Историческая форма
// country_user_<cc> превращается в (country, [CC]).
func ParseRole(raw string) (role string, countries []string, err error) {
	r := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(r, legacyCountryPrefix) {
		cc := strings.ToUpper(strings.TrimPrefix(r, legacyCountryPrefix))
		if cc == "" {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidRole, raw)
		}
		return RoleCountry, []string{cc}, nil
	}
	if !IsValidRole(r) {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
	return r, nil, nil
}

// NormalizeScope проверяет согласованность роли и списка стран.
// Для country список обязателен и должен входить в known. Для
// остальных ролей список должен быть пуст (доступны все страны).
// Возвращает отсортированный список без дубликатов в верхнем регистре.
func NormalizeScope(role string, countries, known []string) ([]string, error) {
	if !IsValidRole(role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	knownSet := toSet(known)
	seen := make(map[string]bool, len(countries))
	out := make([]string, 0, len(countries))
	for _, c := range countries {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		if !knownSet[c] {
			return nil, fmt.Errorf("%w: неизвестная страна %q", ErrInvalidScope, c)
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)

	if role == RoleCountry && len(out) == 0 {
		return nil, fmt.Errorf("%w: для роли country требуется хотя бы одна страна", ErrInvalidScope)
	}
	if role != RoleCountry && len(out) > 0 {
		return nil, fmt.Errorf("%w: роль %s не ограничивается странами", ErrInvalidScope, role)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// Principal — аутентифицированный субъект запроса.
type Principal struct {
	UserID   string
	Username string
	Role     string
	// Countries — scope. Пусто — все страны.
	Countries []string
}

// Can проверяет действие по таблице разрешений.
func (p *Principal) Can(action Action) bool {
	if p == nil {
		return false
	}
	return Allowed(p.Role, action)
}

// Scoped сообщает, ограничен ли субъект списком стран.
func (p *Principal) Scoped() bool {
	return len(p.Countries) > 0
}

// CanSee проверяет доступ к записи с указанной страной.
func (p *Principal) CanSee(country string) bool {
	if !p.Scoped() {
		return true
	}
	for _, c := range p.Countries {
		if c == country {
			return true
		}
	}
	return false
}

// VisibleCountries пересекает запрошенный набор стран со scope.
// Пустой requested означает «все доступные». Возвращает nil для
// «без ограничений». Вторым значением — false, если какой-либо из
// запрошенных тегов вне scope.
func (p *Principal) VisibleCountries(requested []string) ([]string, bool) {
	if len(requested) == 0 {
		if !p.Scoped() {
			return nil, true
		}
		return append([]string(nil), p.Countries...), true
	}
	out := make([]string, 0, len(requested))
	for _, c := range requested {
		if !p.CanSee(c) {
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}

// actionSet объединяет списки действий в множество.
func actionSet(groups ...[]Action) map[Action]bool {
	s := make(map[Action]bool)
	for _, g := range groups {
		for _, a := range g {
			s[a] = true
		}
	}
	return s
}

// toSet конвертирует срез строк в map для быстрого поиска.
func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
