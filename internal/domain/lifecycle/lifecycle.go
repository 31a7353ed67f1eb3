// Пакет lifecycle — конечный автомат жизненного цикла файла.
//
// Статус — единственный источник правды, область хранения выводится из него:
//   - active   → active/
//   - approved → approved/
//   - archived → archive/
//
// Переходы:
//   - approve:   active → approved
//   - unapprove: approved → active
//   - archive:   active|approved → archived (запоминается archived_from)
//   - restore:   archived → archived_from
//
// Автомат не хранит состояние: текущий статус живёт в записи файла,
// сериализация переходов обеспечивается блокировкой строки в БД.
package lifecycle

import (
	"fmt"
)

// Status — статус жизненного цикла файла.
type Status string

const (
	StatusActive   Status = "active"
	StatusApproved Status = "approved"
	StatusArchived Status = "archived"
)

// Area — область хранения blob-ов.
type Area string

const (
	AreaActive   Area = "active"
	AreaApproved Area = "approved"
	AreaArchive  Area = "archive"
)

// Areas — все области хранения в порядке поиска.
var Areas = []Area{AreaActive, AreaApproved, AreaArchive}

// Transition — переход жизненного цикла.
type Transition string

const (
	TransitionApprove   Transition = "approve"
	TransitionUnapprove Transition = "unapprove"
	TransitionArchive   Transition = "archive"
	TransitionRestore   Transition = "restore"
)

// ArchivePolicy определяет, из каких статусов разрешено архивирование.
type ArchivePolicy string

const (
	// ArchiveAny — архивировать можно active и approved.
	ArchiveAny ArchivePolicy = "any"
	// ArchiveApprovedOnly — архивировать можно только approved.
	ArchiveApprovedOnly ArchivePolicy = "approved_only"
)

// State — состояние файла с точки зрения жизненного цикла.
type State struct {
	Status Status
	// ArchivedFrom — статус до архивации, пусто для неархивных файлов.
	ArchivedFrom Status
}

// Approved — производный флаг «одобрен».
func (s State) Approved() bool { return s.Status == StatusApproved }

// Archived — производный флаг «в архиве».
func (s State) Archived() bool { return s.Status == StatusArchived }

// Area — область хранения, соответствующая статусу.
func (s State) Area() Area { return AreaFor(s.Status) }

// validTransitions — матрица допустимых переходов.
// Ключ — переход, значение — набор допустимых исходных статусов.
var validTransitions = map[Transition]map[Status]bool{
	TransitionApprove:   {StatusActive: true},
	TransitionUnapprove: {StatusApproved: true},
	TransitionArchive:   {StatusActive: true, StatusApproved: true},
	TransitionRestore:   {StatusArchived: true},
}

// Machine применяет переходы с учётом политики архивирования.
type Machine struct {
	archivePolicy ArchivePolicy
}

// NewMachine создаёт автомат. Пустая политика — ArchiveAny.
func NewMachine(policy ArchivePolicy) (*Machine, error) {
	switch policy {
	case "":
		policy = ArchiveAny
	case ArchiveAny, ArchiveApprovedOnly:
	default:
		return nil, fmt.Errorf("недопустимая политика архивирования: %q, допустимые: any, approved_only", policy)
	}
	return &Machine{archivePolicy: policy}, nil
}

// Apply вычисляет новое состояние или возвращает *TransitionError.
func (m *Machine) Apply(s State, tr Transition) (State, error) {
	from, ok := validTransitions[tr]
	if !ok {
		return s, &TransitionError{
			Code:    "INVALID_TRANSITION",
			Message: fmt.Sprintf("неизвестный переход %q", tr),
		}
	}
	if !from[s.Status] {
		return s, &TransitionError{
			Code:    "INVALID_TRANSITION",
			Message: fmt.Sprintf("переход %s из статуса %s недопустим", tr, s.Status),
		}
	}

	switch tr {
	case TransitionApprove:
		return State{Status: StatusApproved}, nil
	case TransitionUnapprove:
		return State{Status: StatusActive}, nil
	case TransitionArchive:
		if m.archivePolicy == ArchiveApprovedOnly && s.Status != StatusApproved {
			return s, &TransitionError{
				Code:    "APPROVAL_REQUIRED",
				Message: "архивировать можно только одобренные файлы",
			}
		}
		return State{Status: StatusArchived, ArchivedFrom: s.Status}, nil
	case TransitionRestore:
		target := s.ArchivedFrom
		if target == "" {
			target = StatusActive
		}
		return State{Status: target}, nil
	}
	return s, nil
}

// TransitionError — ошибка перехода жизненного цикла.
type TransitionError struct {
	Code    string // INVALID_TRANSITION, APPROVAL_REQUIRED
	Message string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AreaFor возвращает область хранения для статуса.
func AreaFor(s Status) Area {
	switch s {
	case StatusApproved:
		return AreaApproved
	case StatusArchived:
		return AreaArchive
	default:
		return AreaActive
	}
}

// ParseStatus преобразует строку в Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusApproved, StatusArchived:
		return st, nil
	default:
		return "", fmt.Errorf("недопустимый статус: %q, допустимые: active, approved, archived", s)
	}
}

