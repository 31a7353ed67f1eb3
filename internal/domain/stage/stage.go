// Пакет stage — стадии рабочего процесса документа.
// Стадия меняется только явно (при загрузке или редактировании)
// и не влияет на область хранения.
package stage

import (
	"errors"
	"fmt"
	"strings"
)

// Stage — код стадии.
type Stage string

// Стадии в порядке продвижения.
const (
	FirstDraft        Stage = "first_draft"
	Rewritten         Stage = "rewritten"
	FeedbackRequested Stage = "feedback_requested"
	FinalDraft        Stage = "final_draft"
)

// Policy — правило смены стадии.
type Policy string

const (
	// PolicyFree — любая явная смена.
	PolicyFree Policy = "free"
	// PolicyForward — только на более позднюю стадию.
	PolicyForward Policy = "forward"
)

var (
	// ErrUnknown — неизвестная стадия.
	ErrUnknown = errors.New("неизвестная стадия")
	// ErrBackward — смена на более раннюю стадию запрещена политикой.
	ErrBackward = errors.New("возврат на более раннюю стадию запрещён")
)

// ordered — все стадии по порядку.
var ordered = []Stage{FirstDraft, Rewritten, FeedbackRequested, FinalDraft}

var labels = map[Stage]string{
	FirstDraft:        "First draft",
	Rewritten:         "Rewritten/Updated version",
	FeedbackRequested: "Publisher asked for feedback",
	FinalDraft:        "Final draft",
}

// aliases — дополнительные входные формы (нижний регистр).
var aliases = map[string]Stage{
	"draft":    FirstDraft,
	"first":    FirstDraft,
	"updated":  Rewritten,
	"rewrite":  Rewritten,
	"feedback": FeedbackRequested,
	"final":    FinalDraft,
}

// All возвращает стадии в порядке продвижения.
func All() []Stage {
	return append([]Stage(nil), ordered...)
}

// Label — отображаемое имя стадии.
func (s Stage) Label() string {
	return labels[s]
}

// Index — позиция стадии (-1 для неизвестной).
func (s Stage) Index() int {
	for i, v := range ordered {
		if v == s {
			return i
		}
	}
	return -1
}

// Normalize принимает код, отображаемое имя или синоним без учёта
// регистра. Пустая строка — FirstDraft.
func Normalize(raw string) (Stage, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return FirstDraft, nil
	}
	for _, s := range ordered {
		if v == string(s) || v == strings.ToLower(labels[s]) {
			return s, nil
		}
	}
	if s, ok := aliases[v]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknown, raw)
}

// ParsePolicy преобразует строку в Policy. Пустая строка — PolicyFree.
func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(raw); p {
	case "":
		return PolicyFree, nil
	case PolicyFree, PolicyForward:
		return p, nil
	default:
		return "", fmt.Errorf("недопустимая политика стадий: %q, допустимые: free, forward", raw)
	}
}

// CheckChange проверяет смену from → to по политике.
func (p Policy) CheckChange(from, to Stage) error {
	if to.Index() < 0 {
		return fmt.Errorf("%w: %q", ErrUnknown, to)
	}
	if p == PolicyForward && from.Index() >= 0 && to.Index() < from.Index() {
		return fmt.Errorf("%w: %s → %s", ErrBackward, from, to)
	}
	return nil
}
