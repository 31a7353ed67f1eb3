package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength — минимальная длина пароля в символах.
const MinPasswordLength = 6

// maxPasswordBytes — bcrypt учитывает только первые 72 байта.
const maxPasswordBytes = 72

var (
	// ErrPasswordTooShort — пароль короче MinPasswordLength.
	ErrPasswordTooShort = fmt.Errorf("пароль должен содержать не менее %d символов", MinPasswordLength)
	// ErrPasswordTooLong — пароль длиннее 72 байт.
	ErrPasswordTooLong = errors.New("пароль длиннее 72 байт")
)

// PasswordHasher — хеширование и проверка паролей через bcrypt.
type PasswordHasher struct {
	cost int
	// dummy — хэш для сравнения при неизвестном пользователе,
	// время ответа не зависит от существования учётной записи.
	dummy []byte
}

// NewPasswordHasher создаёт хешер. cost <= 0 — bcrypt.DefaultCost.
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("fileportal-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации bcrypt: %w", err)
	}
	return &PasswordHasher{cost: cost, dummy: dummy}, nil
}

// ValidatePassword проверяет ограничения длины пароля.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// Hash проверяет и хеширует пароль.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("ошибка хеширования пароля: %w", err)
	}
	return string(hashed), nil
}

// Verify сравнивает пароль с хэшем.
func (h *PasswordHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// VerifyDummy выполняет сравнение с фиктивным хэшем и всегда возвращает false.
func (h *PasswordHasher) VerifyDummy(password string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
	return false
}
