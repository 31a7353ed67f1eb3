// Пакет auth — учётные данные, сессии и API-токены File Portal.
// Сессии — AES-256-GCM зашифрованный cookie, пароли — bcrypt,
// API-токены — RS256 JWT с публикацией ключей через JWKS.
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Имя cookie для зашифрованной сессии.
const SessionCookieName = "fileportal_session"

// ErrSessionExpired — срок действия сессии истёк.
var ErrSessionExpired = errors.New("сессия истекла")

// SessionData — данные сессии, хранящиеся в зашифрованном cookie.
// Роль и страны не кэшируются: субъект пересобирается из БД на каждый запрос.
type SessionData struct {
	// UserID — UUID пользователя.
	UserID string `json:"uid"`
	// Username — имя пользователя на момент входа.
	Username string `json:"username"`
	// IssuedAt — время входа (Unix timestamp).
	IssuedAt int64 `json:"iat"`
	// ExpiresAt — время истечения сессии (Unix timestamp).
	ExpiresAt int64 `json:"exp"`
}

// IsExpired проверяет, истекла ли сессия.
func (s *SessionData) IsExpired(now time.Time) bool {
	return now.Unix() >= s.ExpiresAt
}

// SessionManager шифрует/дешифрует SessionData в HTTP cookies через AES-256-GCM.
type SessionManager struct {
	gcm cipher.AEAD
	// secure — Secure flag для cookie (true для HTTPS).
	secure bool
	ttl    time.Duration
	// Generated — ключ сгенерирован случайно (сессии не переживут рестарт).
	Generated bool
}

// NewSessionManager создаёт менеджер сессий.
// key — base64 32-байтовый ключ, иначе строка хешируется SHA-256.
// Если key пустой — генерируется случайный ключ (непостоянный между рестартами).
func NewSessionManager(key string, secure bool, ttl time.Duration) (*SessionManager, error) {
	var keyBytes []byte
	generated := false

	if key == "" {
		keyBytes = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, keyBytes); err != nil {
			return nil, fmt.Errorf("ошибка генерации ключа сессии: %w", err)
		}
		generated = true
	} else {
		var err error
		keyBytes, err = base64.StdEncoding.DecodeString(key)
		if err != nil || len(keyBytes) != 32 {
			keyBytes = sha256Key(key)
		}
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &SessionManager{
		gcm:       gcm,
		secure:    secure,
		ttl:       ttl,
		Generated: generated,
	}, nil
}

// NewSession формирует данные сессии для пользователя.
func (sm *SessionManager) NewSession(userID, username string, now time.Time) *SessionData {
	return &SessionData{
		UserID:    userID,
		Username:  username,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(sm.ttl).Unix(),
	}
}

// Encrypt шифрует SessionData и возвращает base64-строку.
func (sm *SessionManager) Encrypt(data *SessionData) (string, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации сессии: %w", err)
	}

	nonce := make([]byte, sm.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	// nonce prepended к ciphertext
	ciphertext := sm.gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt дешифрует base64-строку обратно в SessionData.
func (sm *SessionManager) Decrypt(encrypted string) (*SessionData, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("ошибка декодирования base64: %w", err)
	}

	nonceSize := sm.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("зашифрованные данные слишком короткие")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := sm.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка дешифрования сессии: %w", err)
	}

	var data SessionData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("ошибка десериализации сессии: %w", err)
	}
	return &data, nil
}

// SetSessionCookie устанавливает зашифрованный session cookie в ответ.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, data *SessionData) error {
	encrypted, err := sm.Encrypt(data)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encrypted,
		Path:     "/",
		MaxAge:   int(sm.ttl.Seconds()),
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// GetSessionFromRequest извлекает и дешифрует SessionData из cookie запроса.
// Возвращает nil, nil если cookie отсутствует, ErrSessionExpired для истёкшей сессии.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) (*SessionData, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}

	data, err := sm.Decrypt(cookie.Value)
	if err != nil {
		return nil, err
	}
	if data.IsExpired(time.Now()) {
		return nil, ErrSessionExpired
	}
	return data, nil
}

// ClearSessionCookie удаляет session cookie из ответа (logout).
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sha256Key хеширует строковый ключ в 32 bytes через SHA-256.
func sha256Key(key string) []byte {
	h := sha256.Sum256([]byte(key))
	return h[:]
}
