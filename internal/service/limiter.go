// limiter.go — счётчик неудачных попыток входа.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// loginLimiterSize — максимальное число отслеживаемых имён.
const loginLimiterSize = 10000

// loginLimiter считает неудачные попытки по имени пользователя.
// Счётчик живёт lockout с момента последней неудачи.
type loginLimiter struct {
	mu       sync.Mutex
	failures *expirable.LRU[string, int]
	max      int
}

// newLoginLimiter создаёт счётчик. max <= 0 отключает блокировку.
func newLoginLimiter(max int, lockout time.Duration) *loginLimiter {
	if lockout <= 0 {
		lockout = 15 * time.Minute
	}
	return &loginLimiter{
		failures: expirable.NewLRU[string, int](loginLimiterSize, nil, lockout),
		max:      max,
	}
}

// Blocked сообщает, исчерпан ли лимит попыток.
func (l *loginLimiter) Blocked(username string) bool {
	if l.max <= 0 {
		return false
	}
	n, ok := l.failures.Peek(username)
	return ok && n >= l.max
}

// Fail увеличивает счётчик и возвращает новое значение.
func (l *loginLimiter) Fail(username string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, _ := l.failures.Peek(username)
	n++
	l.failures.Add(username, n)
	return n
}

// Reset сбрасывает счётчик после успешного входа.
func (l *loginLimiter) Reset(username string) {
	l.failures.Remove(username)
}
