// metrics.go — Prometheus HTTP метрики File Portal.
// Регистрирует метрики: fp_http_requests_total, fp_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fp_http_requests_total",
			Help: "Общее количество HTTP-запросов к File Portal",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fp_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к File Portal в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем идентификаторы на шаблон для предотвращения кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// fileActions — допустимые суффиксы после /api/v1/files/{id}.
var fileActions = map[string]bool{
	"content": true, "review": true, "approve": true,
	"unapprove": true, "archive": true, "restore": true,
}

// normalizePath заменяет сегменты-идентификаторы пути на шаблон.
// /api/v1/files/a1b2c3d4-.../approve → /api/v1/files/{id}/approve
// Неизвестные пути сводятся к "other".
func normalizePath(path string) string {
	// Статические пути — возвращаем как есть
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/.well-known/jwks.json",
		"/api/v1/openapi.yaml",
		"/api/v1/auth/login",
		"/api/v1/auth/logout",
		"/api/v1/auth/register",
		"/api/v1/auth/token",
		"/api/v1/auth/me",
		"/api/v1/files",
		"/api/v1/users",
		"/api/v1/invites",
		"/api/v1/audit":
		return path
	}

	prefixes := []struct {
		prefix  string
		result  string
		actions map[string]bool
	}{
		{"/api/v1/files/", "/api/v1/files/{id}", fileActions},
		{"/api/v1/users/", "/api/v1/users/{id}", map[string]bool{"password": true}},
		{"/api/v1/invites/", "/api/v1/invites/{code}", nil},
	}

	for _, p := range prefixes {
		rest, ok := strings.CutPrefix(path, p.prefix)
		if !ok || rest == "" {
			continue
		}
		_, action, hasAction := strings.Cut(rest, "/")
		switch {
		case !hasAction:
			return p.result
		case p.actions[action]:
			return p.result + "/" + action
		}
	}

	return "other"
}
