package database

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/goartstore/fileportal/internal/config"
)

// setupTestDB запускает PostgreSQL в Docker-контейнере через testcontainers.
func setupTestDB(t *testing.T) *config.Config {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("fileportal_test"),
		postgres.WithUsername("fileportal"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	t.Setenv("FP_DB_HOST", host)
	t.Setenv("FP_DB_PORT", port.Port())
	t.Setenv("FP_DB_NAME", "fileportal_test")
	t.Setenv("FP_DB_USER", "fileportal")
	t.Setenv("FP_DB_PASSWORD", "test-password")
	t.Setenv("FP_DB_SSL_MODE", "disable")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestMigrationURL(t *testing.T) {
	cfg := &config.Config{
		DBHost: "db", DBPort: 5433, DBName: "portal",
		DBUser: "fp", DBPassword: "p@ss:word", DBSSLMode: "disable",
	}
	expected := "pgx5://fp:p%40ss%3Aword@db:5433/portal?sslmode=disable"
	if got := migrationURL(cfg); got != expected {
		t.Errorf("migrationURL() = %q, ожидается %q", got, expected)
	}
}

// TestConnect проверяет подключение к PostgreSQL через pgxpool.
func TestConnect(t *testing.T) {
	cfg := setupTestDB(t)
	ctx := context.Background()

	pool, err := Connect(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	checker := NewReadinessChecker(pool)
	if status, msg := checker.CheckReady(); status != "ok" {
		t.Errorf("CheckReady() = %q (%s), ожидается ok", status, msg)
	}
}

// TestMigrate проверяет применение миграций.
func TestMigrate(t *testing.T) {
	cfg := setupTestDB(t)
	logger := testLogger()

	if err := Migrate(cfg, logger); err != nil {
		t.Fatalf("Migrate() вернул ошибку: %v", err)
	}
	// Повторное применение — без ошибки (ErrNoChange)
	if err := Migrate(cfg, logger); err != nil {
		t.Fatalf("Повторный Migrate() вернул ошибку: %v", err)
	}

	ctx := context.Background()
	pool, err := Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	for _, table := range []string{"users", "invites", "files", "file_reviews", "audit_log"} {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)`, table).Scan(&exists)
		if err != nil {
			t.Fatalf("Ошибка проверки таблицы %s: %v", table, err)
		}
		if !exists {
			t.Errorf("Таблица %s не создана", table)
		}
	}

	// Роль country без стран нарушает ограничение
	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, role) VALUES (gen_random_uuid(), 'x', 'h', 'country')`)
	if err == nil {
		t.Error("ожидается ошибка ограничения users_country_scope")
	}
}
