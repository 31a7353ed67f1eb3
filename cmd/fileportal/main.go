// Точка входа File Portal — портал обмена файлами между странами.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// открывает файловое хранилище, создаёт сервисный слой и API handlers,
// запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/goartstore/fileportal/internal/api/handlers"
	"github.com/bigkaa/goartstore/fileportal/internal/api/middleware"
	"github.com/bigkaa/goartstore/fileportal/internal/api/openapi"
	"github.com/bigkaa/goartstore/fileportal/internal/auth"
	"github.com/bigkaa/goartstore/fileportal/internal/config"
	"github.com/bigkaa/goartstore/fileportal/internal/database"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/lifecycle"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/stage"
	"github.com/bigkaa/goartstore/fileportal/internal/repository"
	"github.com/bigkaa/goartstore/fileportal/internal/server"
	"github.com/bigkaa/goartstore/fileportal/internal/service"
	"github.com/bigkaa/goartstore/fileportal/internal/storage/blobstore"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("File Portal запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.Any("countries", cfg.Countries),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Файловое хранилище (active/, approved/, archive/)
	store, err := blobstore.New(cfg.StorageDir)
	if err != nil {
		logger.Error("Ошибка открытия файлового хранилища",
			slog.String("dir", cfg.StorageDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	logger.Info("Файловое хранилище открыто", slog.String("root", store.Root()))

	// 6. Сессии, пароли и API-токены
	sessions, err := auth.NewSessionManager(cfg.SessionSecret, cfg.CookieSecure, cfg.SessionTTL)
	if err != nil {
		logger.Error("Ошибка создания Session Manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if sessions.Generated {
		logger.Warn("FP_SESSION_SECRET не задан, сессии не сохраняются между рестартами")
	}

	hasher, err := auth.NewPasswordHasher(0)
	if err != nil {
		logger.Error("Ошибка создания хешера паролей", slog.String("error", err.Error()))
		os.Exit(1)
	}

	signingKey, generatedKey, err := auth.LoadSigningKey(cfg.TokenKeyPath)
	if err != nil {
		logger.Error("Ошибка загрузки ключа API-токенов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if generatedKey {
		logger.Warn("FP_TOKEN_KEY_PATH не задан, API-токены не переживут рестарт")
	}
	tokens, err := auth.NewTokenService(ctx, signingKey, cfg.TokenIssuer, cfg.TokenTTL)
	if err != nil {
		logger.Error("Ошибка создания сервиса API-токенов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("API-токены инициализированы",
		slog.String("kid", tokens.KeyID()),
		slog.String("ttl", tokens.TTL().String()),
	)

	// 7. Repositories
	userRepo := repository.NewUserRepository(pool)
	inviteRepo := repository.NewInviteRepository(pool)
	fileRepo := repository.NewFileRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	// 8. Services
	stagePolicy, err := stage.ParsePolicy(cfg.StagePolicy)
	if err != nil {
		logger.Error("Ошибка политики стадий", slog.String("error", err.Error()))
		os.Exit(1)
	}

	auditSvc := service.NewAuditService(auditRepo, logger)
	authSvc := service.NewAuthService(userRepo, hasher, tokens, auditSvc, service.AuthOptions{
		InviteCode:       cfg.InviteCode,
		LoginMaxFailures: cfg.LoginMaxFailures,
		LoginLockout:     cfg.LoginLockout,
	}, logger)
	usersSvc := service.NewUserService(userRepo, hasher, auditSvc, cfg.Countries, logger)
	invitesSvc := service.NewInviteService(inviteRepo, auditSvc, cfg.Countries, cfg.InviteTTL, logger)
	filesSvc, err := service.NewFileService(fileRepo, store, auditSvc, service.FileOptions{
		MaxUploadSize:     cfg.MaxUploadSize,
		AllowedExtensions: cfg.AllowedExtensions,
		Countries:         cfg.Countries,
		DefaultCountry:    cfg.DefaultCountry,
		StagePolicy:       stagePolicy,
		ArchivePolicy:     lifecycle.ArchivePolicy(cfg.ArchivePolicy),
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания сервиса файлов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 8.1 Сверка хранилища с БД при старте (только отчёт и перенос blob-ов)
	if report, recErr := filesSvc.Reconcile(ctx, service.ReconcileOptions{}); recErr != nil {
		logger.Warn("Ошибка сверки хранилища", slog.String("error", recErr.Error()))
	} else if len(report.OrphanBlobs) > 0 || len(report.MissingBlobs) > 0 || len(report.Relocated) > 0 {
		logger.Warn("Сверка хранилища выявила расхождения",
			slog.Int("records", report.Records),
			slog.Int("orphan_blobs", len(report.OrphanBlobs)),
			slog.Int("missing_blobs", len(report.MissingBlobs)),
			slog.Int("relocated", len(report.Relocated)),
		)
	}

	// 8.2 Без активного super учётными записями управлять некому
	if supers, cErr := userRepo.CountActiveSupers(ctx); cErr != nil {
		logger.Warn("Ошибка подсчёта активных super", slog.String("error", cErr.Error()))
	} else if supers == 0 {
		logger.Warn("Нет активных пользователей super, создайте через fileportalctl create-user -role super")
	}

	// 9. Readiness checkers (PostgreSQL + файловое хранилище)
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), store)

	// 10. API handler (реализует generated.ServerInterface)
	apiHandler := handlers.NewAPIHandler(healthHandler, handlers.Services{
		Auth:    authSvc,
		Users:   usersSvc,
		Invites: invitesSvc,
		Files:   filesSvc,
		Audit:   auditSvc,
		JWKS:    tokens,
	}, sessions, cfg.MaxUploadSize, logger)

	// 11. Middleware аутентификации и проверки по OpenAPI контракту
	authn := middleware.NewAuthenticator(sessions, authSvc, logger)

	doc, err := openapi.Load(ctx)
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}
	validator, err := middleware.NewRequestValidator(doc, logger)
	if err != nil {
		logger.Error("Ошибка создания валидатора запросов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. topologymetrics — мониторинг зависимостей (PostgreSQL)
	var dephealthSvc *service.DephealthService
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"fileportal",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 13. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, authn, validator)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 14. Graceful shutdown фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("File Portal остановлен")
}
