package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/goartstore/fileportal/internal/auth"
	"github.com/bigkaa/goartstore/fileportal/internal/config"
	"github.com/bigkaa/goartstore/fileportal/internal/database"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/lifecycle"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/stage"
	"github.com/bigkaa/goartstore/fileportal/internal/repository"
	"github.com/bigkaa/goartstore/fileportal/internal/service"
	"github.com/bigkaa/goartstore/fileportal/internal/storage/blobstore"
)

// app — общие зависимости подкоманд. Пул открывается при первом обращении.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	pool   *pgxpool.Pool
	audit  *service.AuditService
}

func newApp(cfg *config.Config, logger *slog.Logger, out io.Writer) *app {
	return &app{cfg: cfg, logger: logger, out: out}
}

// Close закрывает пул соединений. Повторный вызов безопасен.
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

func (a *app) connect(ctx context.Context) (*pgxpool.Pool, error) {
	if a.pool != nil {
		return a.pool, nil
	}
	pool, err := database.Connect(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.pool = pool
	a.audit = service.NewAuditService(repository.NewAuditRepository(pool), a.logger)
	return pool, nil
}

func (a *app) users(ctx context.Context) (*service.UserService, error) {
	pool, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	hasher, err := auth.NewPasswordHasher(0)
	if err != nil {
		return nil, err
	}
	return service.NewUserService(repository.NewUserRepository(pool), hasher, a.audit, a.cfg.Countries, a.logger), nil
}

func (a *app) invites(ctx context.Context) (*service.InviteService, error) {
	pool, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	return service.NewInviteService(repository.NewInviteRepository(pool), a.audit, a.cfg.Countries, a.cfg.InviteTTL, a.logger), nil
}

func (a *app) files(ctx context.Context) (*service.FileService, error) {
	pool, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	store, err := blobstore.New(a.cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия хранилища: %w", err)
	}
	policy, err := stage.ParsePolicy(a.cfg.StagePolicy)
	if err != nil {
		return nil, err
	}
	return service.NewFileService(repository.NewFileRepository(pool), store, a.audit, service.FileOptions{
		MaxUploadSize:     a.cfg.MaxUploadSize,
		AllowedExtensions: a.cfg.AllowedExtensions,
		Countries:         a.cfg.Countries,
		DefaultCountry:    a.cfg.DefaultCountry,
		StagePolicy:       policy,
		ArchivePolicy:     lifecycle.ArchivePolicy(a.cfg.ArchivePolicy),
	}, a.logger)
}
