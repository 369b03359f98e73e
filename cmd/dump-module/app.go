// app.go — сборка компонентов dump-module из конфигурации.
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bigkaa/goartstore/dump-module/internal/config"
	"github.com/bigkaa/goartstore/dump-module/internal/hooks"
	"github.com/bigkaa/goartstore/dump-module/internal/service"
	"github.com/bigkaa/goartstore/dump-module/internal/storage/filestore"
)

// app — собранные сервисы одного запуска CLI.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *filestore.FileStore
	hooks     *hooks.Registry
	export    *service.ExportService
	catalog   *service.CatalogService
	lifecycle *service.LifecycleService
}

// newApp загружает конфигурацию, настраивает логгер, собирает сервисы
// и отправляет событие loaded.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("ошибка конфигурации: %w", err)
	}

	logger := config.SetupLogger(cfg)
	logger.Debug("dump-module запускается",
		slog.String("version", config.Version),
		slog.String("content_dir", cfg.Paths.ContentDir),
		slog.String("storage_dir", cfg.Paths.StorageDir),
	)

	store := filestore.New(cfg.Paths.StorageDir)
	reg := hooks.New(logger)
	registerAuditHooks(reg, logger)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		hooks:     reg,
		export:    service.NewExportService(store, cfg.Paths, service.NewCommandExporter(cfg.DBExportCmd, logger), reg, logger),
		catalog:   service.NewCatalogService(store, cfg.DownloadPrefix, logger),
		lifecycle: service.NewLifecycleService(store, reg, logger),
	}

	if err := reg.Emit(ctx, hooks.EventLoaded); err != nil {
		logger.Warn("Ошибка обработки события loaded", slog.String("error", err.Error()))
	}
	return a, nil
}

// close отправляет событие shutdown.
func (a *app) close() {
	if err := a.hooks.Emit(context.Background(), hooks.EventShutdown); err != nil {
		a.logger.Warn("Ошибка обработки события shutdown", slog.String("error", err.Error()))
	}
}

// registerAuditHooks регистрирует журналирование изменений каталога.
func registerAuditHooks(reg *hooks.Registry, logger *slog.Logger) {
	audit := logger.With(slog.String("component", "audit"))

	logArchive := func(_ context.Context, p hooks.Payload) error {
		audit.Info("Изменение каталога архивов",
			slog.String("event", string(p.Event)),
			slog.String("filename", p.Filename),
			slog.Int64("size", p.SizeBytes),
			slog.Time("at", p.At),
		)
		return nil
	}
	reg.On(hooks.EventArchiveExported, logArchive)
	reg.On(hooks.EventArchiveDeleted, logArchive)

	logApp := func(_ context.Context, p hooks.Payload) error {
		audit.Debug("Событие приложения", slog.String("event", string(p.Event)))
		return nil
	}
	reg.On(hooks.EventLoaded, logApp)
	reg.On(hooks.EventShutdown, logApp)
}
