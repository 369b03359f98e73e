// serve.go — подкоманда serve: HTTP API каталога архивов.
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bigkaa/goartstore/dump-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/dump-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/dump-module/internal/config"
	"github.com/bigkaa/goartstore/dump-module/internal/server"
	"github.com/bigkaa/goartstore/dump-module/internal/service"
)

// newServeCmd создаёт подкоманду запуска HTTP-сервера.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP API каталога архивов",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			return runServer(cmd.Context(), a)
		},
	}
}

// runServer собирает handlers, JWT и мониторинг зависимостей и запускает сервер.
func runServer(ctx context.Context, a *app) error {
	cfg, logger := a.cfg, a.logger

	// До запуска listener: API без аутентификации только по явному флагу
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	logger.Info("dump-module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage_dir", cfg.Paths.StorageDir),
	)

	// Метрики каталога до первого запроса
	if _, err := a.catalog.Stats(); err != nil {
		logger.Warn("Не удалось просканировать директорию хранения", slog.String("error", err.Error()))
	}

	var (
		jwtAuth   *middleware.JWTAuth
		depHealth handlers.DependencyHealth
	)

	if cfg.AuthEnabled() {
		auth, err := middleware.NewJWTAuth(middleware.JWTAuthConfig{
			JWKSURL:         cfg.JWKSUrl,
			CACertPath:      cfg.JWKSCACert,
			TLSSkipVerify:   cfg.TLSSkipVerify,
			ClientTimeout:   cfg.JWKSClientTimeout,
			RefreshInterval: cfg.JWKSRefreshInterval,
			JWTLeeway:       cfg.JWTLeeway,
		}, logger)
		if err != nil {
			return fmt.Errorf("ошибка инициализации JWT: %w", err)
		}
		jwtAuth = auth
		logger.Info("JWT аутентификация настроена", slog.String("jwks_url", cfg.JWKSUrl))

		dephealthSvc, err := service.NewDephealthService(service.DephealthConfig{
			ServiceID:     cfg.ServiceID,
			Group:         cfg.DephealthGroup,
			DepName:       cfg.DephealthDepName,
			URL:           cfg.JWKSUrl,
			CheckInterval: cfg.DephealthCheckInterval,
			TLSSkipVerify: cfg.TLSSkipVerify,
		}, logger)
		if err != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", err.Error()),
			)
		} else if err := dephealthSvc.Start(ctx); err != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		} else {
			defer dephealthSvc.Stop()
			depHealth = dephealthSvc
		}
	} else {
		logger.Warn("DUMP_AUTH_DISABLED=true, API архивов доступно без аутентификации")
	}

	srv := server.New(cfg, logger, server.Handlers{
		Archives: handlers.NewArchivesHandler(a.catalog, a.export, a.lifecycle, logger),
		Health:   handlers.NewHealthHandler(cfg.Paths.StorageDir, depHealth),
		System:   handlers.NewSystemHandler(cfg, a.catalog, a.store, logger),
		Auth:     jwtAuth,
	})

	if err := srv.Run(ctx); err != nil {
		return err
	}

	logger.Info("dump-module остановлен")
	return nil
}
