// Пакет server — HTTP-сервер dump-module с TLS и graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/goartstore/dump-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/dump-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/dump-module/internal/config"
)

// Handlers — набор обработчиков, монтируемых в роутер.
type Handlers struct {
	Archives *handlers.ArchivesHandler
	Health   *handlers.HealthHandler
	System   *handlers.SystemHandler
	// Auth — JWT middleware; nil отключает аутентификацию /api/v1/archives
	Auth *middleware.JWTAuth
}

// Server — HTTP-сервер dump-module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, h Handlers) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, h),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	if cfg.TLSEnabled() {
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "http_server")),
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер.
//
// Публичные: /health/live, /health/ready, /metrics, /api/v1/info.
// /api/v1/archives — за JWT (если h.Auth задан): чтение требует dumps:read,
// создание и удаление — dumps:write.
func NewRouter(logger *slog.Logger, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MetricsMiddleware())

	r.Get("/health/live", h.Health.HealthLive)
	r.Get("/health/ready", h.Health.HealthReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/v1/info", h.System.GetInfo)

	r.Route("/api/v1/archives", func(r chi.Router) {
		if h.Auth != nil {
			r.Use(h.Auth.Middleware())
		}

		r.Group(func(r chi.Router) {
			if h.Auth != nil {
				r.Use(middleware.RequireScope(middleware.ScopeRead))
			}
			r.Get("/", h.Archives.ListArchives)
			r.Get("/months", h.Archives.ListMonths)
			r.Get("/{filename}/download", h.Archives.DownloadArchive)
		})

		r.Group(func(r chi.Router) {
			if h.Auth != nil {
				r.Use(middleware.RequireScope(middleware.ScopeWrite))
			}
			r.Post("/", h.Archives.CreateArchive)
			r.Delete("/{filename}", h.Archives.DeleteArchive)
		})
	})

	return r
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM)
// или отмены ctx. Затем выполняется graceful shutdown с таймаутом
// DUMP_SHUTDOWN_TIMEOUT.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
			slog.Bool("tls", s.cfg.TLSEnabled()),
			slog.Bool("auth", s.cfg.AuthEnabled()),
		)

		var err error
		if s.cfg.TLSEnabled() {
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("Контекст отменён, остановка сервера")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
