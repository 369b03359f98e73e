// system.go — обработчик GET /api/v1/info (информация о dump-module).
// Публичный endpoint для мониторинга и admin UI.
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/goartstore/dump-module/internal/api/errors"
	"github.com/bigkaa/goartstore/dump-module/internal/config"
	"github.com/bigkaa/goartstore/dump-module/internal/service"
	"github.com/bigkaa/goartstore/dump-module/internal/storage/filestore"
)

// SystemHandler — обработчик системных endpoints.
type SystemHandler struct {
	cfg     *config.Config
	catalog *service.CatalogService
	store   *filestore.FileStore
	logger  *slog.Logger
}

// NewSystemHandler создаёт обработчик системных endpoints.
func NewSystemHandler(
	cfg *config.Config,
	catalog *service.CatalogService,
	store *filestore.FileStore,
	logger *slog.Logger,
) *SystemHandler {
	return &SystemHandler{
		cfg:     cfg,
		catalog: catalog,
		store:   store,
		logger:  logger.With(slog.String("component", "system_handler")),
	}
}

// infoResponse — ответ GET /api/v1/info.
type infoResponse struct {
	Service        string               `json:"service"`
	Version        string               `json:"version"`
	StorageDir     string               `json:"storage_dir"`
	DownloadPrefix string               `json:"download_prefix"`
	AuthEnabled    bool                 `json:"auth_enabled"`
	PageSize       int                  `json:"page_size"`
	Archives       *service.Stats       `json:"archives"`
	Capacity       *filestore.DiskUsage `json:"capacity,omitempty"`
}

// GetInfo обрабатывает GET /api/v1/info.
// Ошибка statfs не фатальна: capacity просто не выводится.
func (h *SystemHandler) GetInfo(w http.ResponseWriter, _ *http.Request) {
	stats, err := h.catalog.Stats()
	if err != nil {
		h.logger.Error("Ошибка подсчёта архивов", slog.String("error", err.Error()))
		apierrors.InternalError(w, err.Error())
		return
	}

	capacity, err := h.store.DiskUsage()
	if err != nil {
		h.logger.Warn("Не удалось получить ёмкость диска", slog.String("error", err.Error()))
		capacity = nil
	}

	writeJSON(w, http.StatusOK, infoResponse{
		Service:        serviceName,
		Version:        config.Version,
		StorageDir:     h.store.Dir(),
		DownloadPrefix: h.cfg.DownloadPrefix,
		AuthEnabled:    h.cfg.AuthEnabled(),
		PageSize:       service.PageSize,
		Archives:       stats,
		Capacity:       capacity,
	})
}
