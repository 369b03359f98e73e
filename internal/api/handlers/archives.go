// archives.go — HTTP handlers каталога архивов.
// List, Months, Create (экспорт), Download, Delete.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/dump-module/internal/api/errors"
	"github.com/bigkaa/goartstore/dump-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/dump-module/internal/domain/model"
	"github.com/bigkaa/goartstore/dump-module/internal/domain/naming"
	"github.com/bigkaa/goartstore/dump-module/internal/service"
	"github.com/bigkaa/goartstore/dump-module/internal/storage/packer"
)

// maxCreateBodyBytes — ограничение тела POST /api/v1/archives.
const maxCreateBodyBytes = 64 << 10

// ArchivesHandler — обработчик endpoints /api/v1/archives.
type ArchivesHandler struct {
	catalog   *service.CatalogService
	export    *service.ExportService
	lifecycle *service.LifecycleService
	logger    *slog.Logger
}

// NewArchivesHandler создаёт обработчик архивов.
func NewArchivesHandler(
	catalog *service.CatalogService,
	export *service.ExportService,
	lifecycle *service.LifecycleService,
	logger *slog.Logger,
) *ArchivesHandler {
	return &ArchivesHandler{
		catalog:   catalog,
		export:    export,
		lifecycle: lifecycle,
		logger:    logger.With(slog.String("component", "archives_handler")),
	}
}

// createArchiveRequest — тело POST /api/v1/archives.
type createArchiveRequest struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// createArchiveResponse — созданный архив.
type createArchiveResponse struct {
	model.ArchiveRecord
	Files      int   `json:"files"`
	DurationMs int64 `json:"duration_ms"`
}

// monthsResponse — ответ GET /api/v1/archives/months.
type monthsResponse struct {
	Items []service.MonthOption `json:"items"`
}

// ListArchives обрабатывает GET /api/v1/archives.
// Параметры: s (поиск), m (месяц YYYYMM), orderby, order, paged (страница с 1).
func (h *ArchivesHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	result, err := h.catalog.List(q)
	if err != nil {
		h.writeServiceError(w, err, apierrors.InternalError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// parseListQuery разбирает параметры запроса каталога.
func parseListQuery(values url.Values) (service.Query, error) {
	month, err := service.ParseMonth(values.Get("m"))
	if err != nil {
		return service.Query{}, err
	}
	orderBy, err := service.ParseOrderBy(values.Get("orderby"))
	if err != nil {
		return service.Query{}, err
	}
	order, err := service.ParseOrder(values.Get("order"))
	if err != nil {
		return service.Query{}, err
	}

	page := 1
	if raw := values.Get("paged"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return service.Query{}, fmt.Errorf("параметр paged должен быть целым числом >= 1, получено %q", raw)
		}
	}

	return service.Query{
		Search:  strings.TrimSpace(values.Get("s")),
		Month:   month,
		OrderBy: orderBy,
		Order:   order,
		Page:    page,
	}, nil
}

// ListMonths обрабатывает GET /api/v1/archives/months.
func (h *ArchivesHandler) ListMonths(w http.ResponseWriter, _ *http.Request) {
	months, err := h.catalog.Months()
	if err != nil {
		h.writeServiceError(w, err, apierrors.InternalError)
		return
	}
	if months == nil {
		months = []service.MonthOption{}
	}
	writeJSON(w, http.StatusOK, monthsResponse{Items: months})
}

// CreateArchive обрабатывает POST /api/v1/archives.
// Экспорт произвольной директории (kind=folder) через API запрещён.
func (h *ArchivesHandler) CreateArchive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCreateBodyBytes)

	var req createArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	kind, ok := model.ParseKind(strings.TrimSpace(req.Kind))
	if !ok {
		apierrors.ValidationError(w, fmt.Sprintf(
			"Неизвестная цель экспорта %q, допустимые: database, themes, plugins, uploads, languages", req.Kind))
		return
	}
	if kind == model.KindFolder {
		apierrors.ValidationError(w, "Экспорт произвольной директории доступен только из CLI")
		return
	}

	h.logger.Info("Запрос экспорта",
		slog.String("kind", string(kind)),
		slog.String("subject", middleware.SubjectFromContext(r.Context())),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)

	result, err := h.export.Export(r.Context(), model.Target{Kind: kind}, req.Name)
	if err != nil {
		h.writeServiceError(w, err, apierrors.ExportFailed)
		return
	}

	filename := result.Name.Filename()
	writeJSON(w, http.StatusCreated, createArchiveResponse{
		ArchiveRecord: model.ArchiveRecord{
			Name:        result.Name,
			Filename:    filename,
			SizeBytes:   result.SizeBytes,
			DownloadURL: h.catalog.DownloadURL(filename),
		},
		Files:      result.Files,
		DurationMs: result.Duration.Milliseconds(),
	})
}

// DownloadArchive обрабатывает GET /api/v1/archives/{filename}/download.
// Поддерживает Range requests через http.ServeContent.
func (h *ArchivesHandler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	filename, ok := filenameParam(w, r)
	if !ok {
		return
	}

	if err := h.lifecycle.Serve(w, r, filename); err != nil {
		h.writeServiceError(w, err, apierrors.InternalError)
	}
}

// DeleteArchive обрабатывает DELETE /api/v1/archives/{filename}.
func (h *ArchivesHandler) DeleteArchive(w http.ResponseWriter, r *http.Request) {
	filename, ok := filenameParam(w, r)
	if !ok {
		return
	}

	if err := h.lifecycle.Delete(r.Context(), filename); err != nil {
		h.writeServiceError(w, err, apierrors.InternalError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// filenameParam извлекает имя файла из URL. chi сопоставляет маршрут
// по RawPath, если он задан, поэтому значение нужно раскодировать.
func filenameParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	filename := chi.URLParam(r, "filename")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(filename)
		if err != nil {
			apierrors.InvalidFilename(w, "Некорректное кодирование имени файла")
			return "", false
		}
		filename = unescaped
	}
	return filename, true
}

// writeServiceError отображает ошибку сервисного слоя в HTTP-ответ.
// fallback используется для ошибок без отдельного кода.
func (h *ArchivesHandler) writeServiceError(w http.ResponseWriter, err error, fallback func(http.ResponseWriter, string)) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrAlreadyExists):
		apierrors.AlreadyExists(w, err.Error())
	case errors.Is(err, service.ErrInvalidFilename):
		apierrors.InvalidFilename(w, err.Error())
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, packer.ErrSourceNotFound),
		errors.Is(err, packer.ErrSourceNotDir),
		errors.Is(err, packer.ErrEmptyInput),
		errors.Is(err, naming.ErrInvalidExtension),
		errors.Is(err, naming.ErrInvalidFormat):
		apierrors.ValidationError(w, err.Error())
	default:
		h.logger.Error("Ошибка обработки запроса", slog.String("error", err.Error()))
		fallback(w, err.Error())
	}
}

// writeJSON сериализует v в ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
