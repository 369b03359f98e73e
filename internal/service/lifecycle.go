// lifecycle.go — удаление и скачивание архивов.
//
// Операции принимают простое имя файла в директории хранения.
// Разбор канонического имени не требуется: удалить и скачать можно
// и файл, который каталог пропускает.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"

	"github.com/bigkaa/goartstore/dump-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/dump-module/internal/domain/naming"
	"github.com/bigkaa/goartstore/dump-module/internal/hooks"
	"github.com/bigkaa/goartstore/dump-module/internal/storage/filestore"
)

// LifecycleService — сервис удаления и скачивания архивов.
type LifecycleService struct {
	store  *filestore.FileStore
	hooks  *hooks.Registry
	logger *slog.Logger
}

// NewLifecycleService создаёт сервис жизненного цикла архивов.
func NewLifecycleService(store *filestore.FileStore, hooksRegistry *hooks.Registry, logger *slog.Logger) *LifecycleService {
	return &LifecycleService{
		store:  store,
		hooks:  hooksRegistry,
		logger: logger.With(slog.String("component", "lifecycle_service")),
	}
}

// Delete удаляет архив. Отсутствующий файл — ErrNotFound.
func (s *LifecycleService) Delete(ctx context.Context, filename string) error {
	path, err := s.store.Path(filename)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("delete", "error").Inc()
		return mapStoreError(err, filename)
	}

	if err := s.store.Remove(filename); err != nil {
		middleware.OperationsTotal.WithLabelValues("delete", "error").Inc()
		return mapStoreError(err, filename)
	}

	middleware.OperationsTotal.WithLabelValues("delete", "success").Inc()
	s.logger.Info("Архив удалён", slog.String("filename", filename))

	if s.hooks != nil {
		_ = s.hooks.Dispatch(ctx, hooks.Payload{
			Event:    hooks.EventArchiveDeleted,
			Filename: filename,
			Path:     path,
		})
	}
	return nil
}

// Open открывает архив для чтения. Вызывающий код обязан закрыть файл.
func (s *LifecycleService) Open(filename string) (*os.File, os.FileInfo, error) {
	f, info, err := s.store.Open(filename)
	if err != nil {
		return nil, nil, mapStoreError(err, filename)
	}
	return f, info, nil
}

// Serve отдаёт архив клиенту как вложение через http.ServeContent.
// Поддерживает Range requests и If-Modified-Since.
// Ошибка возвращается до записи ответа.
func (s *LifecycleService) Serve(w http.ResponseWriter, r *http.Request, filename string) error {
	f, info, err := s.Open(filename)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("download", "error").Inc()
		return err
	}
	defer f.Close()

	contentType := "application/octet-stream"
	if name, err := naming.Decode(filename); err == nil {
		contentType = name.Extension.ContentType()
	}

	w.Header().Set("Content-Type", contentType)
	// Для не-ASCII имён FormatMediaType добавляет filename* (RFC 2231)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Cache-Control", "must-revalidate")
	w.Header().Set("Accept-Ranges", "bytes")

	http.ServeContent(w, r, filename, info.ModTime(), f)

	middleware.OperationsTotal.WithLabelValues("download", "success").Inc()
	s.logger.Debug("Архив скачан",
		slog.String("filename", filename),
		slog.Int64("size", info.Size()),
	)
	return nil
}

// mapStoreError переводит ошибки filestore в ошибки сервисного слоя.
func mapStoreError(err error, filename string) error {
	switch {
	case errors.Is(err, filestore.ErrInvalidName):
		return fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	case errors.Is(err, filestore.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	return err
}
