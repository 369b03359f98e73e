// export.go — сервис экспорта архивов.
//
// Export строит каноническое имя, проверяет отсутствие файла и создаёт архив:
// SQL-дамп через внешний DatabaseExporter или zip-архив директории через packer.
// Повторов и очистки частичного результата нет.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bigkaa/goartstore/dump-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/dump-module/internal/domain/model"
	"github.com/bigkaa/goartstore/dump-module/internal/domain/naming"
	"github.com/bigkaa/goartstore/dump-module/internal/hooks"
	"github.com/bigkaa/goartstore/dump-module/internal/storage/filestore"
	"github.com/bigkaa/goartstore/dump-module/internal/storage/packer"
)

// SourceResolver — резолвер исходных директорий для целей экспорта.
type SourceResolver interface {
	SourceDir(kind model.Kind) (string, error)
}

// ExportResult — результат успешного экспорта.
type ExportResult struct {
	Name model.ArchiveName
	// Path — полный путь к созданному архиву
	Path      string
	SizeBytes int64
	// Files — количество упакованных файлов (0 для database)
	Files    int
	Duration time.Duration
}

// ExportService — сервис создания архивов.
type ExportService struct {
	store   *filestore.FileStore
	sources SourceResolver
	db      DatabaseExporter
	hooks   *hooks.Registry
	now     func() time.Time
	logger  *slog.Logger
}

// NewExportService создаёт сервис экспорта.
func NewExportService(
	store *filestore.FileStore,
	sources SourceResolver,
	db DatabaseExporter,
	hooksRegistry *hooks.Registry,
	logger *slog.Logger,
) *ExportService {
	return &ExportService{
		store:   store,
		sources: sources,
		db:      db,
		hooks:   hooksRegistry,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "export_service")),
	}
}

// Export создаёт архив для цели target. Пустой baseName заменяется
// именем цели по умолчанию.
func (s *ExportService) Export(ctx context.Context, target model.Target, baseName string) (*ExportResult, error) {
	start := time.Now()

	res, err := s.export(ctx, target, baseName)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("export", "error").Inc()
		s.logger.Error("Ошибка экспорта",
			slog.String("kind", string(target.Kind)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	res.Duration = time.Since(start)
	middleware.OperationsTotal.WithLabelValues("export", "success").Inc()
	middleware.ExportDuration.WithLabelValues(string(target.Kind)).Observe(res.Duration.Seconds())

	s.logger.Info("Архив создан",
		slog.String("kind", string(target.Kind)),
		slog.String("filename", res.Name.Filename()),
		slog.Int64("size", res.SizeBytes),
		slog.Int("files", res.Files),
		slog.Duration("duration", res.Duration),
	)

	if s.hooks != nil {
		// Ошибки обработчиков не отменяют созданный архив
		_ = s.hooks.Dispatch(ctx, hooks.Payload{
			Event:     hooks.EventArchiveExported,
			Filename:  res.Name.Filename(),
			Path:      res.Path,
			SizeBytes: res.SizeBytes,
		})
	}

	return res, nil
}

func (s *ExportService) export(ctx context.Context, target model.Target, baseName string) (*ExportResult, error) {
	if _, ok := model.ParseKind(string(target.Kind)); !ok {
		return nil, fmt.Errorf("%w: неизвестная цель экспорта %q", ErrValidation, target.Kind)
	}

	// 1. Исходная директория (для database не нужна)
	var sourceDir string
	switch target.Kind {
	case model.KindDatabase:
	case model.KindFolder:
		if strings.TrimSpace(target.Path) == "" {
			return nil, fmt.Errorf("%w: не указан путь к директории", ErrValidation)
		}
		sourceDir = target.Path
	default:
		dir, err := s.sources.SourceDir(target.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		sourceDir = dir
	}

	// 2. Директория хранения
	if err := s.store.EnsureDir(); err != nil {
		return nil, err
	}

	// 3. Каноническое имя и его проверка разбором
	if strings.TrimSpace(baseName) == "" {
		baseName = target.Kind.DefaultBaseName()
	}
	name := naming.New(baseName, s.now(), target.Kind.Extension())
	filename := name.Filename()
	if _, err := naming.Decode(filename); err != nil {
		return nil, fmt.Errorf("сформировано некорректное имя архива: %w", err)
	}

	destPath, err := s.store.Path(filename)
	if err != nil {
		return nil, fmt.Errorf("сформировано некорректное имя архива: %w", err)
	}

	// 4. Существующий архив не перезаписывается
	if s.store.Exists(filename) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, filename)
	}

	// 5. Создание архива
	res := &ExportResult{Name: name, Path: destPath}
	if target.Kind == model.KindDatabase {
		// Проверка выше носит рекомендательный характер: файл создаёт внешняя команда
		if err := s.db.ExportDatabase(ctx, destPath); err != nil {
			return nil, fmt.Errorf("ошибка экспорта базы данных: %w", err)
		}
	} else {
		packed, err := packer.Pack(ctx, sourceDir, destPath)
		if err != nil {
			if errors.Is(err, packer.ErrDestinationExists) {
				return nil, fmt.Errorf("%w: %w", ErrAlreadyExists, err)
			}
			return nil, fmt.Errorf("ошибка упаковки %s: %w", sourceDir, err)
		}
		res.Files = packed.Files
	}

	// 6. Архив должен существовать и быть непустым
	size, err := s.store.Size(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrVerificationFailed, destPath)
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: пустой файл %s", ErrVerificationFailed, destPath)
	}
	res.SizeBytes = size

	return res, nil
}
