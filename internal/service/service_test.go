package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/dump-module/internal/domain/model"
	"github.com/bigkaa/goartstore/dump-module/internal/hooks"
	"github.com/bigkaa/goartstore/dump-module/internal/storage/filestore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDB — DatabaseExporter для тестов.
type fakeDB struct {
	// create — создавать ли файл назначения
	create bool
	// empty — создавать файл нулевого размера
	empty bool
	err   error
	calls []string
}

func (f *fakeDB) ExportDatabase(_ context.Context, destPath string) error {
	f.calls = append(f.calls, destPath)
	if f.err != nil {
		return f.err
	}
	if f.empty {
		return os.WriteFile(destPath, nil, 0o644)
	}
	if f.create {
		return os.WriteFile(destPath, []byte("-- dump\n"), 0o644)
	}
	return nil
}

// fakeSources — SourceResolver поверх карты.
type fakeSources map[model.Kind]string

func (f fakeSources) SourceDir(kind model.Kind) (string, error) {
	dir, ok := f[kind]
	if !ok {
		return "", os.ErrNotExist
	}
	return dir, nil
}

// writeFile создаёт файл с родительскими директориями.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("ошибка создания директории: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("ошибка записи файла: %v", err)
	}
}

// testEnv — окружение сервисов поверх временных директорий.
type testEnv struct {
	content string
	storage string
	store   *filestore.FileStore
	hooks   *hooks.Registry
	db      *fakeDB
	export  *ExportService
	catalog *CatalogService
	life    *LifecycleService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	content := t.TempDir()
	storage := filepath.Join(content, "dumps")
	store := filestore.New(storage)
	reg := hooks.New(testLogger())
	db := &fakeDB{create: true}

	sources := fakeSources{
		model.KindThemes:    filepath.Join(content, "themes"),
		model.KindPlugins:   filepath.Join(content, "plugins"),
		model.KindUploads:   filepath.Join(content, "uploads"),
		model.KindLanguages: filepath.Join(content, "languages"),
	}

	return &testEnv{
		content: content,
		storage: storage,
		store:   store,
		hooks:   reg,
		db:      db,
		export:  NewExportService(store, sources, db, reg, testLogger()),
		catalog: NewCatalogService(store, "/api/v1/archives", testLogger()),
		life:    NewLifecycleService(store, reg, testLogger()),
	}
}

// fixedClock фиксирует время экспорта.
func (e *testEnv) fixedClock(t time.Time) {
	e.export.now = func() time.Time { return t }
}

// touchArchive создаёт файл в директории хранения.
func (e *testEnv) touchArchive(t *testing.T, name string, size int) {
	t.Helper()
	if err := os.MkdirAll(e.storage, 0o755); err != nil {
		t.Fatalf("ошибка создания директории: %v", err)
	}
	if err := os.WriteFile(filepath.Join(e.storage, name), make([]byte, size), 0o644); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}
}
