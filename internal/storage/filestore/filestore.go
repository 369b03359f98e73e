// Пакет filestore — операции с файлами в плоской директории хранения архивов.
// Директория — единственный источник истины: метаданные не хранятся,
// всё выводится из имён и атрибутов файлов.
package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Ошибки файлового хранилища.
var (
	// ErrNotFound — файл отсутствует в директории хранения
	ErrNotFound = errors.New("файл не найден")
	// ErrInvalidName — имя не является простым именем файла
	ErrInvalidName = errors.New("недопустимое имя файла")
)

// Entry — обычный файл директории хранения.
type Entry struct {
	// Name — имя файла без пути
	Name string
	// Size — размер в байтах
	Size int64
}

// FileStore — доступ к директории хранения архивов.
type FileStore struct {
	// dir — директория хранения (DUMP_STORAGE_DIR)
	dir string
}

// New создаёт FileStore. Директория не создаётся: её отсутствие
// означает пустой каталог, создаёт её только экспорт (EnsureDir).
func New(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir возвращает путь к директории хранения.
func (s *FileStore) Dir() string {
	return s.dir
}

// EnsureDir создаёт директорию хранения, если её нет. Идемпотентна.
func (s *FileStore) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию хранения %s: %w", s.dir, err)
	}
	return nil
}

// Path возвращает полный путь к файлу. Имя должно быть простым.
func (s *FileStore) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// Entries возвращает обычные файлы директории в порядке имён.
// Поддиректории и прочие не-регулярные записи пропускаются.
// Отсутствующая директория — пустой результат без ошибки.
// Файлы, исчезнувшие во время перечисления, просто не попадают в результат.
func (s *FileStore) Entries() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", s.dir, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Файл удалён между ReadDir и Info
			continue
		}
		entries = append(entries, Entry{Name: de.Name(), Size: info.Size()})
	}
	return entries, nil
}

// Open открывает файл для чтения. Вызывающий код обязан закрыть файл.
func (s *FileStore) Open(name string) (*os.File, os.FileInfo, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, nil, fmt.Errorf("ошибка открытия файла %s: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("ошибка получения информации о файле %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return f, info, nil
}

// Remove удаляет файл. В отличие от удаления в хранилищах с метаданными,
// отсутствие файла — ошибка ErrNotFound.
func (s *FileStore) Remove(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}

	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("ошибка получения информации о файле %s: %w", name, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("ошибка удаления файла %s: %w", name, err)
	}
	return nil
}

// Exists проверяет наличие записи с таким именем (любого типа).
func (s *FileStore) Exists(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}
	_, err = os.Lstat(path)
	return err == nil
}

// Size возвращает размер файла.
func (s *FileStore) Size(name string) (int64, error) {
	path, err := s.Path(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return 0, fmt.Errorf("ошибка получения информации о файле %s: %w", name, err)
	}
	return info.Size(), nil
}

// ValidateName проверяет, что name — простое имя файла внутри директории:
// непустое, без разделителей пути, не "." и не "..".
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// nearestExisting возвращает path или ближайшую существующую родительскую директорию.
func nearestExisting(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
