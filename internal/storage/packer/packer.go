// Пакет packer — упаковка директории в zip-архив.
//
// Pack рекурсивно собирает все файлы директории и записывает их в новый
// архив с путями относительно исходной директории. Существующий архив
// никогда не перезаписывается: файл открывается с O_EXCL.
package packer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// Ошибки упаковки.
var (
	ErrSourceNotFound         = errors.New("исходная директория не существует")
	ErrSourceNotDir           = errors.New("исходный путь не является директорией")
	ErrDestinationDirNotFound = errors.New("директория назначения не существует")
	ErrDestinationExists      = errors.New("архив уже существует")
	ErrEmptyInput             = errors.New("в директории нет файлов для упаковки")
	ErrCreateFailed           = errors.New("не удалось создать архив")
)

// Result — итог упаковки.
type Result struct {
	// Files — количество файлов в архиве
	Files int
	// Bytes — суммарный несжатый размер файлов
	Bytes int64
}

// fileEntry — файл, найденный при обходе директории.
type fileEntry struct {
	path string
	rel  string
	info fs.FileInfo
}

// Pack упаковывает sourceDir в zip-архив archivePath.
//
// Частично записанный архив при ошибке не удаляется.
// ctx проверяется между файлами; собственного таймаута нет.
func Pack(ctx context.Context, sourceDir, archivePath string) (*Result, error) {
	// Предварительные проверки до каких-либо операций записи
	srcInfo, err := os.Stat(sourceDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, sourceDir)
		}
		return nil, fmt.Errorf("ошибка stat %s: %w", sourceDir, err)
	}
	if !srcInfo.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotDir, sourceDir)
	}

	destDir := filepath.Dir(archivePath)
	if info, err := os.Stat(destDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDestinationDirNotFound, destDir)
	}
	if _, err := os.Lstat(archivePath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDestinationExists, filepath.Base(archivePath))
	}

	files, err := collectFiles(sourceDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyInput, sourceDir)
	}

	// O_EXCL: создание только если файла нет, атомарно на уровне ФС
	out, err := os.OpenFile(archivePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrDestinationExists, filepath.Base(archivePath))
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrCreateFailed, archivePath, err)
	}

	res, err := writeArchive(ctx, out, files)
	if err != nil {
		out.Close()
		return nil, err
	}

	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("ошибка закрытия архива %s: %w", archivePath, err)
	}

	return res, nil
}

// writeArchive записывает файлы в zip-поток и финализирует его.
func writeArchive(ctx context.Context, out io.Writer, files []fileEntry) (*Result, error) {
	zw := zip.NewWriter(out)
	res := &Result{}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("упаковка прервана: %w", err)
		}

		n, err := addFile(zw, f)
		if err != nil {
			return nil, err
		}
		res.Files++
		res.Bytes += n
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("ошибка финализации архива: %w", err)
	}
	return res, nil
}

// addFile добавляет один файл в архив.
func addFile(zw *zip.Writer, f fileEntry) (int64, error) {
	header, err := zip.FileInfoHeader(f.info)
	if err != nil {
		return 0, fmt.Errorf("ошибка заголовка для %s: %w", f.rel, err)
	}
	// Внутри архива только относительные пути с прямым слешем
	header.Name = filepath.ToSlash(f.rel)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return 0, fmt.Errorf("ошибка записи заголовка %s: %w", f.rel, err)
	}

	src, err := os.Open(f.path)
	if err != nil {
		return 0, fmt.Errorf("ошибка открытия %s: %w", f.path, err)
	}
	defer src.Close()

	n, err := io.Copy(w, src)
	if err != nil {
		return 0, fmt.Errorf("ошибка записи %s в архив: %w", f.rel, err)
	}
	return n, nil
}

// collectFiles обходит директорию в глубину и возвращает обычные файлы.
// Символические ссылки на файлы включаются, на директории — не обходятся.
func collectFiles(root string) ([]fileEntry, error) {
	var files []fileEntry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		// Stat следует по символическим ссылкам
		info, err := os.Stat(path)
		if err != nil {
			// Битая ссылка — пропускаем
			if d.Type()&fs.ModeSymlink != 0 {
				return nil
			}
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, fileEntry{path: path, rel: rel, info: info})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка обхода директории %s: %w", root, err)
	}

	return files, nil
}
