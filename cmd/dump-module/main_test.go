package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/bigkaa/goartstore/dump-module/internal/domain/model"
)

// successRe — сообщение об успешном экспорте.
var successRe = regexp.MustCompile(`^Success: (\w+) dumped successfully at "(.+)"\.\n$`)

// setupEnv задаёт окружение с временной директорией контента.
func setupEnv(t *testing.T) string {
	t.Helper()
	content := t.TempDir()
	for _, key := range []string{
		"DUMP_ENV_FILE", "DUMP_STORAGE_DIR", "DUMP_THEMES_DIR", "DUMP_PLUGINS_DIR",
		"DUMP_UPLOADS_DIR", "DUMP_LANGUAGES_DIR", "DUMP_DB_EXPORT_CMD", "DUMP_JWKS_URL", "DUMP_AUTH_DISABLED",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("DUMP_CONTENT_DIR", content)
	t.Setenv("DUMP_LOG_LEVEL", "error")
	return content
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("ошибка создания директории: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}
}

// run выполняет dump с аргументами и возвращает stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// TestExportThemes проверяет экспорт тем и сообщение об успехе.
func TestExportThemes(t *testing.T) {
	content := setupEnv(t)
	writeFile(t, filepath.Join(content, "themes", "twentytwenty", "style.css"), "body{}")
	writeFile(t, filepath.Join(content, "themes", "twentytwenty", "functions.php"), "<?php")

	out, err := run(t, "themes", "--name", "site_backup")
	if err != nil {
		t.Fatalf("ошибка экспорта: %v", err)
	}

	m := successRe.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("неожиданный вывод: %q", out)
	}
	if m[1] != "Themes" {
		t.Errorf("ожидалось Themes, получено %s", m[1])
	}
	if filepath.Dir(m[2]) != filepath.Join(content, "dumps") {
		t.Errorf("архив вне директории хранения: %s", m[2])
	}
	if !strings.HasPrefix(filepath.Base(m[2]), "site-backup_") {
		t.Errorf("неожиданное имя архива: %s", m[2])
	}
	if _, err := os.Stat(m[2]); err != nil {
		t.Errorf("архив не создан: %v", err)
	}
}

// TestExportDatabase проверяет экспорт БД внешней командой.
func TestExportDatabase(t *testing.T) {
	if _, err := exec.LookPath("cp"); err != nil {
		t.Skip("cp недоступен")
	}
	content := setupEnv(t)
	fixture := filepath.Join(t.TempDir(), "fixture.sql")
	writeFile(t, fixture, "CREATE TABLE wp_options;")
	t.Setenv("DUMP_DB_EXPORT_CMD", "cp "+fixture)

	out, err := run(t, "database")
	if err != nil {
		t.Fatalf("ошибка экспорта: %v", err)
	}

	m := successRe.FindStringSubmatch(out)
	if m == nil || m[1] != "Database" {
		t.Fatalf("неожиданный вывод: %q", out)
	}
	if !strings.HasPrefix(m[2], filepath.Join(content, "dumps", "database_")) || !strings.HasSuffix(m[2], ".sql") {
		t.Errorf("неожиданный путь: %s", m[2])
	}
}

// TestExportFolder проверяет упаковку произвольной директории.
func TestExportFolder(t *testing.T) {
	setupEnv(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "a")

	out, err := run(t, "folder", src)
	if err != nil {
		t.Fatalf("ошибка экспорта: %v", err)
	}
	m := successRe.FindStringSubmatch(out)
	if m == nil || m[1] != "Folder" || !strings.HasPrefix(filepath.Base(m[2]), "folder_") {
		t.Errorf("неожиданный вывод: %q", out)
	}
}

// TestExport_Errors проверяет ошибки экспорта.
func TestExport_Errors(t *testing.T) {
	content := setupEnv(t)
	if err := os.MkdirAll(filepath.Join(content, "plugins"), 0o755); err != nil {
		t.Fatalf("ошибка создания директории: %v", err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing source", args: []string{"uploads"}},
		{name: "empty source", args: []string{"plugins"}},
		{name: "folder without path", args: []string{"folder"}},
		{name: "unexpected arg", args: []string{"themes", "extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if err == nil {
				t.Errorf("ожидалась ошибка, вывод: %q", out)
			}
			if strings.Contains(out, "Success") {
				t.Errorf("сообщение об успехе при ошибке: %q", out)
			}
		})
	}
}

// TestMissingContentDir проверяет ошибку конфигурации.
func TestMissingContentDir(t *testing.T) {
	setupEnv(t)
	t.Setenv("DUMP_CONTENT_DIR", "")

	_, err := run(t, "list")
	if err == nil || !strings.Contains(err.Error(), "DUMP_CONTENT_DIR") {
		t.Errorf("ожидалась ошибка DUMP_CONTENT_DIR, получено %v", err)
	}
}

// TestServe_RequiresAuth проверяет отказ запускать API без JWKS
// и без явного DUMP_AUTH_DISABLED.
func TestServe_RequiresAuth(t *testing.T) {
	setupEnv(t)

	// Отменённый контекст: даже запущенный сервер сразу остановится
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"serve"})
	err := cmd.ExecuteContext(ctx)
	if err == nil || !strings.Contains(err.Error(), "DUMP_JWKS_URL") {
		t.Errorf("ожидалась ошибка DUMP_JWKS_URL, получено %v", err)
	}
}

// TestListAndDelete проверяет вывод каталога и удаление архива.
func TestListAndDelete(t *testing.T) {
	content := setupEnv(t)
	storage := filepath.Join(content, "dumps")
	writeFile(t, filepath.Join(storage, "themes_20240115_143022.zip"), strings.Repeat("x", 2048))
	writeFile(t, filepath.Join(storage, "database_20240220_090000.sql"), "--")
	writeFile(t, filepath.Join(storage, "readme.txt"), "?")

	out, err := run(t, "list", "--orderby", "filename", "--order", "asc")
	if err != nil {
		t.Fatalf("ошибка list: %v", err)
	}
	dbIdx := strings.Index(out, "database_20240220_090000.sql")
	themesIdx := strings.Index(out, "themes_20240115_143022.zip")
	if dbIdx < 0 || themesIdx < 0 || dbIdx > themesIdx {
		t.Errorf("неожиданный вывод list:\n%s", out)
	}
	if !strings.Contains(out, "2.0 kB") {
		t.Errorf("ожидался размер 2.0 kB:\n%s", out)
	}
	if !strings.Contains(out, "Пропущено файлов с неканоническими именами: 1") {
		t.Errorf("ожидалось число пропущенных файлов:\n%s", out)
	}

	out, err = run(t, "list", "--month", "2024-01")
	if err != nil {
		t.Fatalf("ошибка list: %v", err)
	}
	if strings.Contains(out, "database_") || !strings.Contains(out, "themes_") {
		t.Errorf("фильтр по месяцу не применён:\n%s", out)
	}

	if _, err := run(t, "delete", "themes_20240115_143022.zip"); err != nil {
		t.Fatalf("ошибка delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(storage, "themes_20240115_143022.zip")); !os.IsNotExist(err) {
		t.Error("архив должен быть удалён")
	}
	if _, err := run(t, "delete", "themes_20240115_143022.zip"); err == nil {
		t.Error("повторное удаление должно вернуть ошибку")
	}
}

// TestList_InvalidFlags проверяет ошибки флагов list.
func TestList_InvalidFlags(t *testing.T) {
	setupEnv(t)

	for _, args := range [][]string{
		{"list", "--month", "2024"},
		{"list", "--orderby", "size"},
		{"list", "--order", "random"},
		{"list", "--page", "0"},
	} {
		if _, err := run(t, args...); err == nil {
			t.Errorf("%v: ожидалась ошибка", args)
		}
	}
}

// TestMonths проверяет вывод месяцев.
func TestMonths(t *testing.T) {
	content := setupEnv(t)
	storage := filepath.Join(content, "dumps")
	writeFile(t, filepath.Join(storage, "a_20240115_143022.zip"), "1")
	writeFile(t, filepath.Join(storage, "b_20240116_143022.zip"), "1")

	out, err := run(t, "months")
	if err != nil {
		t.Fatalf("ошибка months: %v", err)
	}
	if !strings.Contains(out, "202401") || !strings.Contains(out, "January 2024") {
		t.Errorf("неожиданный вывод:\n%s", out)
	}
}

// TestExportLabel проверяет названия целей в сообщении об успехе.
func TestExportLabel(t *testing.T) {
	want := map[model.Kind]string{
		model.KindDatabase:  "Database",
		model.KindThemes:    "Themes",
		model.KindPlugins:   "Plugins",
		model.KindUploads:   "Uploads",
		model.KindLanguages: "Languages",
		model.KindFolder:    "Folder",
	}
	for kind, label := range want {
		if got := exportLabel(kind); got != label {
			t.Errorf("exportLabel(%s) = %q, ожидалось %q", kind, got, label)
		}
	}
}
