package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/dump-module/internal/domain/model"
)

// allKeys — все переменные окружения DUMP_*, которые читает Load.
var allKeys = []string{
	"DUMP_CONTENT_DIR", "DUMP_STORAGE_DIR", "DUMP_THEMES_DIR", "DUMP_PLUGINS_DIR",
	"DUMP_UPLOADS_DIR", "DUMP_LANGUAGES_DIR", "DUMP_DB_EXPORT_CMD", "DUMP_DOWNLOAD_PREFIX",
	"DUMP_PORT", "DUMP_LOG_LEVEL", "DUMP_LOG_FORMAT", "DUMP_TLS_CERT", "DUMP_TLS_KEY",
	"DUMP_JWKS_URL", "DUMP_JWKS_CA_CERT", "DUMP_AUTH_DISABLED", "DUMP_TLS_SKIP_VERIFY",
	"DUMP_JWKS_CLIENT_TIMEOUT", "DUMP_JWKS_REFRESH_INTERVAL", "DUMP_JWT_LEEWAY",
	"DUMP_HTTP_READ_TIMEOUT", "DUMP_HTTP_WRITE_TIMEOUT", "DUMP_HTTP_IDLE_TIMEOUT",
	"DUMP_SHUTDOWN_TIMEOUT", "DUMP_SERVICE_ID", "DUMP_DEPHEALTH_GROUP",
	"DUMP_DEPHEALTH_DEP_NAME", "DUMP_DEPHEALTH_CHECK_INTERVAL", "DUMP_ENV_FILE",
}

// clearEnv очищает все DUMP_* переменные на время теста.
// Пустое значение Load трактует как незаданное.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

// TestLoad_Defaults проверяет значения по умолчанию.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DUMP_CONTENT_DIR", "/srv/wp-content")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки: %v", err)
	}

	if cfg.Paths.StorageDir != filepath.Join("/srv/wp-content", "dumps") {
		t.Errorf("StorageDir: получено %s", cfg.Paths.StorageDir)
	}
	if cfg.Paths.ThemesDir != filepath.Join("/srv/wp-content", "themes") {
		t.Errorf("ThemesDir: получено %s", cfg.Paths.ThemesDir)
	}
	if len(cfg.DBExportCmd) != 3 || cfg.DBExportCmd[0] != "wp" || cfg.DBExportCmd[2] != "export" {
		t.Errorf("DBExportCmd: получено %v", cfg.DBExportCmd)
	}
	if cfg.DownloadPrefix != "/api/v1/archives" {
		t.Errorf("DownloadPrefix: получено %s", cfg.DownloadPrefix)
	}
	if cfg.Port != 8020 {
		t.Errorf("Port: ожидалось 8020, получено %d", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo || cfg.LogFormat != "text" {
		t.Errorf("логирование: %v %s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.AuthEnabled() || cfg.TLSEnabled() {
		t.Error("аутентификация и TLS по умолчанию выключены")
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout: получено %v", cfg.ShutdownTimeout)
	}
	if cfg.ServiceID != "dump-module" {
		t.Errorf("ServiceID: получено %s", cfg.ServiceID)
	}
}

// TestLoad_MissingContentDir проверяет обязательность DUMP_CONTENT_DIR.
func TestLoad_MissingContentDir(t *testing.T) {
	clearEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка без DUMP_CONTENT_DIR")
	}
}

// TestLoad_Overrides проверяет переопределение директорий и команд.
func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DUMP_CONTENT_DIR", "/srv/content")
	t.Setenv("DUMP_STORAGE_DIR", "/backups")
	t.Setenv("DUMP_LANGUAGES_DIR", "/srv/lang")
	t.Setenv("DUMP_DB_EXPORT_CMD", "mysqldump --single-transaction wp")
	t.Setenv("DUMP_DOWNLOAD_PREFIX", "/dl/")
	t.Setenv("DUMP_LOG_LEVEL", "debug")
	t.Setenv("DUMP_TLS_SKIP_VERIFY", "true")
	t.Setenv("DUMP_JWKS_URL", "https://auth.local/jwks")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки: %v", err)
	}

	if cfg.Paths.StorageDir != "/backups" || cfg.Paths.LanguagesDir != "/srv/lang" {
		t.Errorf("неожиданные пути: %+v", cfg.Paths)
	}
	if len(cfg.DBExportCmd) != 3 || cfg.DBExportCmd[0] != "mysqldump" {
		t.Errorf("DBExportCmd: получено %v", cfg.DBExportCmd)
	}
	if cfg.DownloadPrefix != "/dl" {
		t.Errorf("DownloadPrefix: ожидалось /dl, получено %s", cfg.DownloadPrefix)
	}
	if cfg.LogLevel != slog.LevelDebug || !cfg.TLSSkipVerify || !cfg.AuthEnabled() {
		t.Error("переопределения не применены")
	}
}

// TestLoad_InvalidValues проверяет валидацию значений.
func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"порт не число", "DUMP_PORT", "abc"},
		{"порт вне диапазона", "DUMP_PORT", "70000"},
		{"уровень логов", "DUMP_LOG_LEVEL", "verbose"},
		{"формат логов", "DUMP_LOG_FORMAT", "xml"},
		{"длительность", "DUMP_SHUTDOWN_TIMEOUT", "5 минут"},
		{"отрицательная длительность", "DUMP_JWT_LEEWAY", "-1s"},
		{"логическое значение", "DUMP_TLS_SKIP_VERIFY", "maybe"},
		{"только сертификат", "DUMP_TLS_CERT", "/tls/cert.pem"},
		{"флаг отключения аутентификации", "DUMP_AUTH_DISABLED", "yes please"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DUMP_CONTENT_DIR", "/srv/content")
			t.Setenv(tt.key, tt.val)

			if _, err := Load(); err == nil {
				t.Errorf("%s=%q: ожидалась ошибка", tt.key, tt.val)
			}
		})
	}
}

// TestLoad_EnvFile проверяет загрузку переменных из DUMP_ENV_FILE.
func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv не перезаписывает заданные переменные, поэтому снимаем их полностью
	os.Unsetenv("DUMP_CONTENT_DIR")
	os.Unsetenv("DUMP_PORT")

	envFile := filepath.Join(t.TempDir(), "dump.env")
	content := "DUMP_CONTENT_DIR=/from/env-file\nDUMP_PORT=9090\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}
	t.Setenv("DUMP_ENV_FILE", envFile)
	t.Cleanup(func() {
		os.Unsetenv("DUMP_CONTENT_DIR")
		os.Unsetenv("DUMP_PORT")
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки: %v", err)
	}
	if cfg.Paths.ContentDir != "/from/env-file" || cfg.Port != 9090 {
		t.Errorf("значения из файла не применены: %s %d", cfg.Paths.ContentDir, cfg.Port)
	}
}

// TestLoad_EnvFileMissing проверяет ошибку для отсутствующего DUMP_ENV_FILE.
func TestLoad_EnvFileMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("DUMP_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка для отсутствующего файла")
	}
}

// TestPaths_SourceDir проверяет резолвинг исходных директорий.
func TestPaths_SourceDir(t *testing.T) {
	p := Paths{ThemesDir: "/t", PluginsDir: "/p", UploadsDir: "/u", LanguagesDir: "/l"}

	cases := map[model.Kind]string{
		model.KindThemes:    "/t",
		model.KindPlugins:   "/p",
		model.KindUploads:   "/u",
		model.KindLanguages: "/l",
	}
	for kind, want := range cases {
		got, err := p.SourceDir(kind)
		if err != nil || got != want {
			t.Errorf("SourceDir(%s) = %q, %v; ожидалось %q", kind, got, err, want)
		}
	}

	if _, err := p.SourceDir(model.KindDatabase); err == nil {
		t.Error("для database ожидалась ошибка")
	}
}

// TestValidateServe проверяет, что API без JWKS запускается только явно.
func TestValidateServe(t *testing.T) {
	tests := []struct {
		name     string
		jwksURL  string
		disabled string
		wantErr  bool
	}{
		{name: "без JWKS и без флага", wantErr: true},
		{name: "JWKS задан", jwksURL: "https://auth.local/jwks"},
		{name: "явное отключение", disabled: "true"},
		{name: "JWKS и отключение одновременно", jwksURL: "https://auth.local/jwks", disabled: "true", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DUMP_CONTENT_DIR", "/srv/content")
			t.Setenv("DUMP_JWKS_URL", tt.jwksURL)
			t.Setenv("DUMP_AUTH_DISABLED", tt.disabled)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("ошибка загрузки: %v", err)
			}
			err = cfg.ValidateServe()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateServe() = %v, ожидалась ошибка: %v", err, tt.wantErr)
			}
		})
	}
}
