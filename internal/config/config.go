// Пакет config — загрузка и валидация конфигурации dump-module
// из переменных окружения (и опционального .env файла).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bigkaa/goartstore/dump-module/internal/domain/model"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации dump-module.
// Создаётся один раз в main и передаётся явно.
type Config struct {
	// Paths — корень контента и директории источников/хранения
	Paths Paths
	// Команда экспорта БД (DUMP_DB_EXPORT_CMD), путь назначения добавляется последним аргументом
	DBExportCmd []string
	// Префикс ссылок на скачивание
	DownloadPrefix string

	// Порт HTTP-сервера (dump serve)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Путь к TLS сертификату (опционально, вместе с TLSKey)
	TLSCert string
	// Путь к TLS приватному ключу
	TLSKey string

	// URL JWKS endpoint. Обязателен для serve, если не задан AuthDisabled
	JWKSUrl string
	// Явный запуск API без аутентификации (DUMP_AUTH_DISABLED)
	AuthDisabled bool
	// Путь к CA-сертификату для проверки TLS JWKS endpoint (опционально)
	JWKSCACert string
	// Пропуск проверки TLS при обращении к JWKS
	TLSSkipVerify bool
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления ключей JWKS
	JWKSRefreshInterval time.Duration
	// Допустимое расхождение часов при проверке exp/nbf
	JWTLeeway time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// Идентификатор сервиса в метриках topologymetrics
	ServiceID string
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Имя зависимости JWKS в метриках topologymetrics
	DephealthDepName string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
}

// AuthEnabled сообщает, включена ли проверка JWT.
func (c *Config) AuthEnabled() bool {
	return c.JWKSUrl != ""
}

// ValidateServe проверяет параметры, обязательные только для HTTP API.
// Экспорт и каталог в CLI работают без JWKS, а API без аутентификации
// запускается только по явному DUMP_AUTH_DISABLED=true.
func (c *Config) ValidateServe() error {
	switch {
	case c.JWKSUrl == "" && !c.AuthDisabled:
		return fmt.Errorf("DUMP_JWKS_URL обязателен для serve (для запуска без аутентификации задайте DUMP_AUTH_DISABLED=true)")
	case c.JWKSUrl != "" && c.AuthDisabled:
		return fmt.Errorf("DUMP_JWKS_URL и DUMP_AUTH_DISABLED=true взаимоисключающие")
	}
	return nil
}

// TLSEnabled сообщает, задан ли TLS для HTTP-сервера.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// Paths — резолвер директорий контента. Источники экспорта
// по умолчанию лежат внутри ContentDir.
type Paths struct {
	ContentDir   string
	StorageDir   string
	ThemesDir    string
	PluginsDir   string
	UploadsDir   string
	LanguagesDir string
}

// SourceDir возвращает исходную директорию для цели экспорта.
// Для database и folder фиксированной директории нет.
func (p Paths) SourceDir(kind model.Kind) (string, error) {
	switch kind {
	case model.KindThemes:
		return p.ThemesDir, nil
	case model.KindPlugins:
		return p.PluginsDir, nil
	case model.KindUploads:
		return p.UploadsDir, nil
	case model.KindLanguages:
		return p.LanguagesDir, nil
	}
	return "", fmt.Errorf("для цели %q нет исходной директории", kind)
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
//
// Перед разбором подгружается .env: файл из DUMP_ENV_FILE (ошибка, если
// его нет) или ./.env (если есть). Уже заданные переменные не перезаписываются.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	var err error

	// DUMP_CONTENT_DIR — обязательный
	contentDir, err := getEnvRequired("DUMP_CONTENT_DIR")
	if err != nil {
		return nil, err
	}
	cfg.Paths = Paths{
		ContentDir:   contentDir,
		StorageDir:   getEnvDefault("DUMP_STORAGE_DIR", filepath.Join(contentDir, "dumps")),
		ThemesDir:    getEnvDefault("DUMP_THEMES_DIR", filepath.Join(contentDir, "themes")),
		PluginsDir:   getEnvDefault("DUMP_PLUGINS_DIR", filepath.Join(contentDir, "plugins")),
		UploadsDir:   getEnvDefault("DUMP_UPLOADS_DIR", filepath.Join(contentDir, "uploads")),
		LanguagesDir: getEnvDefault("DUMP_LANGUAGES_DIR", filepath.Join(contentDir, "languages")),
	}

	// DUMP_DB_EXPORT_CMD — команда экспорта БД (по умолчанию "wp db export")
	cfg.DBExportCmd = strings.Fields(getEnvDefault("DUMP_DB_EXPORT_CMD", "wp db export"))
	if len(cfg.DBExportCmd) == 0 {
		return nil, fmt.Errorf("DUMP_DB_EXPORT_CMD: пустая команда")
	}

	// DUMP_DOWNLOAD_PREFIX — префикс ссылок на скачивание
	cfg.DownloadPrefix = strings.TrimRight(getEnvDefault("DUMP_DOWNLOAD_PREFIX", "/api/v1/archives"), "/")

	// DUMP_PORT — порт HTTP-сервера (по умолчанию 8020)
	port, err := getEnvInt("DUMP_PORT", 8020)
	if err != nil {
		return nil, fmt.Errorf("DUMP_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("DUMP_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// DUMP_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("DUMP_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("DUMP_LOG_LEVEL: %w", err)
	}

	// DUMP_LOG_FORMAT — формат логов (по умолчанию text: основной режим — CLI)
	cfg.LogFormat = getEnvDefault("DUMP_LOG_FORMAT", "text")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("DUMP_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// DUMP_TLS_CERT / DUMP_TLS_KEY — задаются только вместе
	cfg.TLSCert = getEnvDefault("DUMP_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("DUMP_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("DUMP_TLS_CERT и DUMP_TLS_KEY должны задаваться вместе")
	}

	cfg.JWKSUrl = getEnvDefault("DUMP_JWKS_URL", "")
	cfg.JWKSCACert = getEnvDefault("DUMP_JWKS_CA_CERT", "")

	cfg.AuthDisabled, err = getEnvBool("DUMP_AUTH_DISABLED", false)
	if err != nil {
		return nil, fmt.Errorf("DUMP_AUTH_DISABLED: %w", err)
	}

	cfg.TLSSkipVerify, err = getEnvBool("DUMP_TLS_SKIP_VERIFY", false)
	if err != nil {
		return nil, fmt.Errorf("DUMP_TLS_SKIP_VERIFY: %w", err)
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"DUMP_JWKS_CLIENT_TIMEOUT", 10 * time.Second, &cfg.JWKSClientTimeout},
		{"DUMP_JWKS_REFRESH_INTERVAL", 15 * time.Second, &cfg.JWKSRefreshInterval},
		{"DUMP_JWT_LEEWAY", 5 * time.Second, &cfg.JWTLeeway},
		{"DUMP_HTTP_READ_TIMEOUT", 30 * time.Second, &cfg.HTTPReadTimeout},
		// Экспорт выполняется синхронно внутри запроса
		{"DUMP_HTTP_WRITE_TIMEOUT", 10 * time.Minute, &cfg.HTTPWriteTimeout},
		{"DUMP_HTTP_IDLE_TIMEOUT", 120 * time.Second, &cfg.HTTPIdleTimeout},
		{"DUMP_SHUTDOWN_TIMEOUT", 5 * time.Second, &cfg.ShutdownTimeout},
		{"DUMP_DEPHEALTH_CHECK_INTERVAL", 15 * time.Second, &cfg.DephealthCheckInterval},
	}
	for _, d := range durations {
		*d.dst, err = getEnvDuration(d.key, d.def)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
		if *d.dst < 0 {
			return nil, fmt.Errorf("%s: значение не может быть отрицательным", d.key)
		}
	}

	cfg.ServiceID = getEnvDefault("DUMP_SERVICE_ID", "dump-module")
	cfg.DephealthGroup = getEnvDefault("DUMP_DEPHEALTH_GROUP", "dump-module")
	cfg.DephealthDepName = getEnvDefault("DUMP_DEPHEALTH_DEP_NAME", "jwks")

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
// Логи пишутся в stderr: stdout CLI занят результатами команд.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// loadEnvFile подгружает переменные из .env файла.
func loadEnvFile() error {
	if path := os.Getenv("DUMP_ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("DUMP_ENV_FILE: не удалось загрузить %s: %w", path, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("ошибка загрузки .env: %w", err)
	}
	return nil
}

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает логическое значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
