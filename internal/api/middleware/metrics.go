// metrics.go — Prometheus HTTP метрики для dump-module.
// Регистрирует метрики: dump_http_requests_total, dump_http_request_duration_seconds.
// Бизнес-метрики (dump_archives_total, dump_storage_bytes и др.) обновляются
// из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dump_http_requests_total",
			Help: "Общее количество HTTP-запросов к dump-module",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dump_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к dump-module в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// ArchivesTotal — количество архивов в директории хранения по расширению (gauge).
	// Обновляется при каждом построении каталога.
	ArchivesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dump_archives_total",
			Help: "Количество архивов в директории хранения",
		},
		[]string{"extension"},
	)

	// StorageBytes — суммарный размер архивов (gauge).
	StorageBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dump_storage_bytes",
			Help: "Суммарный размер архивов в байтах",
		},
	)

	// CatalogSkippedEntries — файлы директории хранения с неканоническими именами.
	CatalogSkippedEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dump_catalog_skipped_entries",
			Help: "Количество файлов, пропущенных каталогом из-за неверного имени",
		},
	)

	// OperationsTotal — общее количество операций с архивами.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dump_operations_total",
			Help: "Общее количество операций с архивами",
		},
		[]string{"operation", "result"},
	)

	// ExportDuration — длительность экспорта по цели.
	ExportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dump_export_duration_seconds",
			Help:    "Длительность экспорта архива в секундах",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"kind"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Имена файлов заменяются на {filename} для ограничения кардинальности
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

const archivesPrefix = "/api/v1/archives/"

// normalizePath заменяет имя файла архива в пути на {filename}.
// /api/v1/archives/themes_20240115_143022.zip/download → /api/v1/archives/{filename}/download
func normalizePath(path string) string {
	if !strings.HasPrefix(path, archivesPrefix) {
		return path
	}

	rest := path[len(archivesPrefix):]
	switch {
	case rest == "months":
		return path
	case rest == "":
		return "/api/v1/archives"
	case strings.HasSuffix(rest, "/download") && !strings.Contains(strings.TrimSuffix(rest, "/download"), "/"):
		return archivesPrefix + "{filename}/download"
	case !strings.Contains(rest, "/"):
		return archivesPrefix + "{filename}"
	}
	return "other"
}
