// health.go — обработчики health endpoints для Kubernetes probes.
// /health/live — процесс жив
// /health/ready — директория хранения доступна на запись, зависимости в порядке
package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bigkaa/goartstore/dump-module/internal/config"
)

// Статусы health check.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// serviceName — имя сервиса в ответах health и info.
const serviceName = "dump-module"

// DependencyHealth — источник состояния внешних зависимостей (dephealth).
type DependencyHealth interface {
	// Health возвращает состояние по имени зависимости: true — ok.
	Health() map[string]bool
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	// storageDir — директория хранения архивов (DUMP_STORAGE_DIR)
	storageDir string
	// deps — мониторинг зависимостей (nil, если аутентификация выключена)
	deps DependencyHealth
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(storageDir string, deps DependencyHealth) *HealthHandler {
	return &HealthHandler{
		storageDir: storageDir,
		deps:       deps,
	}
}

// healthCheckResult — результат проверки одной зависимости.
type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthLiveResponse — ответ liveness probe.
type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

// healthReadyResponse — ответ readiness probe.
type healthReadyResponse struct {
	Status    string                       `json:"status"`
	Timestamp string                       `json:"timestamp"`
	Version   string                       `json:"version"`
	Service   string                       `json:"service"`
	Checks    map[string]healthCheckResult `json:"checks"`
}

// HealthLive — liveness probe. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthLiveResponse{
		Status:    statusOK,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	})
}

// HealthReady — readiness probe.
// Недоступная на запись директория хранения — fail (503),
// недоступная зависимость — degraded (200).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	checks := map[string]healthCheckResult{
		"storage": h.checkStorage(),
	}
	statuses := []string{checks["storage"].Status}

	if h.deps != nil {
		for name, healthy := range h.deps.Health() {
			res := healthCheckResult{Status: statusOK}
			if !healthy {
				res = healthCheckResult{Status: statusDegraded, Message: "Зависимость недоступна"}
			}
			checks[name] = res
			statuses = append(statuses, res.Status)
		}
	}

	resp := healthReadyResponse{
		Status:    overallStatus(statuses...),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
		Checks:    checks,
	}

	httpStatus := http.StatusOK
	if resp.Status == statusFail {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, resp)
}

// checkStorage проверяет доступность директории хранения на запись.
// Отсутствующая директория не ошибка: её создаст первый экспорт.
func (h *HealthHandler) checkStorage() healthCheckResult {
	info, err := os.Stat(h.storageDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return healthCheckResult{Status: statusOK, Message: "Директория будет создана при первом экспорте"}
		}
		return healthCheckResult{Status: statusFail, Message: err.Error()}
	}
	if !info.IsDir() {
		return healthCheckResult{Status: statusFail, Message: "Путь хранения не является директорией"}
	}

	// access(2) без создания файлов: в директории хранения только архивы
	if err := unix.Access(h.storageDir, unix.W_OK|unix.X_OK); err != nil {
		return healthCheckResult{
			Status:  statusFail,
			Message: "Директория хранения недоступна для записи: " + err.Error(),
		}
	}

	return healthCheckResult{Status: statusOK}
}

// overallStatus определяет итоговый статус: fail важнее degraded, degraded важнее ok.
func overallStatus(statuses ...string) string {
	hasDegraded := false
	for _, s := range statuses {
		if s == statusFail {
			return statusFail
		}
		if s == statusDegraded {
			hasDegraded = true
		}
	}
	if hasDegraded {
		return statusDegraded
	}
	return statusOK
}
