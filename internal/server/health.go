// health.go — обработчики health endpoints для Kubernetes probes.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/boburshokhh/dormitory-files/internal/config"
)

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// ReadinessChecker — проверка готовности одной зависимости.
// Возвращает статус ("ok" или "fail") и человекочитаемое сообщение.
type ReadinessChecker interface {
	CheckReady() (status string, message string)
}

// healthHandler реализует /health/live и /health/ready.
type healthHandler struct {
	checks map[string]ReadinessChecker
}

func newHealthHandler(checks map[string]ReadinessChecker) *healthHandler {
	return &healthHandler{checks: checks}
}

// live обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *healthHandler) live(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   config.Version,
		"service":   "dormitory-files",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// ready обрабатывает GET /health/ready.
// Прогоняет все проверки зависимостей; сбой любой из них даёт 503.
func (h *healthHandler) ready(w http.ResponseWriter, _ *http.Request) {
	overallStatus := "ok"
	httpStatus := http.StatusOK

	checks := make(map[string]any, len(h.checks))
	for name, checker := range h.checks {
		status, message := checker.CheckReady()
		check := map[string]string{"status": status}
		if message != "" {
			check["message"] = message
		}
		checks[name] = check

		if status != "ok" {
			overallStatus = statusFail
			httpStatus = http.StatusServiceUnavailable
		}
	}

	resp := map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   config.Version,
		"service":   "dormitory-files",
		"checks":    checks,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(resp)
}
