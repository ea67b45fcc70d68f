package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/mstgnz/vrpay/infra/response"
)

// Pinger is a collaborator whose connection can be checked
type Pinger interface {
	Ping(ctx context.Context) error
}

// StorageChecker is the store as seen by the health check
type StorageChecker interface {
	Pinger
	Stats(ctx context.Context) (map[string]any, error)
}

// HealthHandler handles health check requests
type HealthHandler struct {
	storage     StorageChecker
	services    map[string]Pinger
	environment string
	startTime   time.Time
}

// HealthStatus represents overall system health
type HealthStatus struct {
	Status      string                    `json:"status"`
	Version     string                    `json:"version"`
	Timestamp   time.Time                 `json:"timestamp"`
	Uptime      string                    `json:"uptime"`
	Environment string                    `json:"environment"`
	Storage     *StorageHealth            `json:"storage"`
	Services    map[string]*ServiceHealth `json:"services"`
	System      *SystemHealth             `json:"system"`
}

// StorageHealth represents database health status
type StorageHealth struct {
	Status         string         `json:"status"`
	Connected      bool           `json:"connected"`
	ResponseTimeMs int64          `json:"response_time_ms"`
	Stats          map[string]any `json:"stats,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// ServiceHealth represents an optional collaborator
type ServiceHealth struct {
	Status    string `json:"status"`
	Healthy   bool   `json:"healthy"`
	LastCheck string `json:"last_check"`
	Error     string `json:"error,omitempty"`
}

// SystemHealth represents process resource usage
type SystemHealth struct {
	Alloc      string `json:"alloc"`
	Sys        string `json:"sys"`
	GCRuns     uint32 `json:"gc_runs"`
	GoRoutines int    `json:"goroutines"`
}

// NewHealthHandler creates a new health handler. services are optional
// collaborators such as the duplicate lookup; a failing one degrades the
// status without making the service unhealthy.
func NewHealthHandler(storage StorageChecker, services map[string]Pinger, environment string) *HealthHandler {
	return &HealthHandler{
		storage:     storage,
		services:    services,
		environment: environment,
		startTime:   time.Now(),
	}
}

// CheckHealth handles GET /health
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := &HealthStatus{
		Version:     "1.0.0",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Environment: h.environment,
		Storage:     h.checkStorage(ctx),
		Services:    h.checkServices(ctx),
		System:      checkSystem(),
	}
	health.Status = determineOverallStatus(health)

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	response.WriteJSON(w, statusCode, response.Response{
		Code:    statusCode,
		Success: health.Status != "unhealthy",
		Message: fmt.Sprintf("Service is %s", health.Status),
		Data:    health,
	})
}

func (h *HealthHandler) checkStorage(ctx context.Context) *StorageHealth {
	sh := &StorageHealth{Status: "unknown"}
	if h.storage == nil {
		sh.Status = "not_configured"
		sh.Error = "Storage not configured"
		return sh
	}

	start := time.Now()
	err := h.storage.Ping(ctx)
	sh.ResponseTimeMs = time.Since(start).Milliseconds()
	if err != nil {
		sh.Status = "unhealthy"
		sh.Error = err.Error()
		return sh
	}

	sh.Connected = true
	sh.Status = "healthy"
	if sh.ResponseTimeMs > 1000 {
		sh.Status = "degraded"
	}

	if stats, err := h.storage.Stats(ctx); err == nil {
		sh.Stats = stats
	} else {
		sh.Error = err.Error()
	}
	return sh
}

func (h *HealthHandler) checkServices(ctx context.Context) map[string]*ServiceHealth {
	services := make(map[string]*ServiceHealth, len(h.services))
	for name, p := range h.services {
		sh := &ServiceHealth{
			Status:    "healthy",
			Healthy:   true,
			LastCheck: time.Now().UTC().Format(time.RFC3339),
		}
		if err := p.Ping(ctx); err != nil {
			sh.Status = "unhealthy"
			sh.Healthy = false
			sh.Error = err.Error()
		}
		services[name] = sh
	}
	return services
}

func checkSystem() *SystemHealth {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &SystemHealth{
		Alloc:      formatBytes(memStats.Alloc),
		Sys:        formatBytes(memStats.Sys),
		GCRuns:     memStats.NumGC,
		GoRoutines: runtime.NumGoroutine(),
	}
}

func determineOverallStatus(health *HealthStatus) string {
	if health.Storage == nil || !health.Storage.Connected {
		return "unhealthy"
	}
	if health.Storage.Status == "degraded" {
		return "degraded"
	}
	for _, s := range health.Services {
		if !s.Healthy {
			return "degraded"
		}
	}
	return "healthy"
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
