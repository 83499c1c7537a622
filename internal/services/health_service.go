package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"rosterkit/internal/audit"
	"rosterkit/internal/config"
	ws "rosterkit/internal/websocket"
	"rosterkit/pkg/contracts"
)

// HealthService answers the health, readiness and liveness probes and
// aggregates the runtime statistics shown on the dashboard.
type HealthService struct {
	version      string
	repoURL      string
	buildTime    string
	buildID      string
	paths        *config.Paths
	operations   *OperationsService
	recorder     *audit.Recorder
	webSocketHub *ws.Hub
	startTime    time.Time
	logger       *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	TotalFiles       int     `json:"total_files"`
	TotalSizeBytes   int64   `json:"total_size_bytes"`
	WebSocketClients int     `json:"websocket_clients"`
	ActiveOperations int     `json:"active_operations"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// NewHealthService creates a new health service with injected dependencies
// and no build metadata.
func NewHealthService(version, repoURL string, paths *config.Paths, operations *OperationsService, recorder *audit.Recorder, webSocketHub *ws.Hub, logger *slog.Logger) *HealthService {
	return NewHealthServiceWithBuildInfo(version, repoURL, "", "", paths, operations, recorder, webSocketHub, logger)
}

// NewHealthServiceWithBuildInfo creates a new health service with build
// information stamped in at link time.
func NewHealthServiceWithBuildInfo(version, repoURL, buildTime, buildID string, paths *config.Paths, operations *OperationsService, recorder *audit.Recorder, webSocketHub *ws.Hub, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("health service initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime),
		slog.String("build_id", buildID))

	return &HealthService{
		version:      version,
		repoURL:      repoURL,
		buildTime:    buildTime,
		buildID:      buildID,
		paths:        paths,
		operations:   operations,
		recorder:     recorder,
		webSocketHub: webSocketHub,
		startTime:    time.Now(),
		logger:       logger,
	}
}

// HealthCheck returns overall health status.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "performing health check",
		slog.String("version", hs.version),
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether every dependency the pipeline needs is
// in place.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	status.Services["data"] = hs.checkDataHealth()
	status.Services["audit"] = hs.checkAuditHealth()
	status.Services["operations"] = hs.checkOperationsHealth()
	status.Services["websocket"] = hs.checkWebSocketHealth()

	allReady := true
	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			allReady = false
			break
		}
	}
	if !allReady {
		status.Status = "not_ready"
	}

	return status
}

// LivenessCheck returns liveness status.
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information.
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"repo_url":     hs.repoURL,
		"data_format":  contracts.DataFormatVersion,
		"api_version":  contracts.APIVersion,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}

	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}

	return result
}

// SystemStats returns runtime statistics over the data directory and the
// connected services.
func (hs *HealthService) SystemStats(ctx context.Context) (SystemStats, error) {
	var totalFiles int
	var totalSize int64

	filepath.Walk(hs.paths.DataDir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			totalFiles++
			totalSize += info.Size()
		}
		return nil
	})

	stats := SystemStats{
		UptimeSeconds:  time.Since(hs.startTime).Seconds(),
		TotalFiles:     totalFiles,
		TotalSizeBytes: totalSize,
		GoVersion:      runtime.Version(),
		OS:             runtime.GOOS,
		Arch:           runtime.GOARCH,
	}
	if hs.webSocketHub != nil {
		stats.WebSocketClients = hs.webSocketHub.ClientCount()
	}
	if hs.operations != nil {
		stats.ActiveOperations = hs.operations.ActiveCount()
	}

	return stats, nil
}

// checkDataHealth verifies the data directories exist and are writable.
func (hs *HealthService) checkDataHealth() ServiceHealth {
	for _, dir := range []string{hs.paths.DataDir, hs.paths.OutputDir, hs.paths.VisualizationsDir} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return ServiceHealth{
				Status:  "not_ready",
				Message: fmt.Sprintf("directory not found: %s", dir),
			}
		}
	}

	probe, err := os.CreateTemp(hs.paths.OutputDir, ".probe-*")
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("output directory not writable: %v", err),
		}
	}
	probe.Close()
	os.Remove(probe.Name())

	return ServiceHealth{
		Status:  "ready",
		Message: "data directories are writable",
	}
}

// checkAuditHealth reports the audit trail store status. A disabled
// recorder is still ready; runs simply skip the trail.
func (hs *HealthService) checkAuditHealth() ServiceHealth {
	if hs.recorder == nil || !hs.recorder.Enabled() {
		return ServiceHealth{
			Status:  "ready",
			Message: "audit trail disabled",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "audit trail store is open",
	}
}

// checkOperationsHealth checks the pipeline runner is initialized.
func (hs *HealthService) checkOperationsHealth() ServiceHealth {
	if hs.operations == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "operations service not initialized",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "pipeline runner is registered",
	}
}

// checkWebSocketHealth checks the hub is initialized.
func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.webSocketHub == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "websocket hub not initialized",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d clients connected", hs.webSocketHub.ClientCount()),
		Uptime:  time.Since(hs.startTime).String(),
	}
}

// GetDetailedHealth returns comprehensive health information for the
// diagnostics endpoint.
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	stats, _ := hs.SystemStats(ctx)

	return map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"stats":     stats,
	}
}
