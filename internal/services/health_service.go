package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"gctidash/internal/dashboard"
	"gctidash/internal/dataset"
	"gctidash/internal/infrastructure"
	"gctidash/pkg/contracts"
)

// Health statuses
const (
	HealthOK       = "ok"
	HealthReady    = "ready"
	HealthNotReady = "not_ready"
	HealthAlive    = "alive"
)

// ClientCounter reports connected WebSocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	datasets  DatasetProvider
	defaults  dataset.Key
	sessions  *dashboard.Store
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                       `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Version   string                       `json:"version"`
	Runtime   *infrastructure.RuntimeStats `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth     `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service. clients may be nil when the
// WebSocket hub is not running.
func NewHealthService(version string, datasets DatasetProvider, defaults dataset.Key, sessions *dashboard.Store, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &HealthService{
		version:   version,
		datasets:  datasets,
		defaults:  defaults,
		sessions:  sessions,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    HealthOK,
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether the default dataset can be served
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    HealthReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"dataset":   hs.checkDataset(ctx),
			"sessions":  hs.checkSessions(),
			"websocket": hs.checkWebSocket(),
		},
	}

	for name, sh := range status.Services {
		if sh.Status != HealthReady {
			status.Status = HealthNotReady
			hs.logger.WarnContext(ctx, "service not ready",
				slog.String("service", name),
				slog.String("message", sh.Message))
		}
	}

	return status
}

// LivenessCheck returns liveness status with runtime counters
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	rt := infrastructure.CollectRuntime(hs.startTime)
	return HealthStatus{
		Status:    HealthAlive,
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime:   &rt,
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      hs.version,
		"api_version":  info.APIVersion,
		"data_format":  info.DataFormat,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

func (hs *HealthService) checkDataset(ctx context.Context) ServiceHealth {
	if hs.datasets == nil {
		return ServiceHealth{Status: HealthNotReady, Message: "dataset provider not initialized"}
	}

	ds, err := hs.datasets.Get(ctx, hs.defaults)
	if err != nil {
		return ServiceHealth{
			Status:  HealthNotReady,
			Message: fmt.Sprintf("generate default dataset: %v", err),
		}
	}

	return ServiceHealth{
		Status:  HealthReady,
		Message: fmt.Sprintf("%d rows for %s", ds.Len(), hs.defaults),
	}
}

func (hs *HealthService) checkSessions() ServiceHealth {
	if hs.sessions == nil {
		return ServiceHealth{Status: HealthNotReady, Message: "session store not initialized"}
	}
	return ServiceHealth{
		Status:  HealthReady,
		Message: fmt.Sprintf("%d active sessions", hs.sessions.Len()),
	}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.clients == nil {
		return ServiceHealth{Status: HealthReady, Message: "hub disabled"}
	}
	return ServiceHealth{
		Status:  HealthReady,
		Message: fmt.Sprintf("%d clients connected", hs.clients.ClientCount()),
	}
}
