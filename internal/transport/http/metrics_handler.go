package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// HubStatsProvider exposes WebSocket hub counters for the metrics endpoint
type HubStatsProvider interface {
	GetHubMetrics() map[string]interface{}
}

// MetricsHandler serves an application-level metrics snapshot as JSON.
// Prometheus exposition lives on its own endpoint wired by the server.
type MetricsHandler struct {
	operations OperationServiceInterface
	hub        HubStatsProvider
	logger     *slog.Logger
	startedAt  time.Time
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(operations OperationServiceInterface, hub HubStatsProvider, logger *slog.Logger) *MetricsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsHandler{
		operations: operations,
		hub:        hub,
		logger:     logger.With(slog.String("handler", "metrics")),
		startedAt:  time.Now(),
	}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetSystemMetrics)
	return r
}

// GetSystemMetrics returns run counts and WebSocket hub counters
func (h *MetricsHandler) GetSystemMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts := h.operations.Metrics(ctx)

	response := map[string]interface{}{
		"status": "ok",
		"operations": map[string]interface{}{
			"total":     counts.Total,
			"pending":   counts.Pending,
			"running":   counts.Running,
			"completed": counts.Completed,
			"failed":    counts.Failed,
			"cancelled": counts.Cancelled,
		},
		"uptime_seconds": time.Since(h.startedAt).Seconds(),
		"timestamp":      time.Now().UTC(),
	}

	if h.hub != nil {
		response["websocket"] = h.hub.GetHubMetrics()
	}

	render.JSON(w, r, response)
}
