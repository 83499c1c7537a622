package http

import (
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"rosterkit/internal/infrastructure"
	"rosterkit/internal/operations"
)

// OperationsMetricsHandler handles operations-specific metrics endpoints
type OperationsMetricsHandler struct {
	service OperationServiceInterface
	logger  *slog.Logger
	tracer  trace.Tracer
	meter   metric.Meter

	// Metrics collectors
	httpRequestDuration metric.Float64Histogram
	httpRequestsTotal   metric.Int64Counter
	httpActiveRequests  metric.Int64UpDownCounter
}

// NewOperationsMetricsHandler creates a new operations metrics handler
func NewOperationsMetricsHandler(service OperationServiceInterface, logger *slog.Logger) (*OperationsMetricsHandler, error) {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	tracer := otel.Tracer("operations-metrics-handler")
	meter := otel.Meter("operations-metrics-handler")

	// Create metrics
	httpRequestDuration, err := meter.Float64Histogram(
		"operations_handler_request_duration_seconds",
		metric.WithDescription("HTTP request duration for operations endpoints in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestsTotal, err := meter.Int64Counter(
		"operations_handler_requests_total",
		metric.WithDescription("Total number of HTTP requests to operations endpoints"),
	)
	if err != nil {
		return nil, err
	}

	httpActiveRequests, err := meter.Int64UpDownCounter(
		"operations_handler_active_requests",
		metric.WithDescription("Number of active HTTP requests to operations endpoints"),
	)
	if err != nil {
		return nil, err
	}

	return &OperationsMetricsHandler{
		service:             service,
		logger:              logger.With(slog.String("handler", "operations_metrics")),
		tracer:              tracer,
		meter:               meter,
		httpRequestDuration: httpRequestDuration,
		httpRequestsTotal:   httpRequestsTotal,
		httpActiveRequests:  httpActiveRequests,
	}, nil
}

// Routes returns a chi router for operations metrics endpoints
func (h *OperationsMetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Apply middleware with instrumentation
	r.Use(h.instrumentMiddleware)

	// Metrics endpoints
	r.Get("/summary", h.GetOperationsSummary)
	r.Get("/performance", h.GetPerformanceMetrics)
	r.Get("/health", h.GetOperationsHealth)

	return r
}

// instrumentMiddleware adds OpenTelemetry instrumentation to requests
func (h *OperationsMetricsHandler) instrumentMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		route := chi.RouteContext(ctx).RoutePattern()

		// Record request start
		h.httpActiveRequests.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", route),
			),
		)
		defer h.httpActiveRequests.Add(ctx, -1,
			metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", route),
			),
		)

		// Track request duration
		startTime := time.Now()

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		// Call next handler
		next.ServeHTTP(ww, r)

		duration := time.Since(startTime)

		// Record metrics
		h.httpRequestsTotal.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", route),
				attribute.Int("status", ww.Status()),
			),
		)

		h.httpRequestDuration.Record(ctx, duration.Seconds(),
			metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", route),
				attribute.Int("status", ww.Status()),
			),
		)
	})
}

// GetOperationsSummary returns a summary of all cleaning runs
func (h *OperationsMetricsHandler) GetOperationsSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	// Start span
	ctx, span := h.tracer.Start(ctx, "metrics.get_operations_summary",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations/metrics/summary"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	h.logger.DebugContext(ctx, "retrieving operations summary",
		slog.String("request_id", reqID),
		slog.String("trace_id", infrastructure.GetTraceID(ctx)))

	counts := h.service.Metrics(ctx)
	snapshots := h.service.List(ctx)

	summary := map[string]interface{}{
		"total":     counts.Total,
		"active":    counts.Pending + counts.Running,
		"pending":   counts.Pending,
		"running":   counts.Running,
		"completed": counts.Completed,
		"failed":    counts.Failed,
		"cancelled": counts.Cancelled,
		"timestamp": time.Now().UTC(),
	}

	// Break running counts down by current pipeline step
	byStep := make(map[string]int)
	for _, op := range snapshots {
		if op.Status == string(operations.OperationStatusRunning) && op.CurrentStep != "" {
			byStep[op.CurrentStep]++
		}
	}
	summary["running_by_step"] = byStep

	span.SetAttributes(
		attribute.Int("operations.total", counts.Total),
		attribute.Int("operations.active", counts.Pending+counts.Running),
		attribute.Int("operations.completed", counts.Completed),
		attribute.Int("operations.failed", counts.Failed),
	)

	render.JSON(w, r, summary)
}

// GetPerformanceMetrics returns performance metrics for cleaning runs
func (h *OperationsMetricsHandler) GetPerformanceMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	// Start span
	ctx, span := h.tracer.Start(ctx, "metrics.get_performance_metrics",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations/metrics/performance"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	h.logger.DebugContext(ctx, "retrieving performance metrics",
		slog.String("request_id", reqID),
		slog.String("trace_id", infrastructure.GetTraceID(ctx)))

	snapshots := h.service.List(ctx)

	// Calculate performance metrics
	metrics := h.calculatePerformanceMetrics(snapshots)

	span.SetAttributes(
		attribute.Float64("performance.avg_duration_seconds", metrics["avg_duration_seconds"].(float64)),
		attribute.Float64("performance.success_rate", metrics["success_rate"].(float64)),
	)

	render.JSON(w, r, metrics)
}

// GetOperationsHealth returns health status of the run pipeline
func (h *OperationsMetricsHandler) GetOperationsHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	// Start span
	ctx, span := h.tracer.Start(ctx, "metrics.get_operations_health",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations/metrics/health"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	h.logger.DebugContext(ctx, "checking operations health",
		slog.String("request_id", reqID),
		slog.String("trace_id", infrastructure.GetTraceID(ctx)))

	snapshots := h.service.List(ctx)

	// Check health criteria
	health := h.calculateHealth(snapshots)

	span.SetAttributes(
		attribute.String("health.status", health["status"].(string)),
		attribute.Bool("health.is_healthy", health["status"].(string) == "healthy"),
	)

	statusCode := http.StatusOK
	if health["status"] != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	render.Status(r, statusCode)
	render.JSON(w, r, health)
}

// calculatePerformanceMetrics calculates duration and outcome metrics
func (h *OperationsMetricsHandler) calculatePerformanceMetrics(snapshots []*operations.OperationSnapshot) map[string]interface{} {
	metrics := map[string]interface{}{
		"total_operations":     len(snapshots),
		"avg_duration_seconds": 0.0,
		"min_duration_seconds": 0.0,
		"max_duration_seconds": 0.0,
		"success_rate":         0.0,
		"failure_rate":         0.0,
		"cancellation_rate":    0.0,
		"timestamp":            time.Now().UTC(),
	}

	if len(snapshots) == 0 {
		return metrics
	}

	var totalDuration time.Duration
	var minDuration, maxDuration time.Duration
	var finishedCount, successCount, failedCount, cancelledCount int
	durations := make([]time.Duration, 0, len(snapshots))

	for _, op := range snapshots {
		// Only finished runs carry a duration
		if op.CompletedAt != nil {
			duration := op.CompletedAt.Sub(op.StartedAt)
			totalDuration += duration
			durations = append(durations, duration)
			finishedCount++

			if minDuration == 0 || duration < minDuration {
				minDuration = duration
			}
			if duration > maxDuration {
				maxDuration = duration
			}
		}

		// Count outcomes
		switch op.Status {
		case string(operations.OperationStatusCompleted):
			successCount++
		case string(operations.OperationStatusFailed):
			failedCount++
		case string(operations.OperationStatusCancelled):
			cancelledCount++
		}
	}

	// Calculate averages and rates
	if finishedCount > 0 {
		metrics["avg_duration_seconds"] = totalDuration.Seconds() / float64(finishedCount)
		metrics["min_duration_seconds"] = minDuration.Seconds()
		metrics["max_duration_seconds"] = maxDuration.Seconds()
	}

	totalFinished := successCount + failedCount + cancelledCount
	if totalFinished > 0 {
		metrics["success_rate"] = float64(successCount) / float64(totalFinished)
		metrics["failure_rate"] = float64(failedCount) / float64(totalFinished)
		metrics["cancellation_rate"] = float64(cancelledCount) / float64(totalFinished)
	}

	// Nearest-rank percentiles over sorted durations, once we have enough data
	if finishedCount >= 10 {
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

		metrics["p50_duration_seconds"] = durations[len(durations)/2].Seconds()
		metrics["p95_duration_seconds"] = durations[int(float64(len(durations))*0.95)].Seconds()
		metrics["p99_duration_seconds"] = durations[int(float64(len(durations))*0.99)].Seconds()
	}

	return metrics
}

// calculateHealth determines the health status of the run pipeline
func (h *OperationsMetricsHandler) calculateHealth(snapshots []*operations.OperationSnapshot) map[string]interface{} {
	health := map[string]interface{}{
		"status":    "healthy",
		"checks":    make(map[string]interface{}),
		"timestamp": time.Now().UTC(),
	}

	checks := health["checks"].(map[string]interface{})

	// Check 1: Active operations count
	activeCount := 0
	for _, op := range snapshots {
		if op.Status == string(operations.OperationStatusRunning) {
			activeCount++
		}
	}

	activeOpsHealthy := activeCount < 100 // Threshold for too many concurrent runs
	checks["active_operations"] = map[string]interface{}{
		"status":    conditionalStatus(activeOpsHealthy),
		"count":     activeCount,
		"threshold": 100,
	}

	// Check 2: Recent failure rate
	recentOps := filterRecentOperations(snapshots, 1*time.Hour)
	failureRate := calculateRecentFailureRate(recentOps)

	failureRateHealthy := failureRate < 0.1 // 10% failure rate threshold
	checks["failure_rate"] = map[string]interface{}{
		"status":    conditionalStatus(failureRateHealthy),
		"rate":      failureRate,
		"threshold": 0.1,
		"window":    "1h",
	}

	// Check 3: Stuck runs (running for too long)
	stuckCount := 0
	for _, op := range snapshots {
		if op.Status == string(operations.OperationStatusRunning) && op.StartedAt.Before(time.Now().Add(-30*time.Minute)) {
			stuckCount++
		}
	}

	noStuckOps := stuckCount == 0
	checks["stuck_operations"] = map[string]interface{}{
		"status":    conditionalStatus(noStuckOps),
		"count":     stuckCount,
		"threshold": "30m",
	}

	// Overall health determination
	if !activeOpsHealthy || !failureRateHealthy || !noStuckOps {
		health["status"] = "unhealthy"
	}

	return health
}

// Helper functions

func conditionalStatus(healthy bool) string {
	if healthy {
		return "healthy"
	}
	return "unhealthy"
}

func filterRecentOperations(snapshots []*operations.OperationSnapshot, window time.Duration) []*operations.OperationSnapshot {
	cutoff := time.Now().Add(-window)
	recent := make([]*operations.OperationSnapshot, 0)

	for _, op := range snapshots {
		if op.StartedAt.After(cutoff) {
			recent = append(recent, op)
		}
	}

	return recent
}

func calculateRecentFailureRate(snapshots []*operations.OperationSnapshot) float64 {
	if len(snapshots) == 0 {
		return 0.0
	}

	failedCount := 0
	finishedCount := 0

	for _, op := range snapshots {
		switch op.Status {
		case string(operations.OperationStatusFailed):
			failedCount++
			finishedCount++
		case string(operations.OperationStatusCompleted):
			finishedCount++
		}
	}

	if finishedCount == 0 {
		return 0.0
	}

	return float64(failedCount) / float64(finishedCount)
}
