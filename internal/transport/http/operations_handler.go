package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apierrors "rosterkit/internal/errors"
	"rosterkit/internal/infrastructure"
	"rosterkit/internal/middleware"
	"rosterkit/internal/operations"
	"rosterkit/internal/services"
)

// Hub interface defines WebSocket hub operations
type Hub interface {
	BroadcastUpdate(updateType, subtype, action string, data interface{})
}

// OperationsHandler handles pipeline run HTTP requests
type OperationsHandler struct {
	service OperationServiceInterface
	wsHub   Hub
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewOperationsHandler creates a new operations handler
func NewOperationsHandler(service OperationServiceInterface, wsHub Hub, logger *slog.Logger) *OperationsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if wsHub == nil {
		panic("wsHub cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OperationsHandler{
		service: service,
		wsHub:   wsHub,
		logger:  logger.With(slog.String("handler", "operations")),
	}
}

// SetMetrics sets the business metrics for the handler
func (h *OperationsHandler) SetMetrics(metrics *infrastructure.BusinessMetrics) {
	h.metrics = metrics
}

// StartRequest represents the request to start a cleaning run
type StartRequest struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source" validate:"required,filename"`
}

// Bind implements the render.Binder interface for request validation
func (req *StartRequest) Bind(r *http.Request) error {
	req.Source = strings.TrimSpace(req.Source)
	if req.Source == "" {
		return errors.New("source is required")
	}
	if strings.Contains(req.Source, "..") {
		return fmt.Errorf("invalid source path: %s", req.Source)
	}
	return nil
}

// Routes returns a chi router for operations endpoints
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Apply timeout middleware to all operations routes
	r.Use(middleware.Timeout(60*time.Second, h.logger))

	// Run lifecycle endpoints
	r.Get("/steps", h.GetSteps)
	r.Post("/start", h.StartOperation)
	r.Post("/{id}/stop", h.StopOperation)
	r.Get("/{id}/status", h.GetOperationStatus)
	r.Get("/", h.ListOperations)
	r.Delete("/", h.PurgeOperations)

	return r
}

// StartOperation handles POST /api/operations/start
func (h *OperationsHandler) StartOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("operations-handler")

	ctx, span := tracer.Start(ctx, "operations_handler.start_operation",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations/start"),
			attribute.String("request_id", reqID),
			attribute.String("component", "operations_handler"),
		),
	)
	defer span.End()

	h.logger.InfoContext(ctx, "operation start request",
		slog.String("request_id", reqID),
		slog.String("trace_id", infrastructure.GetTraceID(ctx)),
		slog.String("operation", "start_operation"),
	)

	// Decode and validate request
	data := &StartRequest{}
	if err := render.Bind(r, data); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "request_validation"))

		h.logger.ErrorContext(ctx, "failed to bind start request",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		problem := apierrors.NewProblemDetails(
			http.StatusBadRequest,
			"/errors/validation_failed",
			"validation_failed",
			err.Error(),
			r.URL.Path+"#"+reqID,
		).WithExtension("trace_id", infrastructure.GetTraceID(ctx))

		render.Render(w, r, problem)
		return
	}

	// Use the request ID as the operation ID when the client did not pick one,
	// so log lines and run status share a handle.
	if data.ID == "" {
		data.ID = reqID
	}

	span.SetAttributes(
		attribute.String("operation.id", data.ID),
		attribute.String("operation.source", data.Source),
	)

	if h.metrics != nil {
		infrastructure.RecordActiveOperationChange(ctx, h.metrics, 1, "clean")
	}

	operationID, err := h.service.Trigger(ctx, services.TriggerRequest{ID: data.ID, Source: data.Source})
	if err != nil {
		if h.metrics != nil {
			infrastructure.RecordActiveOperationChange(ctx, h.metrics, -1, "clean")
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "operation trigger failed")

		h.logger.ErrorContext(ctx, "failed to trigger operation",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		h.handleError(w, r, err, map[string]interface{}{
			"source": data.Source,
		})
		return
	}

	h.logger.InfoContext(ctx, "operation accepted",
		slog.String("operation_id", operationID),
		slog.String("source", data.Source),
		slog.String("request_id", reqID))

	// Send WebSocket notification
	h.wsHub.BroadcastUpdate("operation_update", "queued", "pending", map[string]interface{}{
		"operation_id": operationID,
		"source":       data.Source,
		"timestamp":    time.Now().UTC(),
	})

	// Return 202 Accepted with a polling URL; progress streams over /ws
	response := map[string]interface{}{
		"operation_id": operationID,
		"status":       string(operations.OperationStatusPending),
		"message":      "Cleaning run accepted",
		"poll_url":     "/api/operations/" + operationID + "/status",
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, response)
}

// StopOperation handles POST /api/operations/{id}/stop
func (h *OperationsHandler) StopOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operationID := chi.URLParam(r, "id")
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("operations-handler")

	ctx, span := tracer.Start(ctx, "operations_handler.stop_operation",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations/{id}/stop"),
			attribute.String("operation.id", operationID),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	h.logger.InfoContext(ctx, "operation stop request",
		slog.String("operation_id", operationID),
		slog.String("request_id", reqID),
		slog.String("trace_id", infrastructure.GetTraceID(ctx)))

	cancelCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cancelStart := time.Now()
	err := h.service.Cancel(cancelCtx, operationID)
	cancelDuration := time.Since(cancelStart)

	// Record cancellation metric on success
	if err == nil && h.metrics != nil {
		infrastructure.RecordOperationCancellation(ctx, h.metrics, operationID, "clean", "user_requested")
	}

	span.SetAttributes(
		attribute.Float64("cancellation.duration_ms", float64(cancelDuration.Milliseconds())),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation cancellation failed")

		h.logger.ErrorContext(ctx, "failed to cancel operation",
			slog.String("operation_id", operationID),
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		h.handleError(w, r, err, map[string]interface{}{
			"operation_id": operationID,
		})
		return
	}

	h.logger.InfoContext(ctx, "operation cancelled successfully",
		slog.String("operation_id", operationID),
		slog.String("request_id", reqID))

	// Send WebSocket notification
	h.wsHub.BroadcastUpdate("operation_update", "cancelled", "cancelled", map[string]interface{}{
		"operation_id": operationID,
		"timestamp":    time.Now().UTC(),
	})

	render.JSON(w, r, map[string]string{
		"message": "Operation cancelled successfully",
	})
}

// GetOperationStatus handles GET /api/operations/{id}/status
func (h *OperationsHandler) GetOperationStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operationID := chi.URLParam(r, "id")
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("operations-handler")

	ctx, span := tracer.Start(ctx, "operations_handler.get_status",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations/{id}/status"),
			attribute.String("operation.id", operationID),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	h.logger.DebugContext(ctx, "operation status request",
		slog.String("operation_id", operationID),
		slog.String("request_id", reqID))

	statusCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	snapshot, err := h.service.Status(statusCtx, operationID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status retrieval failed")

		h.logger.ErrorContext(ctx, "failed to get operation status",
			slog.String("operation_id", operationID),
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		h.handleError(w, r, err, map[string]interface{}{
			"operation_id": operationID,
		})
		return
	}

	span.SetAttributes(
		attribute.String("operation.status", snapshot.Status),
		attribute.Int("operation.progress", snapshot.Progress),
	)

	render.JSON(w, r, snapshot)
}

// ListOperations handles GET /api/operations
func (h *OperationsHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("operations-handler")

	ctx, span := tracer.Start(ctx, "operations_handler.list_operations",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	// Check for status filter
	statusFilter := r.URL.Query().Get("status")

	h.logger.DebugContext(ctx, "listing operations",
		slog.String("status_filter", statusFilter),
		slog.String("request_id", reqID))

	listCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var snapshots []*operations.OperationSnapshot

	if statusFilter != "" {
		validStatuses := map[string]bool{
			string(operations.OperationStatusPending):   true,
			string(operations.OperationStatusRunning):   true,
			string(operations.OperationStatusCompleted): true,
			string(operations.OperationStatusFailed):    true,
			string(operations.OperationStatusCancelled): true,
		}

		if !validStatuses[statusFilter] {
			problem := apierrors.NewProblemDetails(
				http.StatusBadRequest,
				"/errors/validation_failed",
				"validation_failed",
				fmt.Sprintf("Invalid status filter: %s", statusFilter),
				r.URL.Path+"#"+reqID,
			).WithExtension("trace_id", infrastructure.GetTraceID(ctx)).
				WithExtension("valid_statuses", []string{"pending", "running", "completed", "failed", "cancelled"})

			render.Render(w, r, problem)
			return
		}

		snapshots = h.service.ListByStatus(listCtx, statusFilter)
		span.SetAttributes(attribute.String("filter.status", statusFilter))
	} else {
		snapshots = h.service.List(listCtx)
	}

	span.SetAttributes(attribute.Int("operations.count", len(snapshots)))

	render.JSON(w, r, map[string]interface{}{
		"operations": snapshots,
		"count":      len(snapshots),
	})
}

// PurgeOperations handles DELETE /api/operations, evicting finished run
// snapshots older than max_age (default 24h).
func (h *OperationsHandler) PurgeOperations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("operations-handler")

	ctx, span := tracer.Start(ctx, "operations_handler.purge_operations",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	maxAge := 24 * time.Hour
	if raw := r.URL.Query().Get("max_age"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed < 0 {
			problem := apierrors.NewProblemDetails(
				http.StatusBadRequest,
				"/errors/validation_failed",
				"validation_failed",
				fmt.Sprintf("Invalid max_age: %s", raw),
				r.URL.Path+"#"+reqID,
			).WithExtension("trace_id", infrastructure.GetTraceID(ctx))

			render.Render(w, r, problem)
			return
		}
		maxAge = parsed
	}

	h.logger.InfoContext(ctx, "purging finished operations",
		slog.Duration("max_age", maxAge),
		slog.String("request_id", reqID))

	h.service.Cleanup(ctx, maxAge)
	span.SetAttributes(attribute.Float64("purge.max_age_seconds", maxAge.Seconds()))

	w.WriteHeader(http.StatusNoContent)
}

// GetSteps handles GET /api/operations/steps
func (h *OperationsHandler) GetSteps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	h.logger.DebugContext(ctx, "getting pipeline steps",
		slog.String("request_id", reqID))

	steps := h.service.StepIDs()

	render.JSON(w, r, map[string]interface{}{
		"steps": steps,
		"count": len(steps),
	})
}

// handleError centralizes error handling for the handler
func (h *OperationsHandler) handleError(w http.ResponseWriter, r *http.Request, err error, extensions map[string]interface{}) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	traceID := infrastructure.GetTraceID(ctx)

	h.logger.ErrorContext(ctx, "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("trace_id", traceID),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method))

	var problem *apierrors.ProblemDetails
	var appErr *apierrors.AppError

	switch {
	case errors.As(err, &appErr) && appErr.Type == apierrors.ErrTypeNotFound:
		problem = apierrors.NewProblemDetails(
			http.StatusNotFound,
			"/errors/not_found",
			"not_found",
			appErr.Message,
			r.URL.Path+"#"+reqID,
		)

	case errors.As(err, &appErr) && appErr.Type == apierrors.ErrTypeValidation:
		problem = apierrors.NewProblemDetails(
			http.StatusBadRequest,
			"/errors/validation_failed",
			"validation_failed",
			appErr.Message,
			r.URL.Path+"#"+reqID,
		)

	case errors.Is(err, context.DeadlineExceeded):
		problem = apierrors.NewProblemDetails(
			http.StatusGatewayTimeout,
			"/errors/timeout",
			"Request Timeout",
			"The request timed out while processing",
			r.URL.Path+"#"+reqID,
		)

	case errors.Is(err, context.Canceled):
		problem = apierrors.NewProblemDetails(
			http.StatusRequestTimeout,
			"/errors/request_canceled",
			"Request Canceled",
			"The request was canceled",
			r.URL.Path+"#"+reqID,
		)

	default:
		problem = apierrors.NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/internal_error",
			"Internal Server Error",
			"An unexpected error occurred",
			r.URL.Path+"#"+reqID,
		)
	}

	problem.WithExtension("trace_id", traceID).
		WithExtension("timestamp", time.Now().UTC()).
		WithExtension("request_id", reqID)

	for k, v := range extensions {
		problem.WithExtension(k, v)
	}

	render.Render(w, r, problem)
}
