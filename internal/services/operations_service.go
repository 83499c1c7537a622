package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rosterkit/internal/audit"
	"rosterkit/internal/cleaning"
	"rosterkit/internal/config"
	apperrors "rosterkit/internal/errors"
	"rosterkit/internal/exporter"
	"rosterkit/internal/infrastructure"
	"rosterkit/internal/ingest"
	"rosterkit/internal/operations"
	"rosterkit/internal/report"
)

// OperationHub is the WebSocket surface the operations service drives.
// Step-level snapshots flow through the runner's StatusBroadcaster; the
// service itself only pushes completion refreshes and terminal errors.
type OperationHub interface {
	operations.WebSocketHub
	BroadcastRefresh(source string, components []string)
	BroadcastError(code, message, details, step string, recoverable bool)
}

// OperationsService owns the cleaning pipeline. It assembles the runner
// with all six steps at startup, triggers runs asynchronously, and keeps
// a cancel function per in-flight operation so runs can be stopped from
// the API.
type OperationsService struct {
	runner   *operations.Runner
	recorder *audit.Recorder
	hub      OperationHub
	paths    *config.Paths
	logger   *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// TriggerRequest describes a pipeline run to start. Source may be a bare
// filename, which is resolved against the input directory.
type TriggerRequest struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source" validate:"required"`
}

// OperationMetrics aggregates operation counts by terminal status.
type OperationMetrics struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// NewOperationsService builds the pipeline runner and registers the steps
// in execution order: ingest, clean, export, charts, dashboard, pdf.
func NewOperationsService(hub OperationHub, cfg *config.Config, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) (*OperationsService, error) {
	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	return NewOperationsServiceWithPaths(hub, cfg, paths, metrics, logger)
}

// NewOperationsServiceWithPaths builds the service against explicit paths
// instead of the executable-relative defaults.
func NewOperationsServiceWithPaths(hub OperationHub, cfg *config.Config, paths *config.Paths, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) (*OperationsService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("operations service initialized with paths",
		slog.String("input_dir", paths.InputDir),
		slog.String("output_dir", paths.OutputDir),
		slog.String("visualizations_dir", paths.VisualizationsDir))

	recorder := audit.NewDisabledRecorder()
	if cfg.Audit.Enabled {
		auditPath := cfg.Audit.Path
		if auditPath == "" {
			auditPath = paths.AuditDB
		} else if !filepath.IsAbs(auditPath) {
			auditPath = filepath.Join(paths.DataDir, auditPath)
		}
		var err error
		recorder, err = audit.NewRecorder(auditPath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
	}

	runner := operations.NewRunner(hub, operations.NewConfig(), operations.NewTracer(metrics), logger)
	if err := registerSteps(runner, paths, cfg, recorder, metrics, logger); err != nil {
		recorder.Close()
		return nil, fmt.Errorf("failed to register steps: %w", err)
	}

	return &OperationsService{
		runner:   runner,
		recorder: recorder,
		hub:      hub,
		paths:    paths,
		logger:   logger,
		cancels:  make(map[string]context.CancelFunc),
	}, nil
}

// registerSteps wires the six pipeline steps into the runner. Dashboard
// and PDF steps stay registered even when disabled; they report
// themselves as skipped so operation snapshots always carry the full
// step list.
func registerSteps(runner *operations.Runner, paths *config.Paths, cfg *config.Config, recorder *audit.Recorder, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) error {
	opts := &operations.Options{
		Broadcaster: runner.GetBroadcaster(),
		Metrics:     metrics,
	}

	steps := []operations.Step{
		operations.NewIngestStep(ingest.NewLoader(logger), logger, opts),
		operations.NewCleanStep(cleaning.NewCleaner(logger), recorder, logger, opts),
		operations.NewExportStep(exporter.NewRosterExporter(paths, logger), paths, logger, opts),
		operations.NewChartsStep(report.NewChartRenderer(paths, cfg.Report, logger), logger, opts),
		operations.NewDashboardStep(report.NewDashboardBuilder(paths, cfg.Report, logger), cfg.Report.Dashboard, logger, opts),
		operations.NewPDFStep(report.NewPDFBuilder(paths, cfg.Report, logger), cfg.Report.PDF, logger, opts),
	}

	for _, step := range steps {
		if err := runner.Register(step); err != nil {
			return err
		}
	}
	return nil
}

// Trigger starts a pipeline run for the given source file and returns the
// operation ID immediately. The run itself executes on a detached context
// so an aborted HTTP request does not kill the pipeline; cancellation goes
// through Cancel instead.
func (s *OperationsService) Trigger(ctx context.Context, req TriggerRequest) (string, error) {
	if req.Source == "" {
		return "", apperrors.NewAppValidationError("source file is required")
	}

	source := req.Source
	if !filepath.IsAbs(source) {
		source = s.paths.GetInputPath(source)
	}
	if _, err := os.Stat(source); err != nil {
		return "", apperrors.NewNotFoundError("source file").WithContext("path", source)
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.mu.Lock()
	if _, exists := s.cancels[id]; exists {
		s.mu.Unlock()
		cancel()
		return "", apperrors.NewAppValidationError("operation already running").WithContext("operation_id", id)
	}
	s.cancels[id] = cancel
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "operation triggered",
		slog.String("operation_id", id),
		slog.String("source", source))

	go s.execute(runCtx, id, source)

	return id, nil
}

// execute runs the pipeline to completion and pushes the terminal
// notification to connected clients.
func (s *OperationsService) execute(ctx context.Context, id, source string) {
	defer func() {
		s.mu.Lock()
		if cancel, ok := s.cancels[id]; ok {
			cancel()
			delete(s.cancels, id)
		}
		s.mu.Unlock()
	}()

	resp, err := s.runner.Run(ctx, operations.OperationRequest{ID: id, Source: source})
	if resp == nil {
		s.logger.Error("operation produced no response",
			slog.String("operation_id", id),
			slog.String("error", fmt.Sprintf("%v", err)))
		return
	}

	switch resp.Status {
	case operations.OperationStatusCompleted:
		components := make([]string, 0, len(resp.Artifacts))
		for name := range resp.Artifacts {
			components = append(components, name)
		}
		sort.Strings(components)
		s.hub.BroadcastRefresh(filepath.Base(source), components)
	case operations.OperationStatusCancelled:
		s.logger.Info("operation cancelled",
			slog.String("operation_id", id))
	default:
		step := ""
		for stepID, state := range resp.Steps {
			if state.Status == operations.StepStatusFailed {
				step = stepID
				break
			}
		}
		details := resp.Error
		if details == "" && err != nil {
			details = err.Error()
		}
		s.hub.BroadcastError(errorCode(err), "operation failed", details, step, false)
	}
}

// errorCode maps a pipeline error to the code clients use to look up
// recovery hints.
func errorCode(err error) string {
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		return string(appErr.Type)
	}
	return string(apperrors.ErrTypeStorage)
}

// Cancel stops a running operation. Completed operations cannot be
// cancelled and report not found.
func (s *OperationsService) Cancel(ctx context.Context, operationID string) error {
	if operationID == "" {
		return apperrors.NewAppValidationError("operation ID is required")
	}

	s.mu.Lock()
	cancel, ok := s.cancels[operationID]
	s.mu.Unlock()
	if !ok {
		return apperrors.NewNotFoundError("operation").WithContext("operation_id", operationID)
	}

	cancel()
	s.logger.InfoContext(ctx, "operation cancel requested",
		slog.String("operation_id", operationID))
	return nil
}

// CancelAll stops every in-flight operation and returns how many were
// signalled.
func (s *OperationsService) CancelAll(ctx context.Context) int {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.cancels))
	for _, cancel := range s.cancels {
		cancels = append(cancels, cancel)
	}
	count := len(cancels)
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if count > 0 {
		s.logger.InfoContext(ctx, "cancelled all operations", slog.Int("count", count))
	}
	return count
}

// Status returns the snapshot for a single operation. Snapshots outlive
// the run itself, so completed and failed operations stay queryable until
// Cleanup evicts them.
func (s *OperationsService) Status(ctx context.Context, operationID string) (*operations.OperationSnapshot, error) {
	if operationID == "" {
		return nil, apperrors.NewAppValidationError("operation ID is required")
	}

	snapshot, ok := s.runner.GetBroadcaster().GetSnapshot(operationID)
	if !ok {
		return nil, apperrors.NewNotFoundError("operation").WithContext("operation_id", operationID)
	}
	return snapshot, nil
}

// List returns all known operation snapshots, newest first.
func (s *OperationsService) List(ctx context.Context) []*operations.OperationSnapshot {
	snapshots := s.runner.GetBroadcaster().GetAllSnapshots()
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].StartedAt.After(snapshots[j].StartedAt)
	})
	return snapshots
}

// ListByStatus returns operation snapshots filtered by status, newest
// first.
func (s *OperationsService) ListByStatus(ctx context.Context, status string) []*operations.OperationSnapshot {
	all := s.List(ctx)
	filtered := make([]*operations.OperationSnapshot, 0, len(all))
	for _, snapshot := range all {
		if snapshot.Status == status {
			filtered = append(filtered, snapshot)
		}
	}
	return filtered
}

// ActiveCount reports how many operations are currently in flight.
func (s *OperationsService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancels)
}

// StepIDs returns the pipeline step IDs in execution order.
func (s *OperationsService) StepIDs() []string {
	return s.runner.StepIDs()
}

// Metrics aggregates snapshot counts by status for the health and stats
// endpoints.
func (s *OperationsService) Metrics(ctx context.Context) OperationMetrics {
	var m OperationMetrics
	for _, snapshot := range s.runner.GetBroadcaster().GetAllSnapshots() {
		m.Total++
		switch snapshot.Status {
		case string(operations.OperationStatusPending):
			m.Pending++
		case string(operations.OperationStatusRunning):
			m.Running++
		case string(operations.OperationStatusCompleted):
			m.Completed++
		case string(operations.OperationStatusFailed):
			m.Failed++
		case string(operations.OperationStatusCancelled):
			m.Cancelled++
		}
	}
	return m
}

// Cleanup evicts completed operation snapshots older than maxAge.
func (s *OperationsService) Cleanup(ctx context.Context, maxAge time.Duration) {
	s.runner.GetBroadcaster().CleanupOldOperations(ctx, maxAge)
}

// AuditRecorder exposes the audit store for the data service and health
// checks.
func (s *OperationsService) AuditRecorder() *audit.Recorder {
	return s.recorder
}

// Shutdown cancels in-flight operations and releases the audit store and
// broadcaster. The websocket hub is owned by the caller and is not
// touched here.
func (s *OperationsService) Shutdown(ctx context.Context) error {
	s.CancelAll(ctx)
	s.runner.GetBroadcaster().Stop()
	if err := s.recorder.Close(); err != nil {
		return fmt.Errorf("failed to close audit store: %w", err)
	}
	return nil
}
