package operations

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Runner executes the cleaning pipeline. Steps run sequentially in
// registration order; a step failure fails the operation and every
// remaining step is skipped, so a broken load never reaches the
// cleaning or report steps. A step may also skip itself from Validate
// without failing the run.
type Runner struct {
	config      *Config
	broadcaster *StatusBroadcaster
	tracer      *Tracer
	logger      *slog.Logger

	steps []Step

	// Active operations
	mu         sync.RWMutex
	operations map[string]*OperationState
}

// NewRunner creates a pipeline runner with dependency injection
func NewRunner(hub WebSocketHub, config *Config, tracer *Tracer, logger *slog.Logger) *Runner {
	if config == nil {
		config = NewConfig()
	}
	if tracer == nil {
		tracer = NewTracer(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		config:      config,
		broadcaster: NewStatusBroadcaster(hub, logger),
		tracer:      tracer,
		logger:      logger,
		operations:  make(map[string]*OperationState),
	}
}

// Register appends a step to the pipeline. Registration order is
// execution order.
func (r *Runner) Register(step Step) error {
	if step == nil {
		return fmt.Errorf("cannot register nil step")
	}
	if step.ID() == "" {
		return fmt.Errorf("step ID cannot be empty")
	}
	for _, existing := range r.steps {
		if existing.ID() == step.ID() {
			return fmt.Errorf("step with ID %s already registered", step.ID())
		}
	}
	r.steps = append(r.steps, step)
	return nil
}

// StepIDs returns the registered step IDs in execution order
func (r *Runner) StepIDs() []string {
	ids := make([]string, len(r.steps))
	for i, step := range r.steps {
		ids[i] = step.ID()
	}
	return ids
}

// GetBroadcaster returns the status broadcaster for centralized status updates
func (r *Runner) GetBroadcaster() *StatusBroadcaster {
	return r.broadcaster
}

// GetConfig returns the current configuration
func (r *Runner) GetConfig() *Config {
	return r.config
}

// Run executes the pipeline for the given request
func (r *Runner) Run(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	state := NewOperationState(req.ID, req.Source)
	r.storeOperation(state)
	defer r.removeOperation(req.ID)

	stepIDs := make([]string, len(r.steps))
	for i, step := range r.steps {
		state.SetStep(step.ID(), NewStepState(step.ID(), step.Name()))
		stepIDs[i] = step.ID()
	}

	r.broadcaster.CreateOperation(req.ID, stepIDs)

	ctx, span := r.tracer.StartOperation(ctx, req.ID, req.Source)
	defer span.End()

	state.Start()
	r.broadcaster.StartOperation(req.ID)

	r.logger.InfoContext(ctx, "operation started",
		slog.String("operation_id", req.ID),
		slog.String("source", req.Source),
		slog.Int("steps", len(r.steps)))

	var opErr error
	for _, step := range r.steps {
		stepState := state.GetStep(step.ID())

		if opErr == nil && ctx.Err() != nil {
			opErr = NewCancellationError(step.ID())
		}

		if opErr != nil {
			reason := fmt.Sprintf("Skipped: previous step failed (%s)", opErr)
			if GetErrorType(opErr) == ErrorTypeCancellation {
				reason = "Skipped: operation cancelled"
			}
			stepState.Skip(reason)
			r.broadcaster.SkipStep(req.ID, step.ID(), reason)
			continue
		}

		if err := r.runStep(ctx, state, step); err != nil {
			opErr = err
		}
	}

	if opErr != nil {
		if GetErrorType(opErr) == ErrorTypeCancellation {
			state.Cancel()
			r.broadcaster.CancelOperation(req.ID, opErr)
		} else {
			state.Fail(opErr)
			r.broadcaster.FailOperation(req.ID, opErr)
		}
		r.logger.ErrorContext(ctx, "operation failed",
			slog.String("operation_id", req.ID),
			slog.String("error", opErr.Error()),
			slog.Duration("duration", state.Duration()))
	} else {
		state.Complete()
		r.broadcaster.CompleteOperation(req.ID, "Pipeline completed successfully")
		r.logger.InfoContext(ctx, "operation completed",
			slog.String("operation_id", req.ID),
			slog.Duration("duration", state.Duration()))
	}

	r.tracer.EndOperation(ctx, span, req.ID, state.Duration(), opErr)

	return r.createResponse(state), opErr
}

// runStep validates and executes a single step. A skip signal from
// Validate marks the step skipped and returns nil.
func (r *Runner) runStep(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStep(step.ID())

	if err := step.Validate(state); err != nil {
		if reason, ok := SkipReason(err); ok {
			stepState.Skip(reason)
			r.broadcaster.SkipStep(state.ID, step.ID(), reason)
			r.logger.InfoContext(ctx, "step skipped",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("reason", reason))
			return nil
		}
		stepState.Fail(err)
		r.broadcaster.FailStep(state.ID, step.ID(), err)
		r.logger.WarnContext(ctx, "step validation failed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		return NewValidationError(step.ID(), err.Error())
	}

	timeout := r.config.GetStepTimeout(step.ID())
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stepCtx, span := r.tracer.StartStep(stepCtx, state.ID, step.ID())
	defer span.End()

	stepState.Start()
	r.broadcaster.UpdateStepProgress(state.ID, step.ID(), 0, "Step started")
	r.logger.InfoContext(ctx, "executing step",
		slog.String("operation_id", state.ID),
		slog.String("step", step.ID()))

	start := time.Now()
	err := step.Execute(stepCtx, state)
	duration := time.Since(start)

	r.tracer.EndStep(stepCtx, span, state.ID, step.ID(), duration, err)

	if err != nil {
		stepState.Fail(err)
		r.broadcaster.FailStep(state.ID, step.ID(), err)
		r.logger.ErrorContext(ctx, "step failed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return WrapError(err, step.ID(), "step execution failed")
	}

	stepState.Complete()
	r.broadcaster.CompleteStep(state.ID, step.ID(), "Step completed successfully")
	r.logger.InfoContext(ctx, "step completed",
		slog.String("operation_id", state.ID),
		slog.String("step", step.ID()),
		slog.Duration("duration", duration))

	return nil
}

// createResponse creates an operation response from state
func (r *Runner) createResponse(state *OperationState) *OperationResponse {
	resp := &OperationResponse{
		ID:        state.ID,
		Status:    state.Status,
		Duration:  state.Duration(),
		Steps:     state.Steps,
		Artifacts: state.GetArtifacts(),
	}

	if result := state.GetResult(); result != nil {
		summary := result.Summary
		resp.Summary = &summary
	}

	if state.Error != nil {
		resp.Error = state.Error.Error()
	}

	return resp
}

// GetOperation retrieves the state of a running operation
func (r *Runner) GetOperation(id string) (*OperationState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, exists := r.operations[id]
	if !exists {
		return nil, ErrOperationNotFound
	}

	return state.Clone(), nil
}

// ListOperations returns all active operations
func (r *Runner) ListOperations() []*OperationState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	operations := make([]*OperationState, 0, len(r.operations))
	for _, state := range r.operations {
		operations = append(operations, state.Clone())
	}

	return operations
}

// storeOperation stores an operation state
func (r *Runner) storeOperation(state *OperationState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations[state.ID] = state
}

// removeOperation removes an operation state
func (r *Runner) removeOperation(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.operations, id)
}
