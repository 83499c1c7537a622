package operations

import (
	"sync"
	"time"

	"rosterkit/internal/cleaning"
	"rosterkit/pkg/contracts/domain"
)

// OperationStatusValue represents the overall operation status enum
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// OperationState is the complete state of one pipeline run. Steps hand
// their outputs to the next step through the typed fields: the ingest
// step fills Table, the cleaning step fills Result, the report steps
// fill Stats and ChartPaths. Artifacts maps artifact names to the files
// written on disk.
type OperationState struct {
	mu sync.RWMutex

	ID        string               `json:"id"`
	Source    string               `json:"source"`
	Status    OperationStatusValue `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`

	Steps     map[string]*StepState `json:"steps"`
	Artifacts map[string]string     `json:"artifacts,omitempty"`

	Table      *domain.RawTable    `json:"-"`
	Result     *cleaning.Result    `json:"-"`
	Stats      *domain.RosterStats `json:"-"`
	ChartPaths []string            `json:"-"`

	// Error if the operation failed
	Error error `json:"error,omitempty"`
}

// NewOperationState creates a new operation state for the given source file
func NewOperationState(id, source string) *OperationState {
	return &OperationState{
		ID:        id,
		Source:    source,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Artifacts: make(map[string]string),
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the operation as completed
func (p *OperationState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// Cancel marks the operation as cancelled
func (p *OperationState) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCancelled
}

// GetStep returns the state of a specific step
func (p *OperationState) GetStep(stepID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stepID]
}

// SetStep updates the state of a specific step
func (p *OperationState) SetStep(stepID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Steps[stepID] = state
}

// GetTable returns the raw table loaded by the ingest step
func (p *OperationState) GetTable() *domain.RawTable {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Table
}

// SetTable stores the raw table for downstream steps
func (p *OperationState) SetTable(table *domain.RawTable) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Table = table
}

// GetResult returns the cleaning result
func (p *OperationState) GetResult() *cleaning.Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Result
}

// SetResult stores the cleaning result for downstream steps
func (p *OperationState) SetResult(result *cleaning.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Result = result
}

// Records returns the cleaned records, or nil before the cleaning step ran
func (p *OperationState) Records() []domain.EmployeeRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.Result == nil {
		return nil
	}
	return p.Result.Records
}

// GetStats returns the descriptive statistics, or nil if not computed
func (p *OperationState) GetStats() *domain.RosterStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Stats
}

// SetStats stores the descriptive statistics
func (p *OperationState) SetStats(stats *domain.RosterStats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Stats = stats
}

// GetChartPaths returns the rendered chart files in render order
func (p *OperationState) GetChartPaths() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ChartPaths
}

// SetChartPaths stores the rendered chart files
func (p *OperationState) SetChartPaths(paths []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ChartPaths = paths
}

// AddArtifact records an output file written by a step
func (p *OperationState) AddArtifact(name, path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Artifacts[name] = path
}

// GetArtifacts returns a copy of the artifact map
func (p *OperationState) GetArtifacts() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	artifacts := make(map[string]string, len(p.Artifacts))
	for k, v := range p.Artifacts {
		artifacts[k] = v
	}
	return artifacts
}

// Duration returns the duration of the operation execution
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// HasFailures returns true if any step has failed
func (p *OperationState) HasFailures() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, step := range p.Steps {
		if step.Status == StepStatusFailed {
			return true
		}
	}
	return false
}

// Clone creates a copy of the operation state safe to hand to callers.
// Step states and artifacts are copied; the table, result and stats
// pointers are shared and treated as read-only.
func (p *OperationState) Clone() *OperationState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	clone := &OperationState{
		ID:         p.ID,
		Source:     p.Source,
		Status:     p.Status,
		StartTime:  p.StartTime,
		Steps:      make(map[string]*StepState),
		Artifacts:  make(map[string]string),
		Table:      p.Table,
		Result:     p.Result,
		Stats:      p.Stats,
		ChartPaths: p.ChartPaths,
		Error:      p.Error,
	}

	if p.EndTime != nil {
		endTime := *p.EndTime
		clone.EndTime = &endTime
	}

	for k, v := range p.Steps {
		v.mu.RLock()
		stepCopy := &StepState{
			ID:        v.ID,
			Name:      v.Name,
			Status:    v.Status,
			StartTime: v.StartTime,
			EndTime:   v.EndTime,
			Progress:  v.Progress,
			Message:   v.Message,
			Error:     v.Error,
			Metadata:  make(map[string]interface{}),
		}
		for mk, mv := range v.Metadata {
			stepCopy.Metadata[mk] = mv
		}
		v.mu.RUnlock()
		clone.Steps[k] = stepCopy
	}

	for k, v := range p.Artifacts {
		clone.Artifacts[k] = v
	}

	return clone
}
