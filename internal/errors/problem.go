package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

// Pipeline-specific errors (using errors package for sentinel errors)
var (
	ErrSourceNotFound  = errors.New("source file not found")
	ErrNoCleanedRoster = errors.New("no cleaned roster available")
	ErrRunInProgress   = errors.New("pipeline run already in progress")
	ErrRunCancelled    = errors.New("pipeline run cancelled")
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	// Add standard fields
	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	// Add extensions
	for k, v := range pd.Extensions {
		data[k] = v
	}

	// Use standard JSON marshaling
	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// NewRunInProgressError creates a problem response for a rejected pipeline
// trigger while another run is still active
func NewRunInProgressError(runID, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusConflict,
		TypePipelineRunning,
		"Pipeline Already Running",
		"A cleaning run is already in progress. Wait for it to finish or cancel it first.",
		"",
	)
	problem.WithExtension("run_id", runID)
	if traceID != "" {
		problem.WithExtension("trace_id", traceID)
	}
	return problem
}

// NewSchemaViolationError creates a problem response naming the schema
// columns missing from an uploaded or configured source file
func NewSchemaViolationError(columns []string, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusUnprocessableEntity,
		TypeRosterSchema,
		"Schema Violation",
		"The source file does not carry the required roster columns.",
		"",
	)
	problem.WithExtension("missing_columns", columns)
	if traceID != "" {
		problem.WithExtension("trace_id", traceID)
	}
	return problem
}
