package operations

import (
	"time"

	"rosterkit/pkg/contracts/domain"
	"rosterkit/pkg/contracts/events"
)

// Pipeline step identifiers
const (
	StepIDIngest    = "ingest"
	StepIDClean     = "clean"
	StepIDExport    = "export"
	StepIDCharts    = "charts"
	StepIDDashboard = "dashboard"
	StepIDPDF       = "pdf"
)

// Pipeline step names
const (
	StepNameIngest    = "Roster Ingestion"
	StepNameClean     = "Data Cleaning"
	StepNameExport    = "Data Export"
	StepNameCharts    = "Chart Rendering"
	StepNameDashboard = "Interactive Dashboard"
	StepNamePDF       = "PDF Report"
)

// Artifact names recorded on the operation state
const (
	ArtifactCleanedCSV  = "cleaned_csv"
	ArtifactCleanedXLSX = "cleaned_xlsx"
	ArtifactSummaryJSON = "summary_json"
	ArtifactDashboard   = "dashboard"
	ArtifactPDFReport   = "pdf_report"
)

// WebSocket event type - using frontend format
const EventOperationSnapshot = string(events.MessageTypeOperationSnapshot)

// Default timeouts
const (
	DefaultStepTimeout      = 5 * time.Minute
	DefaultIngestTimeout    = 2 * time.Minute
	DefaultCleanTimeout     = 5 * time.Minute
	DefaultExportTimeout    = 2 * time.Minute
	DefaultChartsTimeout    = 2 * time.Minute
	DefaultDashboardTimeout = 1 * time.Minute
	DefaultPDFTimeout       = 2 * time.Minute
)

// OperationRequest represents a request to run the cleaning pipeline
type OperationRequest struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"`
}

// OperationResponse represents the outcome of a pipeline run
type OperationResponse struct {
	ID        string                  `json:"id"`
	Status    OperationStatusValue    `json:"status"`
	Duration  time.Duration           `json:"duration"`
	Steps     map[string]*StepState   `json:"steps"`
	Artifacts map[string]string       `json:"artifacts,omitempty"`
	Summary   *domain.CleaningSummary `json:"summary,omitempty"`
	Error     string                  `json:"error,omitempty"`
}
