package config

import "time"

// Application constants - all hardcoded values for the RosterKit system
const (
	// Application Info
	AppName    = "RosterKit"
	AppVersion = "0.1.0"

	// Roster Source Constraints
	MaxSourceFileSize = 50 * 1024 * 1024 // 50MB
	SourceExtCSV      = ".csv"
	SourceExtExcel    = ".xlsx"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per minute
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// File Paths (relative to executable)
	DefaultDataDir   = "data"
	DefaultLogsDir   = "logs"
	DefaultWebDir    = "web"
	DefaultInputDir  = "data/input"
	DefaultOutputDir = "data/output"

	// Operation Timeouts
	DefaultOperationTimeout = 2 * time.Hour
	CleaningTimeout         = 30 * time.Minute
	ReportGenerationTimeout = 15 * time.Minute

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
	MaxLogFileSize    = 100 * 1024 * 1024 // 100MB
	MaxLogFileAge     = 30                // days
	MaxLogFileBackups = 10

	// Output Artifact Names
	CleanedCSVName    = "cleaned_data.csv"
	SummaryJSONName   = "cleaning_summary.json"
	DashboardHTMLName = "interactive_dashboard.html"
	ReportPDFName     = "summary_report.pdf"
	AuditDBName       = "audit.db"

	// Chart File Names
	AgeDistributionPNGName    = "age_distribution.png"
	SalaryDistributionPNGName = "salary_distribution.png"
	CountryBreakdownPNGName   = "country_breakdown.png"
	CorrelationHeatmapPNGName = "correlation_heatmap.png"

	// Error Messages
	ErrSourceNotFoundMsg = "Source roster not found. Drop a CSV or XLSX file into data/input and retry."
	ErrSchemaMismatchMsg = "Source roster is missing required columns."
	ErrNoCleanedDataMsg  = "No cleaned roster available. Run the cleaning operation first."

	// Success Messages
	MsgCleaningComplete = "Roster cleaned successfully."
	MsgReportComplete   = "Report generation completed successfully."
	MsgOperationSuccess = "Operation completed successfully."
)

// Feature Flags - compile-time configuration
const (
	// Core Features
	FeatureWebSocketEnabled   = true
	FeatureMetricsEnabled     = true
	FeatureHealthCheckEnabled = true
	FeatureAuditEnabled       = true
	FeatureDashboardEnabled   = true
	FeaturePDFEnabled         = true

	// Security Features
	FeatureRateLimitingEnabled = true

	// Development Features
	FeatureDebugLoggingEnabled = false
	FeatureMockDataEnabled     = false
)

// URLs and Endpoints
const (
	// API Endpoints (internal)
	APIBasePath        = "/api/v1"
	RostersEndpoint    = "/api/v1/rosters"
	OperationsEndpoint = "/api/v1/operations"
	ReportsEndpoint    = "/api/v1/reports"
	StatsEndpoint      = "/api/v1/stats"
	HealthEndpoint     = "/health"
	MetricsEndpoint    = "/metrics"

	// WebSocket Endpoints
	WebSocketEndpoint = "/ws"
)

// GetFeatureFlag returns the value of a feature flag
func GetFeatureFlag(flag string) bool {
	switch flag {
	case "websocket":
		return FeatureWebSocketEnabled
	case "metrics":
		return FeatureMetricsEnabled
	case "health_check":
		return FeatureHealthCheckEnabled
	case "audit":
		return FeatureAuditEnabled
	case "dashboard":
		return FeatureDashboardEnabled
	case "pdf":
		return FeaturePDFEnabled
	case "rate_limiting":
		return FeatureRateLimitingEnabled
	case "debug_logging":
		return FeatureDebugLoggingEnabled
	case "mock_data":
		return FeatureMockDataEnabled
	default:
		return false
	}
}
