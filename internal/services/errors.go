package services

import "errors"

// Service-level sentinel errors. Handlers map these onto HTTP statuses.
var (
	// Artifact errors
	ErrNoArtifactsFound = errors.New("no artifacts found")
	ErrFileNotFound     = errors.New("file not found")
	ErrInvalidFileType  = errors.New("invalid file type")

	// Roster errors
	ErrRosterNotCleaned = errors.New("no cleaned roster available")
	ErrSummaryNotFound  = errors.New("cleaning summary not found")

	// Operation errors
	ErrOperationNotFound   = errors.New("operation not found")
	ErrOperationRunning    = errors.New("operation already running")
	ErrOperationNotRunning = errors.New("operation not running")

	// WebSocket errors
	ErrWebSocketUpgrade = errors.New("websocket upgrade failed")
	ErrWebSocketClosed  = errors.New("websocket connection closed")

	// General errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrOperationTimeout   = errors.New("operation timed out")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
