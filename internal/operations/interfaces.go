package operations

import (
	"rosterkit/internal/infrastructure"
)

// WebSocketHub interface for sending WebSocket messages
type WebSocketHub interface {
	BroadcastUpdate(eventType, step, status string, metadata interface{})
}

// Options contains optional dependencies for steps
type Options struct {
	Broadcaster *StatusBroadcaster
	Metrics     *infrastructure.BusinessMetrics
}

// progress updates a step's in-memory state and pushes the update
// through the broadcaster when one is configured.
func progress(opts *Options, operationID string, step *StepState, pct int, message string) {
	step.UpdateProgress(float64(pct), message)

	if opts != nil && opts.Broadcaster != nil {
		opts.Broadcaster.UpdateStepProgress(operationID, step.ID, pct, message)
	}
}
