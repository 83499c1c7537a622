package http

import (
	"context"
	"time"

	"rosterkit/internal/operations"
	"rosterkit/internal/services"
)

// OperationServiceInterface defines the surface the operations handler
// needs from the service layer.
type OperationServiceInterface interface {
	Trigger(ctx context.Context, req services.TriggerRequest) (string, error)
	Cancel(ctx context.Context, operationID string) error
	CancelAll(ctx context.Context) int
	Status(ctx context.Context, operationID string) (*operations.OperationSnapshot, error)
	List(ctx context.Context) []*operations.OperationSnapshot
	ListByStatus(ctx context.Context, status string) []*operations.OperationSnapshot
	StepIDs() []string
	Metrics(ctx context.Context) services.OperationMetrics
	Cleanup(ctx context.Context, maxAge time.Duration)
}
