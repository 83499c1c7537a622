package operations

import (
	"context"
	"fmt"
	"time"

	"rosterkit/internal/infrastructure"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "rosterkit.operations"
)

// Tracer provides OpenTelemetry instrumentation for pipeline runs. A nil
// metrics pointer disables metric recording; spans still work against
// whatever tracer provider is installed.
type Tracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewTracer creates a pipeline tracer backed by the given business metrics
func NewTracer(metrics *infrastructure.BusinessMetrics) *Tracer {
	return &Tracer{
		tracer:  otel.Tracer(TracerName),
		metrics: metrics,
	}
}

// Metrics returns the business metrics handle shared with the steps
func (t *Tracer) Metrics() *infrastructure.BusinessMetrics {
	return t.metrics
}

// StartOperation creates a span for the entire pipeline run
func (t *Tracer) StartOperation(ctx context.Context, operationID, source string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "operation.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("operation.source", source),
		),
	)

	infrastructure.RecordActiveOperationChange(ctx, t.metrics, 1, "pipeline")

	return ctx, span
}

// EndOperation records the outcome of a pipeline run on its span and metrics
func (t *Tracer) EndOperation(ctx context.Context, span trace.Span, operationID string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	span.SetAttributes(
		attribute.String("operation.status", status),
		attribute.Float64("operation.duration_seconds", duration.Seconds()),
	)

	infrastructure.RecordOperationMetrics(ctx, t.metrics, operationID, "pipeline", duration, err == nil, err)
	infrastructure.RecordActiveOperationChange(ctx, t.metrics, -1, "pipeline")

	infrastructure.AddSpanEvent(ctx, "operation.completed", map[string]interface{}{
		"operation_id": operationID,
		"status":       status,
		"duration":     duration.Seconds(),
	})

	if err == nil {
		span.SetStatus(codes.Ok, "operation completed successfully")
	} else {
		infrastructure.RecordError(ctx, err,
			trace.WithAttributes(attribute.String("operation_id", operationID)))
		span.SetStatus(codes.Error, fmt.Sprintf("operation failed: %s", err))
	}
}

// StartStep creates a span for an individual step execution
func (t *Tracer) StartStep(ctx context.Context, operationID, stepID string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("operation.step.%s", stepID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", stepID),
		),
	)

	return ctx, span
}

// EndStep records the outcome of a step execution on its span and metrics
func (t *Tracer) EndStep(ctx context.Context, span trace.Span, operationID, stepID string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	span.SetAttributes(
		attribute.String("step.status", status),
		attribute.Float64("step.duration_seconds", duration.Seconds()),
	)

	infrastructure.RecordOperationStepMetrics(ctx, t.metrics, operationID, stepID, stepID, duration, err == nil)

	infrastructure.AddSpanEvent(ctx, "step.completed", map[string]interface{}{
		"step_id":  stepID,
		"status":   status,
		"duration": duration.Seconds(),
	})

	if err == nil {
		span.SetStatus(codes.Ok, "step completed successfully")
	} else {
		infrastructure.RecordError(ctx, err,
			trace.WithAttributes(
				attribute.String("step_id", stepID),
				attribute.String("error.type", "step_execution_error"),
			),
		)
		span.SetStatus(codes.Error, "step execution failed")
	}
}
