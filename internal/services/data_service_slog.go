package services

import (
	"context"
	"log/slog"

	"rosterkit/internal/infrastructure"
)

// logDataError logs an error in data service operations with the shared
// component attributes, pulling trace context from ctx.
func logDataError(ctx context.Context, action, message string, attrs ...slog.Attr) {
	logger := infrastructure.LoggerWithContext(ctx)

	allAttrs := []slog.Attr{
		slog.String("component", "data_service"),
		slog.String("action", action),
	}
	allAttrs = append(allAttrs, attrs...)

	logger.LogAttrs(ctx, slog.LevelError, message, allAttrs...)
}
