package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"rosterkit/internal/errors"
)

// clientLogLevels maps the levels the dashboard sends to slog levels.
// Unknown levels fall back to info rather than rejecting the entry.
var clientLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// ClientLogHandler ingests log entries posted by the browser dashboard so
// client-side failures show up in the server log next to pipeline events.
type ClientLogHandler struct {
	logger *slog.Logger
}

// NewClientLogHandler creates a new client log handler
func NewClientLogHandler(logger *slog.Logger) *ClientLogHandler {
	return &ClientLogHandler{
		logger: logger.With(slog.String("handler", "client_log")),
	}
}

// ClientLogEntry is a single log line posted by the dashboard.
type ClientLogEntry struct {
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Source  string                 `json:"source,omitempty"`
}

// Handle decodes one entry and relays it to the server log.
func (h *ClientLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var entry ClientLogEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		errors.WriteError(w, errors.NewValidationError("Invalid request format"))
		return
	}

	level, ok := clientLogLevels[entry.Level]
	if !ok {
		level = slog.LevelInfo
	}

	attrs := []slog.Attr{slog.String("client_source", entry.Source)}
	if entry.Data != nil {
		attrs = append(attrs, slog.Any("data", entry.Data))
	}

	h.logger.LogAttrs(r.Context(), level, entry.Message, attrs...)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
	})
}
