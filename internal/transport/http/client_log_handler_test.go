package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postClientLog(t *testing.T, handler *ClientLogHandler, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/logs", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)
	return rec
}

func TestClientLogHandler(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantStatus int
		wantLevel  string
	}{
		{
			name:       "error entry keeps its level",
			payload:    `{"level":"error","message":"chart failed to render","source":"charts.js"}`,
			wantStatus: http.StatusOK,
			wantLevel:  "ERROR",
		},
		{
			name:       "warn entry",
			payload:    `{"level":"warn","message":"websocket reconnecting"}`,
			wantStatus: http.StatusOK,
			wantLevel:  "WARN",
		},
		{
			name:       "debug entry",
			payload:    `{"level":"debug","message":"poll tick"}`,
			wantStatus: http.StatusOK,
			wantLevel:  "DEBUG",
		},
		{
			name:       "unknown level falls back to info",
			payload:    `{"level":"fatal","message":"nonstandard level"}`,
			wantStatus: http.StatusOK,
			wantLevel:  "INFO",
		},
		{
			name:       "missing level falls back to info",
			payload:    `{"message":"no level given"}`,
			wantStatus: http.StatusOK,
			wantLevel:  "INFO",
		},
		{
			name:       "malformed JSON is rejected",
			payload:    `{not json`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty body is rejected",
			payload:    "",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			handler := NewClientLogHandler(logger)

			rec := postClientLog(t, handler, tt.payload)
			require.Equal(t, tt.wantStatus, rec.Code)

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, false, response["success"])
				assert.Zero(t, logBuf.Len(), "rejected entries must not reach the log")
				return
			}

			assert.Equal(t, true, response["success"])

			var logged map[string]interface{}
			require.NoError(t, json.Unmarshal(logBuf.Bytes(), &logged))
			assert.Equal(t, tt.wantLevel, logged["level"])
		})
	}
}

func TestClientLogHandlerForwardsData(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))
	handler := NewClientLogHandler(logger)

	rec := postClientLog(t, handler,
		`{"level":"info","message":"run started","source":"operations.js","data":{"operation_id":"op-7"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var logged map[string]interface{}
	require.NoError(t, json.Unmarshal(logBuf.Bytes(), &logged))
	assert.Equal(t, "run started", logged["msg"])
	assert.Equal(t, "operations.js", logged["client_source"])

	data, ok := logged["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "op-7", data["operation_id"])
}
