package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"log/slog"
	"os"

	apierrors "rosterkit/internal/errors"
	"rosterkit/internal/operations"
	"rosterkit/internal/services"
)

// MockOperationService is a mock implementation of OperationServiceInterface
type MockOperationService struct {
	mock.Mock
}

func (m *MockOperationService) Trigger(ctx context.Context, req services.TriggerRequest) (string, error) {
	args := m.Called(req)
	return args.String(0), args.Error(1)
}

func (m *MockOperationService) Cancel(ctx context.Context, operationID string) error {
	args := m.Called(operationID)
	return args.Error(0)
}

func (m *MockOperationService) CancelAll(ctx context.Context) int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockOperationService) Status(ctx context.Context, operationID string) (*operations.OperationSnapshot, error) {
	args := m.Called(operationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operations.OperationSnapshot), args.Error(1)
}

func (m *MockOperationService) List(ctx context.Context) []*operations.OperationSnapshot {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*operations.OperationSnapshot)
}

func (m *MockOperationService) ListByStatus(ctx context.Context, status string) []*operations.OperationSnapshot {
	args := m.Called(status)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*operations.OperationSnapshot)
}

func (m *MockOperationService) StepIDs() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockOperationService) Metrics(ctx context.Context) services.OperationMetrics {
	args := m.Called()
	return args.Get(0).(services.OperationMetrics)
}

func (m *MockOperationService) Cleanup(ctx context.Context, maxAge time.Duration) {
	m.Called(maxAge)
}

// MockHub is a mock WebSocket hub recording broadcasts
type MockHub struct {
	mock.Mock
}

func (m *MockHub) BroadcastUpdate(updateType, subtype, action string, data interface{}) {
	m.Called(updateType, subtype, action, data)
}

func newTestOperationsHandler(service OperationServiceInterface, hub Hub) *OperationsHandler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewOperationsHandler(service, hub, logger)
}

func TestOperationsHandler_StartOperation(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockOperationService, *MockHub)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "accepts a run",
			body: `{"id":"op-1","source":"employee_data.csv"}`,
			setupMock: func(m *MockOperationService, h *MockHub) {
				m.On("Trigger", services.TriggerRequest{ID: "op-1", Source: "employee_data.csv"}).
					Return("op-1", nil)
				h.On("BroadcastUpdate", "operation_update", "queued", "pending", mock.Anything).Return()
			},
			expectedStatus: http.StatusAccepted,
			expectedBody:   `"poll_url":"/api/operations/op-1/status"`,
		},
		{
			name:           "rejects missing source",
			body:           `{"id":"op-2"}`,
			setupMock:      func(m *MockOperationService, h *MockHub) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "source is required",
		},
		{
			name:           "rejects path traversal in source",
			body:           `{"source":"../../etc/passwd"}`,
			setupMock:      func(m *MockOperationService, h *MockHub) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid source path",
		},
		{
			name: "maps validation failure from service",
			body: `{"id":"op-3","source":"missing.csv"}`,
			setupMock: func(m *MockOperationService, h *MockHub) {
				m.On("Trigger", services.TriggerRequest{ID: "op-3", Source: "missing.csv"}).
					Return("", apierrors.NewAppValidationError("source file does not exist"))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "source file does not exist",
		},
		{
			name: "maps conflict on duplicate id",
			body: `{"id":"op-4","source":"employee_data.csv"}`,
			setupMock: func(m *MockOperationService, h *MockHub) {
				m.On("Trigger", services.TriggerRequest{ID: "op-4", Source: "employee_data.csv"}).
					Return("", apierrors.NewAppError(apierrors.ErrTypeConfig, "operation already running", nil))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "unexpected error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOperationService)
			mockHub := new(MockHub)
			tt.setupMock(mockService, mockHub)

			handler := newTestOperationsHandler(mockService, mockHub)

			req := httptest.NewRequest("POST", "/api/operations/start", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			handler.StartOperation(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
			mockHub.AssertExpectations(t)
		})
	}
}

func TestOperationsHandler_StartOperationBroadcasts(t *testing.T) {
	mockService := new(MockOperationService)
	mockHub := new(MockHub)

	mockService.On("Trigger", mock.Anything).Return("op-9", nil)
	mockHub.On("BroadcastUpdate", "operation_update", "queued", "pending", mock.MatchedBy(func(data interface{}) bool {
		payload, ok := data.(map[string]interface{})
		return ok && payload["operation_id"] == "op-9"
	})).Return()

	handler := newTestOperationsHandler(mockService, mockHub)

	req := httptest.NewRequest("POST", "/api/operations/start",
		bytes.NewBufferString(`{"id":"op-9","source":"employee_data.csv"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.StartOperation(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "op-9", response["operation_id"])
	assert.Equal(t, "pending", response["status"])
	mockHub.AssertExpectations(t)
}

func TestOperationsHandler_StopOperation(t *testing.T) {
	tests := []struct {
		name           string
		operationID    string
		setupMock      func(*MockOperationService, *MockHub)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "cancels a running operation",
			operationID: "op-1",
			setupMock: func(m *MockOperationService, h *MockHub) {
				m.On("Cancel", "op-1").Return(nil)
				h.On("BroadcastUpdate", "operation_update", "cancelled", "cancelled", mock.Anything).Return()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "cancelled successfully",
		},
		{
			name:        "unknown operation",
			operationID: "nope",
			setupMock: func(m *MockOperationService, h *MockHub) {
				m.On("Cancel", "nope").Return(apierrors.NewNotFoundError("operation nope"))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   "not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOperationService)
			mockHub := new(MockHub)
			tt.setupMock(mockService, mockHub)

			handler := newTestOperationsHandler(mockService, mockHub)

			req := httptest.NewRequest("POST", "/api/operations/"+tt.operationID+"/stop", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.operationID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			rec := httptest.NewRecorder()

			handler.StopOperation(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
			mockHub.AssertExpectations(t)
		})
	}
}

func TestOperationsHandler_GetOperationStatus(t *testing.T) {
	completed := time.Date(2025, 6, 1, 10, 0, 5, 0, time.UTC)

	tests := []struct {
		name           string
		operationID    string
		setupMock      func(*MockOperationService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "returns snapshot",
			operationID: "op-1",
			setupMock: func(m *MockOperationService) {
				snapshot := &operations.OperationSnapshot{
					OperationID: "op-1",
					Status:      "completed",
					Progress:    100,
					StartedAt:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
					CompletedAt: &completed,
				}
				m.On("Status", "op-1").Return(snapshot, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"progress":100`,
		},
		{
			name:        "unknown operation",
			operationID: "nope",
			setupMock: func(m *MockOperationService) {
				m.On("Status", "nope").Return(nil, apierrors.NewNotFoundError("operation nope"))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   "operation nope not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOperationService)
			tt.setupMock(mockService)

			handler := newTestOperationsHandler(mockService, new(MockHub))

			req := httptest.NewRequest("GET", "/api/operations/"+tt.operationID+"/status", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.operationID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			rec := httptest.NewRecorder()

			handler.GetOperationStatus(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestOperationsHandler_ListOperations(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockOperationService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "lists all operations",
			query: "",
			setupMock: func(m *MockOperationService) {
				snapshots := []*operations.OperationSnapshot{
					{OperationID: "op-1", Status: "completed"},
					{OperationID: "op-2", Status: "running"},
				}
				m.On("List").Return(snapshots)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"count":2`,
		},
		{
			name:  "filters by status",
			query: "?status=running",
			setupMock: func(m *MockOperationService) {
				snapshots := []*operations.OperationSnapshot{
					{OperationID: "op-2", Status: "running"},
				}
				m.On("ListByStatus", "running").Return(snapshots)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"count":1`,
		},
		{
			name:           "rejects unknown status",
			query:          "?status=sleeping",
			setupMock:      func(m *MockOperationService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "valid_statuses",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOperationService)
			tt.setupMock(mockService)

			handler := newTestOperationsHandler(mockService, new(MockHub))

			req := httptest.NewRequest("GET", "/api/operations"+tt.query, nil)
			rec := httptest.NewRecorder()

			handler.ListOperations(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestOperationsHandler_GetSteps(t *testing.T) {
	mockService := new(MockOperationService)
	mockService.On("StepIDs").Return([]string{"ingest", "clean", "export", "charts", "dashboard", "pdf"})

	handler := newTestOperationsHandler(mockService, new(MockHub))

	req := httptest.NewRequest("GET", "/api/operations/steps", nil)
	rec := httptest.NewRecorder()

	handler.GetSteps(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, float64(6), response["count"])
	assert.Contains(t, rec.Body.String(), "dashboard")
	mockService.AssertExpectations(t)
}

func TestOperationsHandler_PurgeOperations(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockOperationService)
		expectedStatus int
	}{
		{
			name:  "default max age",
			query: "",
			setupMock: func(m *MockOperationService) {
				m.On("Cleanup", 24*time.Hour).Return()
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:  "explicit max age",
			query: "?max_age=1h",
			setupMock: func(m *MockOperationService) {
				m.On("Cleanup", time.Hour).Return()
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "invalid max age",
			query:          "?max_age=soon",
			setupMock:      func(m *MockOperationService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOperationService)
			tt.setupMock(mockService)

			handler := newTestOperationsHandler(mockService, new(MockHub))

			req := httptest.NewRequest("DELETE", "/api/operations"+tt.query, nil)
			rec := httptest.NewRecorder()

			handler.PurgeOperations(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestOperationsHandler_RoutesWiring(t *testing.T) {
	mockService := new(MockOperationService)
	mockService.On("StepIDs").Return([]string{"ingest", "clean"})

	handler := newTestOperationsHandler(mockService, new(MockHub))

	router := chi.NewRouter()
	router.Mount("/api/operations", handler.Routes())

	req := httptest.NewRequest("GET", "/api/operations/steps", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ingest")
	mockService.AssertExpectations(t)
}
