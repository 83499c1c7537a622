package services

import (
	"github.com/stretchr/testify/mock"
)

// MockOperationHub is a mock for the OperationHub interface.
type MockOperationHub struct {
	mock.Mock
}

func (m *MockOperationHub) BroadcastUpdate(eventType, subtype, action string, data interface{}) {
	m.Called(eventType, subtype, action, data)
}

func (m *MockOperationHub) BroadcastRefresh(source string, components []string) {
	m.Called(source, components)
}

func (m *MockOperationHub) BroadcastError(code, message, details, step string, recoverable bool) {
	m.Called(code, message, details, step, recoverable)
}
