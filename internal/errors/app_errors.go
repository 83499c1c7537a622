// Package errors carries the error vocabulary shared by the cleaning
// pipeline and its HTTP surface.
//
// Pipeline code wraps failures in *AppError so callers can branch on the
// failure class without matching message strings. The HTTP layer turns
// both AppError and the compact APIError envelope into RFC 7807 problem
// responses through ErrorHandler.
package errors

import "fmt"

// ErrorType classifies a pipeline failure.
type ErrorType string

// Failure classes produced by the pipeline. appErrorToProblem maps each
// class to an HTTP status when the error reaches a handler.
const (
	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeSchema     ErrorType = "SCHEMA"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeRender     ErrorType = "RENDER"
)

// AppError is a classified pipeline error. Context carries structured
// details (column names, file paths, row counts) that become problem
// extensions when the error reaches an HTTP handler.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error { return e.Cause }

// WithContext attaches one structured detail and returns the error so
// calls can chain.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsType reports whether err itself is an AppError of the given class.
// It does not unwrap: a STORAGE error wrapping a parse failure still
// reports as a storage failure.
func IsType(err error, errType ErrorType) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == errType
}

// NewAppError builds a classified error around an optional cause.
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewParsingError flags unreadable or malformed source data.
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewSchemaError flags a source file that lacks required roster columns.
func NewSchemaError(message string, columns []string) *AppError {
	err := NewAppError(ErrTypeSchema, message, nil)
	if len(columns) > 0 {
		err.WithContext("columns", columns)
	}
	return err
}

// NewStorageError flags a filesystem read or write failure.
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError flags input rejected before it reached the pipeline.
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError flags a missing resource by name.
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, resource+" not found", nil)
}

// NewRenderError flags a chart, dashboard or PDF rendering failure.
func NewRenderError(message string, cause error) *AppError {
	return NewAppError(ErrTypeRender, message, cause)
}
