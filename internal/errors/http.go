package errors

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the compact JSON error envelope used by request validation
// and by endpoints that respond before the problem handler is involved.
// ErrorHandler upgrades it to a ProblemDetails response when it flows
// through HandleError.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

// Render sets the response status for chi's render package.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New builds an APIError from its parts.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails builds an APIError carrying a structured details payload.
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	err := New(statusCode, errorCode, message)
	err.Details = details
	return err
}

// NewValidationError reports a bad request with a bare message.
func NewValidationError(message string) *APIError {
	return New(http.StatusBadRequest, "VALIDATION_FAILED", message)
}

// InvalidRequestWithError reports an unreadable request body.
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// ValidationError names one field that failed validation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrValidation reports a single-field validation failure.
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed",
		ValidationError{Field: field, Message: message})
}

// ValidationErrors wraps the full set of field failures for one request.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// NewValidationErrors reports every field that failed validation.
func NewValidationErrors(errs []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed",
		ValidationErrors{Errors: errs})
}

// ErrorResponse is the top-level JSON body written by WriteError.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// Render implements render.Renderer.
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return e.Error.Render(w, r)
}

// NewErrorResponse wraps err in the standard envelope.
func NewErrorResponse(err *APIError) *ErrorResponse {
	return &ErrorResponse{Success: false, Error: err}
}

// WriteError responds with err as JSON, bypassing the render pipeline.
func WriteError(w http.ResponseWriter, err *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	json.NewEncoder(w).Encode(NewErrorResponse(err))
}
