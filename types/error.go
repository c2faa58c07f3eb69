package types

import "fmt"

// ErrorCode represents a unified error code across the framework.
type ErrorCode string

// Generation and orchestration error codes
const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrGenerationFailed   ErrorCode = "GENERATION_FAILED"
	ErrGenerationEmpty    ErrorCode = "GENERATION_EMPTY"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrUpstreamTimeout    ErrorCode = "UPSTREAM_TIMEOUT"
	ErrUpstreamError      ErrorCode = "UPSTREAM_ERROR"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Schema and graph error codes
const (
	ErrSchemaLoad       ErrorCode = "SCHEMA_LOAD"
	ErrSchemaMalformed  ErrorCode = "SCHEMA_MALFORMED"
	ErrGraphAPIFailed   ErrorCode = "GRAPH_API_FAILED"
	ErrGraphEmptyResult ErrorCode = "GRAPH_EMPTY_RESULT"
)

// Agent error codes
const (
	ErrAgentNotFound    ErrorCode = "AGENT_NOT_FOUND"
	ErrAgentBusy        ErrorCode = "AGENT_BUSY"
	ErrBudgetExhausted  ErrorCode = "BUDGET_EXHAUSTED"
	ErrDispatchCanceled ErrorCode = "DISPATCH_CANCELED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Agent      string    `json:"agent,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithAgent sets the originating agent name.
func (e *Error) WithAgent(agent string) *Error {
	e.Agent = agent
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
