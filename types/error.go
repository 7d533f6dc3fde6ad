package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unified error code across the framework.
type ErrorCode string

// Execution error codes
const (
	ErrContractViolation ErrorCode = "CONTRACT_VIOLATION"
	ErrToolExecution     ErrorCode = "TOOL_EXECUTION_ERROR"
	ErrDuplicateToolID   ErrorCode = "DUPLICATE_TOOL_ID"
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrUnknown           ErrorCode = "UNKNOWN_ERROR"
	ErrMalformedContract ErrorCode = "MALFORMED_CONTRACT"
	ErrInvalidRoute      ErrorCode = "INVALID_ROUTE"
)

// Surface error codes
const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrInvalidConfig      ErrorCode = "INVALID_CONFIG"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrTimeout            ErrorCode = "TIMEOUT"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	ToolID     string    `json:"tool_id,omitempty"`
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

// ErrorCode lets Error satisfy the Coded interface.
func (e *Error) ErrorCode() ErrorCode {
	return e.Code
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

// WithToolID records the tool the error originated from.
func (e *Error) WithToolID(id string) *Error {
	e.ToolID = id
	return e
}

// Coded is implemented by errors that carry their own ErrorCode.
type Coded interface {
	error
	ErrorCode() ErrorCode
}

// GetErrorCode extracts the error code from an error chain.
// Errors without a code classify as ErrUnknown; nil yields "".
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var coded Coded
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return ErrUnknown
}

// IsErrorCode reports whether err classifies as code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// HTTPStatusFor maps an error code to its default HTTP status.
func HTTPStatusFor(code ErrorCode) int {
	switch code {
	case ErrInvalidRequest, ErrContractViolation, ErrMalformedContract:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrDuplicateToolID:
		return http.StatusConflict
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrTimeout:
		return http.StatusGatewayTimeout
	case ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
