package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes for failures that never reached the remote service, plus the
// code carried by a failed token renewal.
const (
	CodeNetworkError = "NETWORK_ERROR"
	CodeRequestError = "REQUEST_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
)

const defaultServerMessage = "An error occurred"

// Error is the uniform shape of every failure returned by Client.
//
//   - server error: StatusCode is the HTTP status, Message/Code/Details come from the body
//   - connectivity error: StatusCode 0, Code NETWORK_ERROR
//   - request construction error: StatusCode 0, Code REQUEST_ERROR
type Error struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code,omitempty"`
	Details    any    `json:"details,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (status %d, code %s)", e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// serverBody is the error body the remote service returns.
type serverBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details"`
}

func serverError(status int, body []byte) *Error {
	var sb serverBody
	_ = json.Unmarshal(body, &sb) // non-JSON bodies keep the defaults
	if sb.Message == "" {
		sb.Message = defaultServerMessage
	}
	return &Error{
		Message:    sb.Message,
		StatusCode: status,
		Code:       sb.Code,
		Details:    sb.Details,
	}
}

func networkError(cause error) *Error {
	return &Error{
		Message:    "Network error occurred",
		StatusCode: 0,
		Code:       CodeNetworkError,
		cause:      cause,
	}
}

func requestError(cause error) *Error {
	return &Error{
		Message:    "Request configuration error",
		StatusCode: 0,
		Code:       CodeRequestError,
		cause:      cause,
	}
}

func unauthorizedError(message string, cause error) *Error {
	return &Error{
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Code:       CodeUnauthorized,
		cause:      cause,
	}
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusCode returns the HTTP status carried by err, 0 when there is none.
func StatusCode(err error) int {
	if apiErr, ok := AsError(err); ok {
		return apiErr.StatusCode
	}
	return 0
}

func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func IsNetworkError(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Code == CodeNetworkError
}
