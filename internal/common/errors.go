package common

import (
	"errors"
	"net/http"
)

// APIError is a failure that knows which HTTP status it should be reported with.
type APIError struct {
	Message string
	Code    int
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, code int) *APIError {
	if message == "" {
		message = "Server Error"
	}
	if code == 0 {
		code = http.StatusInternalServerError
	}
	return &APIError{Message: message, Code: code}
}

// Validation reports malformed or missing input.
func Validation(message string) *APIError {
	return NewAPIError(message, http.StatusBadRequest)
}

// NotFound reports a missing user or message.
func NotFound(message string) *APIError {
	return NewAPIError(message, http.StatusNotFound)
}

// StatusCode returns the code carried by an APIError anywhere in err's chain,
// or 500 for anything unclassified.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return http.StatusInternalServerError
}

// Message returns the text that should be shown to the client for err.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
