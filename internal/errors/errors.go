package apierrors

import "fmt"

// APIError is an error with an HTTP status and a stable code returned to clients.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func NewAPIError(code int, message string) *APIError {
	return &APIError{Code: code, Message: message}
}
