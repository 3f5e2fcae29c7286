// Package apperr defines the error taxonomy shared by services and handlers.
// Every Error carries the HTTP status it should be reported with.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on kind: any two Errors with the same status are equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Status == e.Status
}

// Sentinels for errors.Is checks.
var (
	ErrBadRequest   = &Error{Status: http.StatusBadRequest, Message: "Bad Request"}
	ErrUnauthorized = &Error{Status: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrNotFound     = &Error{Status: http.StatusNotFound, Message: "Not Found"}
	ErrConflict     = &Error{Status: http.StatusConflict, Message: "Conflict"}
	ErrTooMany      = &Error{Status: http.StatusTooManyRequests, Message: "Too Many Requests"}
	ErrInternal     = &Error{Status: http.StatusInternalServerError, Message: "Internal Server Error"}
	ErrTimeout      = &Error{Status: http.StatusGatewayTimeout, Message: "request timed out"}
)

func BadRequest(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(err error, format string, args ...any) *Error {
	return &Error{Status: http.StatusConflict, Message: fmt.Sprintf(format, args...), Err: err}
}

func TooManyRequests(format string, args ...any) *Error {
	return &Error{Status: http.StatusTooManyRequests, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected store or runtime failure.
func Internal(err error, format string, args ...any) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...), Err: err}
}

// StatusOf maps any error to the status code the API reports for it.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the client facing message. Internal failures are masked
// unless verbose is set (development mode).
func MessageOf(err error, verbose bool) string {
	status := StatusOf(err)
	if status == http.StatusGatewayTimeout {
		return ErrTimeout.Message
	}
	if status >= http.StatusInternalServerError && !verbose {
		return ErrInternal.Message
	}
	var e *Error
	if errors.As(err, &e) && !verbose {
		return e.Message
	}
	return err.Error()
}
