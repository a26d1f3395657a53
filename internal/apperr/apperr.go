// Package apperr defines the error values shared across packages and maps
// them to classification kinds and HTTP status codes.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrEmptyPath        = errors.New("path is required")
	ErrInvalidConfig    = errors.New("invalid config")
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// kinder is satisfied by errors that carry their own classification kind.
type kinder interface {
	Kind() string
}

// StatusError reports a non-success HTTP status from an upstream call.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s %d", e.URL, ErrUnexpectedStatus, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

func (e *StatusError) Kind() string { return "upstream_status" }

func Kind(err error) string {
	var k kinder
	switch {
	case err == nil:
		return ""

	case errors.As(err, &k):
		return k.Kind()

	case errors.Is(err, ErrEmptyPath):
		return "bad_request"

	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"

	case errors.Is(err, ErrUnexpectedStatus):
		return "upstream_status"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	switch Kind(err) {
	case "":
		return http.StatusOK

	case "bad_request":
		return http.StatusBadRequest

	case "upstream_status":
		return http.StatusBadGateway

	case "timeout":
		return http.StatusGatewayTimeout

	case "canceled":
		return http.StatusRequestTimeout

	default:
		return http.StatusInternalServerError
	}
}
