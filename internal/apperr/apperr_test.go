package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKind(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("wrapped: %w", ErrEmptyPath)
	status := fmt.Errorf("fetch: %w", &StatusError{URL: "a/b", Code: 503})

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "empty_path", err: ErrEmptyPath, want: "bad_request"},
		{name: "empty_path_wrapped", err: wrapped, want: "bad_request"},
		{name: "invalid_config", err: ErrInvalidConfig, want: "invalid_config"},
		{name: "unexpected_status", err: ErrUnexpectedStatus, want: "upstream_status"},
		{name: "status_error", err: status, want: "upstream_status"},
		{name: "deadline", err: context.DeadlineExceeded, want: "timeout"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "unknown", err: errors.New("unknown"), want: "internal"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Kind(tt.err); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "empty_path", err: ErrEmptyPath, want: http.StatusBadRequest},
		{name: "status_error", err: &StatusError{Code: 500}, want: http.StatusBadGateway},
		{name: "invalid_config", err: ErrInvalidConfig, want: http.StatusInternalServerError},
		{name: "deadline", err: context.DeadlineExceeded, want: http.StatusGatewayTimeout},
		{name: "canceled", err: context.Canceled, want: http.StatusRequestTimeout},
		{name: "unknown", err: errors.New("unknown"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := HTTPStatus(tt.err); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("call: %w", &StatusError{URL: "api/x", Code: 404})
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("expected errors.Is ErrUnexpectedStatus")
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != 404 {
		t.Fatalf("expected StatusError 404, got %+v", se)
	}
	if got := se.Error(); got != "api/x: unexpected status 404" {
		t.Fatalf("unexpected message %q", got)
	}
}
