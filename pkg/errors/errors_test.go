package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

func TestRateLimitError_CarriesRetryAfter(t *testing.T) {
	err := fmt.Errorf("send code: %w", NewRateLimitError(42*time.Second))

	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError in chain, got %v", err)
	}
	if rl.RetryAfter != 42*time.Second {
		t.Errorf("expected 42s, got %s", rl.RetryAfter)
	}
}

func TestMapper_MapErrorToHTTP(t *testing.T) {
	m := NewMapper(zerolog.Nop())

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, fasthttp.StatusOK},
		{"validation", NewValidationError("bad link"), fasthttp.StatusBadRequest},
		{"unauthorized", NewUnauthorizedError("bad code"), fasthttp.StatusUnauthorized},
		{"not found", fmt.Errorf("wrap: %w", NewNotFoundError("no chat")), fasthttp.StatusNotFound},
		{"expired", NewExpiredError("code expired"), fasthttp.StatusGone},
		{"rate limit", NewRateLimitError(time.Second), fasthttp.StatusTooManyRequests},
		{"unavailable", NewServiceUnavailableError("db down"), fasthttp.StatusServiceUnavailable},
		{"internal", NewInternalError("disk"), fasthttp.StatusInternalServerError},
		{"unknown", errors.New("boom"), fasthttp.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := m.MapErrorToHTTP(tt.err)
			if got != tt.want {
				t.Errorf("MapErrorToHTTP() = %d, want %d", got, tt.want)
			}
		})
	}
}
