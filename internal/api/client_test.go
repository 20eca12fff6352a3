package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dl-alexandre/gitdrive/internal/logging"
	"github.com/dl-alexandre/gitdrive/internal/types"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"google.golang.org/api/googleapi"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"429", &googleapi.Error{Code: 429}, true},
		{"503", &googleapi.Error{Code: 503}, true},
		{"404", &googleapi.Error{Code: 404}, false},
		{"403 rate limit", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}}, true},
		{"403 forbidden", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "insufficientFilePermissions"}}}, false},
		{"network timeout", timeoutError{}, true},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	base := 100 * time.Millisecond

	for attempt := 0; attempt < 4; attempt++ {
		expected := base << attempt
		got := calculateBackoff(base, attempt, errors.New("x"))
		low := expected - expected/4
		high := expected + expected/4
		if got < low || got > high {
			t.Errorf("attempt %d: delay %v outside [%v, %v]", attempt, got, low, high)
		}
	}

	capped := calculateBackoff(base, 20, errors.New("x"))
	maxDelay := time.Duration(utils.MaxRetryDelayMs) * time.Millisecond
	if capped > maxDelay+maxDelay/4 {
		t.Errorf("delay %v exceeds cap", capped)
	}

	header := http.Header{}
	header.Set("Retry-After", "2")
	if got := calculateBackoff(base, 0, &googleapi.Error{Code: 429, Header: header}); got != 2*time.Second {
		t.Errorf("Retry-After delay = %v, want 2s", got)
	}
}

func TestExecuteWithRetry(t *testing.T) {
	client := NewClient(nil, 3, 1, logging.NewNoOpLogger())
	reqCtx := NewRequestContext("run-1", types.RequestTypeMutation)

	t.Run("retries transient errors", func(t *testing.T) {
		calls := 0
		got, err := ExecuteWithRetry(context.Background(), client, reqCtx, func() (string, error) {
			calls++
			if calls < 3 {
				return "", &googleapi.Error{Code: 503}
			}
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("ExecuteWithRetry() error = %v", err)
		}
		if got != "ok" || calls != 3 {
			t.Errorf("got %q after %d calls", got, calls)
		}
	})

	t.Run("stops on permanent errors", func(t *testing.T) {
		calls := 0
		_, err := ExecuteWithRetry(context.Background(), client, reqCtx, func() (string, error) {
			calls++
			return "", &googleapi.Error{Code: 404, Message: "File not found"}
		})
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
		if !utils.HasCode(err, utils.ErrCodeFileNotFound) {
			t.Errorf("error = %v, want FILE_NOT_FOUND", err)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		_, err := ExecuteWithRetry(context.Background(), client, reqCtx, func() (int, error) {
			calls++
			return 0, &googleapi.Error{Code: 500}
		})
		if calls != 4 {
			t.Errorf("calls = %d, want 4", calls)
		}
		if !utils.HasCode(err, utils.ErrCodeNetworkError) {
			t.Errorf("error = %v, want NETWORK_ERROR", err)
		}
	})

	t.Run("honors cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := ExecuteWithRetry(ctx, client, reqCtx, func() (int, error) {
			t.Fatal("fn should not run after cancellation")
			return 0, nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}
