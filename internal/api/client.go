// Package api wraps the Drive service with retries and error classification.
package api

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/dl-alexandre/gitdrive/internal/errors"
	"github.com/dl-alexandre/gitdrive/internal/logging"
	"github.com/dl-alexandre/gitdrive/internal/types"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"github.com/google/uuid"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// Client is the Drive service plus the retry policy every store call uses
type Client struct {
	service    *drive.Service
	maxRetries int
	retryDelay time.Duration
	logger     logging.Logger
}

// NewClient creates a Drive API client. retryDelayMs is the base of the
// exponential backoff.
func NewClient(service *drive.Service, maxRetries int, retryDelayMs int, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Client{
		service:    service,
		maxRetries: maxRetries,
		retryDelay: time.Duration(retryDelayMs) * time.Millisecond,
		logger:     logger,
	}
}

// NewRequestContext starts the context of one store call; each call gets
// its own trace id under the run id
func NewRequestContext(runID string, requestType types.RequestType) *types.RequestContext {
	return &types.RequestContext{
		RunID:       runID,
		RequestType: requestType,
		TraceID:     uuid.New().String(),
	}
}

// Service returns the underlying Drive service
func (c *Client) Service() *drive.Service {
	return c.service
}

// ExecuteWithRetry runs fn until it succeeds, fails permanently or runs out
// of retries. Failures come back classified as *utils.AppError.
func ExecuteWithRetry[T any](ctx context.Context, client *Client, reqCtx *types.RequestContext, fn func() (T, error)) (T, error) {
	logger := client.logger.WithTraceID(reqCtx.TraceID)
	fields := []logging.Field{
		logging.F("requestType", reqCtx.RequestType),
		logging.F("runId", reqCtx.RunID),
	}
	if len(reqCtx.InvolvedFileIDs) > 0 {
		fields = append(fields, logging.F("fileIds", reqCtx.InvolvedFileIDs))
	}
	if len(reqCtx.InvolvedParentIDs) > 0 {
		fields = append(fields, logging.F("parentIds", reqCtx.InvolvedParentIDs))
	}
	logger.Debug("Drive call", fields...)

	start := time.Now()
	var zero T
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		elapsed := logging.F("duration_ms", time.Since(start).Milliseconds())
		switch {
		case err == nil:
			logger.Debug("Drive call done", elapsed, logging.F("attempts", attempt+1))
			return result, nil
		case !isRetryable(err):
			logger.Error("Drive call failed", elapsed, logging.F("error", err.Error()))
			return zero, apierrors.ClassifyGoogleAPIError("drive", err, reqCtx, client.logger)
		case attempt >= client.maxRetries:
			logger.Error("Drive call failed, retries exhausted", elapsed,
				logging.F("attempts", attempt+1), logging.F("error", err.Error()))
			return zero, apierrors.ClassifyGoogleAPIError("drive", err, reqCtx, client.logger)
		}

		delay := calculateBackoff(client.retryDelay, attempt, err)
		logger.Warn("Drive call will be retried",
			logging.F("attempt", attempt+1),
			logging.F("delay_ms", delay.Milliseconds()),
			logging.F("error", err.Error()),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// isRetryable reports rate limits, 5xx responses and network timeouts
func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		case http.StatusForbidden:
			for _, item := range apiErr.Errors {
				if item.Reason == "userRateLimitExceeded" || item.Reason == "rateLimitExceeded" {
					return true
				}
			}
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// calculateBackoff doubles baseDelay per attempt with ±25% jitter, capped at
// MaxRetryDelayMs. A Retry-After header wins over the computed delay.
func calculateBackoff(baseDelay time.Duration, attempt int, err error) time.Duration {
	maxDelay := time.Duration(utils.MaxRetryDelayMs) * time.Millisecond

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Header != nil {
		if seconds, convErr := strconv.Atoi(apiErr.Header.Get("Retry-After")); convErr == nil {
			return min(time.Duration(seconds)*time.Second, maxDelay)
		}
	}

	delay := maxDelay
	if attempt < 30 {
		delay = min(baseDelay<<attempt, maxDelay)
	}
	if spread := delay / 4; spread > 0 {
		delay += time.Duration(rand.Int63n(int64(spread*2))) - spread
	}
	if delay <= 0 {
		return baseDelay
	}
	return delay
}
