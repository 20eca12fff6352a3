// Package errors turns Drive client failures into coded CLI errors.
package errors

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/dl-alexandre/gitdrive/internal/logging"
	"github.com/dl-alexandre/gitdrive/internal/types"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"google.golang.org/api/googleapi"
)

// reasonRule refines the status-derived code by the first Drive error reason
type reasonRule struct {
	code      string
	retryable bool
	hint      string
}

var reasonRules = map[string]reasonRule{
	"storageQuotaExceeded":        {utils.ErrCodeQuotaExceeded, false, "free up space in the service account's Drive or use a shared drive"},
	"teamDriveFileLimitExceeded":  {utils.ErrCodeQuotaExceeded, false, "the shared drive holds too many files"},
	"userRateLimitExceeded":       {utils.ErrCodeRateLimited, true, "lower GITDRIVE_CONCURRENCY"},
	"rateLimitExceeded":           {utils.ErrCodeRateLimited, true, "lower GITDRIVE_CONCURRENCY"},
	"dailyLimitExceeded":          {utils.ErrCodeRateLimited, false, "quota will reset in 24 hours"},
	"domainPolicy":                {utils.ErrCodePolicyViolation, false, "contact domain administrator"},
	"invalidSharingRequest":       {utils.ErrCodeSharingRestricted, false, ""},
	"insufficientFilePermissions": {utils.ErrCodePermissionDenied, false, "give the service account editor access to the destination folder"},
}

func statusCode(status int) (string, bool) {
	switch status {
	case http.StatusBadRequest, http.StatusConflict:
		return utils.ErrCodeInvalidArgument, false
	case http.StatusUnauthorized:
		return utils.ErrCodeAuthExpired, false
	case http.StatusForbidden:
		return utils.ErrCodePermissionDenied, false
	case http.StatusNotFound:
		return utils.ErrCodeFileNotFound, false
	case http.StatusTooManyRequests:
		return utils.ErrCodeRateLimited, true
	}
	if status >= 500 && status <= 504 {
		return utils.ErrCodeNetworkError, true
	}
	return utils.ErrCodeUnknown, status >= 500
}

// ClassifyGoogleAPIError maps a Drive client error onto a stable CLI error code
func ClassifyGoogleAPIError(service string, err error, reqCtx *types.RequestContext, logger logging.Logger) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeCancelled, "operation cancelled").
			WithContext("traceId", reqCtx.TraceID).
			Build(), err)
	}

	var apiErr *googleapi.Error
	if !stderrors.As(err, &apiErr) {
		logger.Error("Drive transport error", logging.F("error", err.Error()), logging.F("traceId", reqCtx.TraceID))
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeNetworkError, err.Error()).
			WithRetryable(true).
			WithContext("traceId", reqCtx.TraceID).
			WithContext("service", service).
			Build(), err)
	}

	code, retryable := statusCode(apiErr.Code)
	var hint, reason string
	if len(apiErr.Errors) > 0 {
		reason = apiErr.Errors[0].Reason
	}
	// 400 and 403 are refined by reason; a 401 or 404 stays what it is
	if rule, ok := reasonRules[reason]; ok && (apiErr.Code == http.StatusBadRequest || apiErr.Code == http.StatusForbidden) {
		code, retryable, hint = rule.code, rule.retryable, rule.hint
	}

	builder := utils.NewCLIError(code, apiErr.Message).
		WithHTTPStatus(apiErr.Code).
		WithRetryable(retryable).
		WithContext("traceId", reqCtx.TraceID).
		WithContext("requestType", string(reqCtx.RequestType)).
		WithContext("service", service)
	if reason != "" {
		builder.WithDriveReason(reason)
	}

	switch code {
	case utils.ErrCodeAuthExpired:
		hint = "check that GOOGLE_KEY holds a valid service account key"
	case utils.ErrCodeFileNotFound:
		if len(reqCtx.InvolvedFileIDs) > 0 {
			builder.WithContext("fileIds", reqCtx.InvolvedFileIDs)
		}
		if len(reqCtx.InvolvedParentIDs) > 0 {
			builder.WithContext("parentIds", reqCtx.InvolvedParentIDs)
		}
		hint = "verify GDRIVE_FOLDERID and that it is shared with the service account"
	case utils.ErrCodeNetworkError:
		builder.WithContext("serverError", true)
	}
	if hint != "" {
		builder.WithContext("suggestedAction", hint)
	}

	logger.Error("Drive API error",
		logging.F("httpStatus", apiErr.Code),
		logging.F("errorCode", code),
		logging.F("reason", reason),
		logging.F("retryable", retryable),
		logging.F("traceId", reqCtx.TraceID),
	)
	return utils.WrapAppError(builder.Build(), err)
}
