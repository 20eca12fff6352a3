package utils

import (
	"errors"
	"fmt"

	"github.com/dl-alexandre/gitdrive/internal/types"
)

// Exit codes
const (
	ExitSuccess = 0
	// Auth errors (10-19)
	ExitAuthRequired      = 10
	ExitAuthExpired       = 11
	ExitAuthInvalid       = 12
	ExitScopeInsufficient = 13
	// Remote store errors (20-29)
	ExitFileNotFound     = 20
	ExitPermissionDenied = 21
	ExitQuotaExceeded    = 22
	// Network and retrieval errors (30-39)
	ExitNetworkError = 30
	ExitTimeout      = 31
	ExitRateLimited  = 32
	ExitRetrieval    = 33
	// Validation errors (40-49)
	ExitInvalidArgument = 40
	ExitInvalidPath     = 41
	ExitConfiguration   = 44
	ExitParse           = 45
	// Policy errors (50-59)
	ExitPolicyViolation = 50
	// Cancelled by signal
	ExitCancelled = 130
	// Unknown
	ExitUnknown = 99
)

// Error codes (tool-owned, stable)
const (
	ErrCodeAuthRequired      = "AUTH_REQUIRED"
	ErrCodeAuthExpired       = "AUTH_EXPIRED"
	ErrCodeAuthInvalid       = "AUTH_ERROR"
	ErrCodeFileNotFound      = "FILE_NOT_FOUND"
	ErrCodePermissionDenied  = "PERMISSION_DENIED"
	ErrCodeQuotaExceeded     = "QUOTA_EXCEEDED"
	ErrCodeNetworkError      = "NETWORK_ERROR"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeInvalidArgument   = "INVALID_ARGUMENT"
	ErrCodeInvalidPath       = "INVALID_PATH"
	ErrCodePolicyViolation   = "POLICY_VIOLATION"
	ErrCodeSharingRestricted = "SHARING_RESTRICTED"
	ErrCodeCancelled         = "CANCELLED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeUnknown           = "UNKNOWN"

	// Sync run failure kinds
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeParse         = "PARSE_ERROR"
	ErrCodeRetrieval     = "RETRIEVAL_ERROR"
	ErrCodeCreation      = "CREATION_ERROR"
	ErrCodeUpdate        = "UPDATE_ERROR"
	ErrCodeDeletion      = "DELETION_ERROR"
)

// CLIErrorBuilder helps construct CLIError instances
type CLIErrorBuilder struct {
	err types.CLIError
}

// NewCLIError creates a new error builder
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{
		err: types.CLIError{
			Code:    code,
			Message: message,
		},
	}
}

func (b *CLIErrorBuilder) WithHTTPStatus(status int) *CLIErrorBuilder {
	b.err.HTTPStatus = status
	return b
}

func (b *CLIErrorBuilder) WithDriveReason(reason string) *CLIErrorBuilder {
	b.err.DriveReason = reason
	return b
}

func (b *CLIErrorBuilder) WithRetryable(retryable bool) *CLIErrorBuilder {
	b.err.Retryable = retryable
	return b
}

func (b *CLIErrorBuilder) WithContext(key string, value interface{}) *CLIErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]interface{})
	}
	b.err.Context[key] = value
	return b
}

func (b *CLIErrorBuilder) Build() types.CLIError {
	return b.err
}

// GetExitCode returns the exit code for an error code
func GetExitCode(errorCode string) int {
	mapping := map[string]int{
		ErrCodeAuthRequired:     ExitAuthRequired,
		ErrCodeAuthExpired:      ExitAuthExpired,
		ErrCodeAuthInvalid:      ExitAuthInvalid,
		ErrCodeFileNotFound:     ExitFileNotFound,
		ErrCodePermissionDenied: ExitPermissionDenied,
		ErrCodeQuotaExceeded:    ExitQuotaExceeded,
		ErrCodeNetworkError:     ExitNetworkError,
		ErrCodeTimeout:          ExitTimeout,
		ErrCodeRateLimited:      ExitRateLimited,
		ErrCodeRetrieval:        ExitRetrieval,
		ErrCodeInvalidArgument:  ExitInvalidArgument,
		ErrCodeInvalidPath:      ExitInvalidPath,
		ErrCodeConfiguration:    ExitConfiguration,
		ErrCodeParse:            ExitParse,
		ErrCodePolicyViolation:  ExitPolicyViolation,
		ErrCodeCancelled:        ExitCancelled,
	}
	if code, ok := mapping[errorCode]; ok {
		return code
	}
	return ExitUnknown
}

// AppError is a custom error type that carries CLI error info
type AppError struct {
	CLIError types.CLIError
	cause    error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.CLIError.Code, e.CLIError.Message)
}

// Unwrap exposes the underlying cause, if any
func (e *AppError) Unwrap() error {
	return e.cause
}

// NewAppError creates an AppError from a CLIError
func NewAppError(cliErr types.CLIError) *AppError {
	return &AppError{CLIError: cliErr}
}

// WrapAppError creates an AppError that keeps cause reachable through errors.Is/As.
// The cause's text is not copied into the message.
func WrapAppError(cliErr types.CLIError, cause error) *AppError {
	return &AppError{CLIError: cliErr, cause: cause}
}

// Errorf is shorthand for an AppError with a formatted message
func Errorf(code string, format string, args ...interface{}) *AppError {
	return NewAppError(NewCLIError(code, fmt.Sprintf(format, args...)).Build())
}

// CodeOf returns the CLI error code carried by err, or ErrCodeUnknown
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.CLIError.Code
	}
	return ErrCodeUnknown
}

// HasCode reports whether err carries the given CLI error code
func HasCode(err error, code string) bool {
	var appErr *AppError
	for err != nil {
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.CLIError.Code == code {
			return true
		}
		err = appErr.cause
	}
	return false
}

// ExitCodeFor maps any error to a process exit code
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return GetExitCode(CodeOf(err))
}

// Describe renders err with the causes AppError keeps out of its message.
// Use it for internal trails only; causes may carry paths or remote details.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.cause != nil {
		return fmt.Sprintf("%s (%s)", err.Error(), Describe(appErr.cause))
	}
	return err.Error()
}
