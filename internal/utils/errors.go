package utils

import (
	"errors"
	"fmt"

	"github.com/dl-alexandre/drivesync/internal/types"
)

// Exit codes
const (
	ExitSuccess = 0
	// ExitOperationFailed is used when a command ran but reported status false
	ExitOperationFailed = 1
	// Auth errors (10-19)
	ExitAuthRequired      = 10
	ExitAuthExpired       = 11
	ExitAuthInvalid       = 12
	ExitScopeInsufficient = 13
	// File operation errors (20-29)
	ExitFileNotFound     = 20
	ExitPermissionDenied = 21
	ExitQuotaExceeded    = 22
	ExitLocalIO          = 23
	// Network errors (30-39)
	ExitNetworkError      = 30
	ExitTimeout           = 31
	ExitRateLimited       = 32
	ExitRemoteUnavailable = 33
	// Validation errors (40-49)
	ExitInvalidArgument  = 40
	ExitInvalidPath      = 41
	ExitAmbiguousPath    = 42
	ExitInvalidReference = 43
	// Policy errors (50-59)
	ExitPolicyViolation   = 50
	ExitSharingRestricted = 51
	// Batch errors
	ExitBatchPartialFailure = 60
	// Unknown
	ExitUnknown = 99
)

// Error codes (tool-owned, stable)
const (
	ErrCodeAuthRequired        = "AUTH_REQUIRED"
	ErrCodeAuthExpired         = "AUTH_EXPIRED"
	ErrCodeAuthClientMissing   = "AUTH_CLIENT_MISSING"
	ErrCodeAuthClientInvalid   = "AUTH_CLIENT_INVALID"
	ErrCodeAuthClientPartial   = "AUTH_CLIENT_PARTIAL"
	ErrCodeScopeInsufficient   = "SCOPE_INSUFFICIENT"
	ErrCodeFileNotFound        = "FILE_NOT_FOUND"
	ErrCodePermissionDenied    = "PERMISSION_DENIED"
	ErrCodeQuotaExceeded       = "QUOTA_EXCEEDED"
	ErrCodeLocalIO             = "LOCAL_IO"
	ErrCodeNetworkError        = "NETWORK_ERROR"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeRemoteUnavailable   = "REMOTE_UNAVAILABLE"
	ErrCodeInvalidArgument     = "INVALID_ARGUMENT"
	ErrCodeInvalidPath         = "INVALID_PATH"
	ErrCodeAmbiguousPath       = "AMBIGUOUS_PATH"
	ErrCodeInvalidReference    = "INVALID_REFERENCE"
	ErrCodePolicyViolation     = "POLICY_VIOLATION"
	ErrCodeSharingRestricted   = "SHARING_RESTRICTED"
	ErrCodeBatchPartialFailure = "BATCH_PARTIAL_FAILURE"
	ErrCodeCancelled           = "CANCELLED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeUnknown             = "UNKNOWN"
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
		ErrCodeAuthRequired:        ExitAuthRequired,
		ErrCodeAuthExpired:         ExitAuthExpired,
		ErrCodeAuthClientMissing:   ExitAuthRequired,
		ErrCodeAuthClientInvalid:   ExitAuthRequired,
		ErrCodeAuthClientPartial:   ExitAuthRequired,
		ErrCodeScopeInsufficient:   ExitScopeInsufficient,
		ErrCodeFileNotFound:        ExitFileNotFound,
		ErrCodePermissionDenied:    ExitPermissionDenied,
		ErrCodeQuotaExceeded:       ExitQuotaExceeded,
		ErrCodeLocalIO:             ExitLocalIO,
		ErrCodeNetworkError:        ExitNetworkError,
		ErrCodeTimeout:             ExitTimeout,
		ErrCodeRateLimited:         ExitRateLimited,
		ErrCodeRemoteUnavailable:   ExitRemoteUnavailable,
		ErrCodeInvalidArgument:     ExitInvalidArgument,
		ErrCodeInvalidPath:         ExitInvalidPath,
		ErrCodeAmbiguousPath:       ExitAmbiguousPath,
		ErrCodeInvalidReference:    ExitInvalidReference,
		ErrCodePolicyViolation:     ExitPolicyViolation,
		ErrCodeSharingRestricted:   ExitSharingRestricted,
		ErrCodeBatchPartialFailure: ExitBatchPartialFailure,
	}
	if code, ok := mapping[errorCode]; ok {
		return code
	}
	return ExitUnknown
}

// AppError is a custom error type that carries CLI error info
type AppError struct {
	CLIError types.CLIError
	Err      error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.CLIError.Code, e.CLIError.Message)
}

// Unwrap exposes the underlying cause, if any
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError from a CLIError
func NewAppError(cliErr types.CLIError) *AppError {
	return &AppError{CLIError: cliErr}
}

// WrapAppError creates an AppError that keeps cause in the error chain
func WrapAppError(cliErr types.CLIError, cause error) *AppError {
	return &AppError{CLIError: cliErr, Err: cause}
}

// ErrorKind is the coarse failure class surfaced in folder results
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindRemoteUnavailable
	KindNotFound
	KindInvalidReference
	KindLocalIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindRemoteUnavailable:
		return "RemoteUnavailable"
	case KindNotFound:
		return "NotFound"
	case KindInvalidReference:
		return "InvalidReference"
	case KindLocalIO:
		return "LocalIOError"
	}
	return "Unknown"
}

// KindOf projects an error onto an ErrorKind by its code.
// Errors that are not AppErrors are treated as transport failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return KindRemoteUnavailable
	}
	switch appErr.CLIError.Code {
	case ErrCodeFileNotFound:
		return KindNotFound
	case ErrCodeInvalidReference, ErrCodeInvalidArgument, ErrCodeInvalidPath:
		return KindInvalidReference
	case ErrCodeLocalIO:
		return KindLocalIO
	case ErrCodeNetworkError, ErrCodeTimeout, ErrCodeRateLimited, ErrCodeRemoteUnavailable,
		ErrCodeAuthExpired, ErrCodeAuthRequired, ErrCodePermissionDenied, ErrCodeQuotaExceeded:
		return KindRemoteUnavailable
	}
	return KindUnknown
}

// IsNotFound reports whether err classifies as KindNotFound
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// LocalIOError wraps a local filesystem failure
func LocalIOError(op, path string, err error) *AppError {
	return WrapAppError(NewCLIError(ErrCodeLocalIO, fmt.Sprintf("%s %s: %v", op, path, err)).
		WithContext("path", path).
		Build(), err)
}

// InvalidReferenceError reports a malformed id, URL or name
func InvalidReferenceError(format string, args ...interface{}) *AppError {
	return NewAppError(NewCLIError(ErrCodeInvalidReference, fmt.Sprintf(format, args...)).Build())
}
