package provider

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/ndokutovich/agentlog/internal/core/universal"
)

// ErrorCode is the shared failure taxonomy every adapter classifies into.
type ErrorCode string

const (
	CodePathNotFound        ErrorCode = "PATH_NOT_FOUND"
	CodeAccessDenied        ErrorCode = "ACCESS_DENIED"
	CodeParseError          ErrorCode = "PARSE_ERROR"
	CodeInvalidFormat       ErrorCode = "INVALID_FORMAT"
	CodeCorruptData         ErrorCode = "CORRUPT_DATA"
	CodeOperationTimeout    ErrorCode = "OPERATION_TIMEOUT"
	CodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	CodeUnsupportedVersion  ErrorCode = "UNSUPPORTED_VERSION"
	CodeUnknown             ErrorCode = "UNKNOWN"
)

// Error is a classified provider failure. Adapters raise it internally so
// ClassifyError can read the code structurally instead of scanning message
// text.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds a classified error wrapping an optional cause.
func NewError(code ErrorCode, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// ClassifyError maps any error onto the taxonomy. A structured cause wins
// when available: a *Error keeps its code, and fs sentinel errors map
// directly. Only truly opaque errors fall back to the order-sensitive
// substring heuristic over the lower-cased message.
func ClassifyError(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
		return CodePathNotFound
	}
	if errors.Is(err, fs.ErrPermission) || errors.Is(err, os.ErrPermission) {
		return CodeAccessDenied
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return CodeOperationTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "enoent") || strings.Contains(msg, "not found"):
		return CodePathNotFound
	case strings.Contains(msg, "eacces") || strings.Contains(msg, "eperm") || strings.Contains(msg, "permission"):
		return CodeAccessDenied
	case strings.Contains(msg, "parse") || strings.Contains(msg, "json") ||
		strings.Contains(msg, "syntax") || strings.Contains(msg, "unexpected"):
		return CodeParseError
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "malformed"):
		return CodeInvalidFormat
	case strings.Contains(msg, "corrupt"):
		return CodeCorruptData
	case strings.Contains(msg, "timeout"):
		return CodeOperationTimeout
	default:
		return CodeUnknown
	}
}

// Recovery describes how a caller should respond to a classified failure.
type Recovery struct {
	Recoverable bool
	Retry       universal.RetryInfo
	Message     string
	Suggestion  string
}

// HandleError applies the shared recovery policy table: not-found and
// access-denied are terminal; parse/format/corruption are recovered by
// skipping the offending record; timeouts retry with exponential backoff;
// anything unclassified is non-recoverable and asks the user to file an
// issue.
func HandleError(err error, context string) Recovery {
	code := ClassifyError(err)
	msg := fmt.Sprintf("%s: %v", context, err)

	switch code {
	case CodePathNotFound:
		return Recovery{
			Message:    msg,
			Suggestion: "Check that the path exists and the tool is installed",
		}
	case CodeAccessDenied:
		return Recovery{
			Message:    msg,
			Suggestion: "Check file permissions for the data directory",
		}
	case CodeParseError, CodeInvalidFormat, CodeCorruptData:
		return Recovery{
			Recoverable: true,
			Message:     msg,
			Suggestion:  "The offending record will be skipped",
		}
	case CodeOperationTimeout:
		return Recovery{
			Recoverable: true,
			Retry: universal.RetryInfo{
				ShouldRetry:       true,
				MaxAttempts:       3,
				DelayMs:           2000,
				BackoffMultiplier: 1.5,
			},
			Message: msg,
		}
	default:
		return Recovery{
			Message:    msg,
			Suggestion: "Unexpected failure; please file an issue with the message above",
		}
	}
}

// ResultError converts an error into the envelope payload, classifying it
// and attaching the recovery policy.
func ResultError(err error, context string) *universal.ResultError {
	code := ClassifyError(err)
	rec := HandleError(err, context)
	re := &universal.ResultError{
		Code:        string(code),
		Message:     rec.Message,
		Recoverable: rec.Recoverable,
	}
	if rec.Retry.ShouldRetry {
		retry := rec.Retry
		re.Retry = &retry
	}
	return re
}

// Unavailable builds the envelope payload for operations a provider does not
// support.
func Unavailable(what string) *universal.ResultError {
	return &universal.ResultError{
		Code:    string(CodeProviderUnavailable),
		Message: what + " is not supported by this provider",
	}
}
