// Package errors defines the stable error codes for every failure mode of
// the composer engine.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// TabNotFound indicates the referenced tab does not exist
	TabNotFound ErrorCode = "TAB_NOT_FOUND"
	// NotModuleBound indicates the tab has no module source binding
	NotModuleBound ErrorCode = "NOT_MODULE_BOUND"
	// PortalInactive indicates the tab's owning portal is not the active one
	PortalInactive ErrorCode = "PORTAL_INACTIVE"
	// NothingToCommit indicates neither script nor metadata changed
	NothingToCommit ErrorCode = "NOTHING_TO_COMMIT"
	// OperationInProgress indicates a commit or pull is already outstanding for the tab
	OperationInProgress ErrorCode = "OPERATION_IN_PROGRESS"
	// ModuleNotFound indicates the remote module does not exist
	ModuleNotFound ErrorCode = "MODULE_NOT_FOUND"
	// AccessForbidden indicates the portal rejected the credential
	AccessForbidden ErrorCode = "ACCESS_FORBIDDEN"
	// Unauthenticated indicates no valid credential was presented
	Unauthenticated ErrorCode = "UNAUTHENTICATED"
	// RemoteError indicates a generic portal failure
	RemoteError ErrorCode = "REMOTE_ERROR"
	// MirrorFailed indicates a repository mirror operation failed
	MirrorFailed ErrorCode = "MIRROR_FAILED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// ComposerError represents a composer error with a stable code and message.
type ComposerError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a new ComposerError.
func New(code ErrorCode, message string) *ComposerError {
	return &ComposerError{Code: code, Message: message}
}

// Newf creates a new ComposerError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *ComposerError {
	return &ComposerError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new ComposerError wrapping a cause.
func Wrap(code ErrorCode, message string, cause error) *ComposerError {
	return &ComposerError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *ComposerError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ComposerError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *ComposerError) WithDetails(details interface{}) *ComposerError {
	e.Details = details
	return e
}

// CodeOf returns the ErrorCode carried by err, or InternalError when err is
// not a ComposerError.
func CodeOf(err error) ErrorCode {
	var ce *ComposerError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return InternalError
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
