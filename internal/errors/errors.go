package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a coursesync error code.
type ErrorCode string

const (
	ErrConfig          ErrorCode = "CONFIG"           // missing credential or unusable config
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"  // 400
	ErrForbidden       ErrorCode = "FORBIDDEN"        // 403
	ErrNotFound        ErrorCode = "NOT_FOUND"        // 404
	ErrListingFailed   ErrorCode = "LISTING_FAILED"   // folder enumeration returned non-success
	ErrFetchFailed     ErrorCode = "FETCH_FAILED"     // single-object metadata/content failure
	ErrParseFailed     ErrorCode = "PARSE_FAILED"     // malformed JSON or PDF
	ErrSchemaViolation ErrorCode = "SCHEMA_VIOLATION" // course record breaks the schema
	ErrInternal        ErrorCode = "INTERNAL"         // 500
)

// MaxExcerpt bounds how much of a remote response body is kept on an error.
const MaxExcerpt = 200

// SyncError represents a structured error with code, status, and details.
type SyncError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewConfig creates an error for configuration problems that must stop the process.
func NewConfig(msg string) *SyncError {
	return &SyncError{
		Code:    ErrConfig,
		Status:  500,
		Message: msg,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *SyncError {
	return &SyncError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing remote object or local file.
func NewNotFound(identifier string) *SyncError {
	return &SyncError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewForbidden creates a 403 error when the remote denies access to an object.
func NewForbidden(identifier string) *SyncError {
	return &SyncError{
		Code:    ErrForbidden,
		Status:  403,
		Message: fmt.Sprintf("access denied: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewListingFailed creates an error for a folder listing that returned a non-success status.
// The response body is truncated to MaxExcerpt bytes.
func NewListingFailed(folderID string, status int, body string) *SyncError {
	excerpt := Excerpt(body)
	return &SyncError{
		Code:    ErrListingFailed,
		Status:  status,
		Message: fmt.Sprintf("listing folder %s failed: %d %s", folderID, status, excerpt),
		Details: map[string]any{"folder_id": folderID, "status": status, "excerpt": excerpt},
	}
}

// NewFetchFailed creates an error for a failed metadata, export, or download call.
func NewFetchFailed(id string, status int, err error) *SyncError {
	msg := fmt.Sprintf("fetch %s failed", id)
	if status > 0 {
		msg = fmt.Sprintf("fetch %s failed: status %d", id, status)
	}
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &SyncError{
		Code:    ErrFetchFailed,
		Status:  status,
		Message: msg,
		Details: map[string]any{"identifier": id},
	}
}

// NewParseFailed creates an error for malformed JSON or binary input.
func NewParseFailed(source string, err error) *SyncError {
	msg := fmt.Sprintf("parse %s failed", source)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &SyncError{
		Code:    ErrParseFailed,
		Status:  422,
		Message: msg,
		Details: map[string]any{"source": source},
	}
}

// NewSchemaViolation creates an error for a course record that breaks the schema.
func NewSchemaViolation(field, msg string) *SyncError {
	return &SyncError{
		Code:    ErrSchemaViolation,
		Status:  422,
		Message: msg,
		Details: map[string]any{"field": field},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *SyncError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SyncError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if err (or anything it wraps) is a SyncError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *SyncError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// As returns the SyncError inside err, if any.
func As(err error) (*SyncError, bool) {
	var sErr *SyncError
	if stderrors.As(err, &sErr) {
		return sErr, true
	}
	return nil, false
}

// Excerpt truncates s to MaxExcerpt bytes without splitting a UTF-8 sequence.
func Excerpt(s string) string {
	if len(s) <= MaxExcerpt {
		return s
	}
	cut := MaxExcerpt
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
