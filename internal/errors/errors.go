package errors

import (
	"errors"
	"fmt"
)

// Domain-specific error types
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateEntry indicates a unique constraint violation
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrMessageNotFound indicates the message was not found
	ErrMessageNotFound = errors.New("message not found")

	// ErrAttachmentNotFound indicates the attachment was not found
	ErrAttachmentNotFound = errors.New("attachment not found")

	// ErrUserNotFound indicates the user was not found
	ErrUserNotFound = errors.New("user not found")

	// ErrUnauthorized indicates a missing or invalid identity
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller does not own the resource
	ErrForbidden = errors.New("forbidden")

	// ErrPersistence indicates the store failed or is unavailable
	ErrPersistence = errors.New("persistence failure")

	// ErrDelivery indicates a single broadcast recipient could not be reached.
	// It never leaves the realtime layer.
	ErrDelivery = errors.New("delivery failed")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal server error")
)

// Error codes for API responses
const (
	CodeNotFound          = "NOT_FOUND"
	CodeDuplicateEntry    = "DUPLICATE_ENTRY"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnsupportedType   = "UNSUPPORTED_TYPE"
	CodeExtensionMismatch = "EXTENSION_MISMATCH"
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInternalError     = "INTERNAL_ERROR"
)

// AppError represents an application error with context
type AppError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(err error, message string, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// ValidationError is a user-correctable failure. It carries enough detail
// (offending field, size limit, file category) for the client to fix the request.
type ValidationError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
	Category string `json:"category,omitempty"`
	Limit    int64  `json:"limit,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match every validation failure
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a ValidationError for a request field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Code:    CodeInvalidInput,
		Message: message,
		Field:   field,
	}
}

// NewUnsupportedTypeError is returned when a file extension is not in the allow-list
func NewUnsupportedTypeError(filename, ext string) *ValidationError {
	return &ValidationError{
		Code:    CodeUnsupportedType,
		Message: fmt.Sprintf("file type %q is not allowed (%s)", ext, filename),
		Field:   "attachment",
	}
}

// NewExtensionMismatchError is returned when the file extension disagrees with its content type
func NewExtensionMismatchError(ext, mimeType string) *ValidationError {
	return &ValidationError{
		Code:    CodeExtensionMismatch,
		Message: fmt.Sprintf("file extension %q does not match content type %q", ext, mimeType),
		Field:   "attachment",
	}
}

// NewFileTooLargeError reports the ceiling of the category that was exceeded
func NewFileTooLargeError(category string, size, limit int64) *ValidationError {
	return &ValidationError{
		Code:     CodeFileTooLarge,
		Message:  fmt.Sprintf("%s files must be at most %d MiB (got %d bytes)", category, limit/(1024*1024), size),
		Field:    "attachment",
		Category: category,
		Limit:    limit,
	}
}

// PersistenceError hides a store failure behind a generic message. The
// cause stays available to server-side logging through Unwrap and Cause.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Is reports ErrPersistence so callers can match without type assertions
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Unwrap returns the underlying store error
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError wraps a store failure for the given operation
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// DeliveryError records why a single recipient could not be reached
type DeliveryError struct {
	SessionID string
	Err       error
}

// Error implements the error interface
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to session %s: %v", e.SessionID, e.Err)
}

// Is reports ErrDelivery
func (e *DeliveryError) Is(target error) bool {
	return target == ErrDelivery
}

// Unwrap returns the underlying cause
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrMessageNotFound) ||
		errors.Is(err, ErrAttachmentNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsDuplicateEntry checks if the error is a duplicate entry error
func IsDuplicateEntry(err error) bool {
	return errors.Is(err, ErrDuplicateEntry)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsForbidden checks if the error is an ownership violation
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsPersistence checks if the error is a store failure
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// GetValidationError extracts a ValidationError from an error chain
func GetValidationError(err error) *ValidationError {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr
	}
	return nil
}

// GetErrorCode returns the appropriate error code for an error
func GetErrorCode(err error) string {
	if vErr := GetValidationError(err); vErr != nil {
		return vErr.Code
	}
	switch {
	case IsNotFound(err):
		return CodeNotFound
	case IsDuplicateEntry(err):
		return CodeDuplicateEntry
	case IsInvalidInput(err):
		return CodeInvalidInput
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case IsForbidden(err):
		return CodeForbidden
	default:
		return CodeInternalError
	}
}
