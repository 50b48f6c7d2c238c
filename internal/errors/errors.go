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

	// ErrBusinessNotActive indicates the business is not active
	ErrBusinessNotActive = errors.New("business is not active")

	// ErrBusinessNotFound indicates the business was not found
	ErrBusinessNotFound = errors.New("business not found")

	// ErrConversationNotFound indicates the conversation was not found
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrMessageNotFound indicates the message was not found
	ErrMessageNotFound = errors.New("message not found")

	// ErrAttachmentNotFound indicates the attachment was not found
	ErrAttachmentNotFound = errors.New("attachment not found")

	// ErrSubmissionNotFound indicates the submission was not found
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates forbidden access
	ErrForbidden = errors.New("forbidden")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal server error")

	// Pipeline-specific errors

	// ErrParseRequired indicates the attachment has no parsed data yet
	ErrParseRequired = errors.New("attachment must be parsed before submission")

	// ErrInvalidOverride indicates a manual payload override is not valid JSON
	ErrInvalidOverride = errors.New("manual payload override is not valid JSON")

	// ErrConversionFailed indicates PDF-to-image conversion failed
	ErrConversionFailed = errors.New("attachment conversion failed")

	// ErrExtractionFailed indicates the remote extraction service failed
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrSubmissionFailed indicates the billing submission call failed
	ErrSubmissionFailed = errors.New("billing submission failed")

	// ErrInvalidTransition indicates a disallowed submission status transition
	ErrInvalidTransition = errors.New("invalid submission status transition")
)

// Error codes for API responses
const (
	CodeNotFound          = "NOT_FOUND"
	CodeDuplicateEntry    = "DUPLICATE_ENTRY"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeBusinessNotActive = "BUSINESS_NOT_ACTIVE"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeParseRequired     = "PARSE_REQUIRED"
	CodeInvalidOverride   = "INVALID_OVERRIDE"
	CodeConversionFailed  = "CONVERSION_FAILED"
	CodeExtractionFailed  = "EXTRACTION_FAILED"
	CodeSubmissionFailed  = "SUBMISSION_FAILED"
	CodeInvalidTransition = "INVALID_TRANSITION"
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
		errors.Is(err, ErrBusinessNotFound) ||
		errors.Is(err, ErrConversationNotFound) ||
		errors.Is(err, ErrMessageNotFound) ||
		errors.Is(err, ErrAttachmentNotFound) ||
		errors.Is(err, ErrSubmissionNotFound)
}

// IsDuplicateEntry checks if the error is a duplicate entry error
func IsDuplicateEntry(err error) bool {
	return errors.Is(err, ErrDuplicateEntry)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrParseRequired) ||
		errors.Is(err, ErrInvalidOverride)
}

// IsBusinessNotActive checks if the error is a business not active error
func IsBusinessNotActive(err error) bool {
	return errors.Is(err, ErrBusinessNotActive)
}

// GetErrorCode returns the appropriate error code for an error
func GetErrorCode(err error) string {
	switch {
	case IsNotFound(err):
		return CodeNotFound
	case errors.Is(err, ErrParseRequired):
		return CodeParseRequired
	case errors.Is(err, ErrInvalidOverride):
		return CodeInvalidOverride
	case IsDuplicateEntry(err):
		return CodeDuplicateEntry
	case IsInvalidInput(err):
		return CodeInvalidInput
	case IsBusinessNotActive(err):
		return CodeBusinessNotActive
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrConversionFailed):
		return CodeConversionFailed
	case errors.Is(err, ErrExtractionFailed):
		return CodeExtractionFailed
	case errors.Is(err, ErrSubmissionFailed):
		return CodeSubmissionFailed
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	default:
		return CodeInternalError
	}
}
