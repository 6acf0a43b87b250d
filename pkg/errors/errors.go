package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation          ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidMessage      ErrorCode = "INVALID_MESSAGE"
	ErrCodeInvalidParticipants ErrorCode = "INVALID_PARTICIPANTS"

	// Attachment validation errors
	ErrCodeUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"
	ErrCodeFileTooLarge    ErrorCode = "FILE_TOO_LARGE"

	// Authorization errors
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeNotParticipant ErrorCode = "NOT_PARTICIPANT"
	ErrCodeNotSender      ErrorCode = "NOT_SENDER"

	// Not found errors
	ErrCodeNotFound             ErrorCode = "NOT_FOUND"
	ErrCodeConversationNotFound ErrorCode = "CONVERSATION_NOT_FOUND"
	ErrCodeMessageNotFound      ErrorCode = "MESSAGE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeStorage          ErrorCode = "STORAGE_ERROR"
)

// AppError represents a structured application error with code, message, and HTTP status
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Details    any       `json:"details,omitempty"`
	Err        error     `json:"-"`
	Retriable  bool      `json:"-"`
}

// Error implements the error interface, returning a formatted error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the given code and message
// The status code defaults to 500 Internal Server Error
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewWithStatus creates a new AppError with a specific HTTP status code
func NewWithStatus(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an existing error with an AppError, preserving the original error
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// WithDetails adds additional details to an AppError for rendering
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// Validation errors

func ValidationError(message string) *AppError {
	return NewWithStatus(ErrCodeValidation, message, http.StatusBadRequest)
}

func InvalidInputError(message string) *AppError {
	return NewWithStatus(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

// InvalidMessageError signals a kind/content/attachment-cardinality mismatch
func InvalidMessageError(message string) *AppError {
	return NewWithStatus(ErrCodeInvalidMessage, message, http.StatusBadRequest)
}

// InvalidParticipantsError signals an attempt to open a conversation with oneself
func InvalidParticipantsError() *AppError {
	return NewWithStatus(ErrCodeInvalidParticipants, "A conversation requires two distinct participants", http.StatusBadRequest)
}

// Attachment validation errors

func UnsupportedTypeError(mimeType string) *AppError {
	return NewWithStatus(ErrCodeUnsupportedType, "Unsupported file type: "+mimeType, http.StatusUnsupportedMediaType)
}

// FileTooLargeError carries the human-readable ceiling so clients can render it
func FileTooLargeError(ceilingBytes int64) *AppError {
	ceilingMiB := ceilingBytes / (1024 * 1024)
	e := NewWithStatus(ErrCodeFileTooLarge, fmt.Sprintf("File exceeds the %d MiB limit for its type", ceilingMiB), http.StatusRequestEntityTooLarge)
	return e.WithDetails(map[string]int64{"max_bytes": ceilingBytes})
}

// Authorization errors

func ForbiddenError(message string) *AppError {
	return NewWithStatus(ErrCodeForbidden, message, http.StatusForbidden)
}

// NotParticipantError signals that the caller is not a member of the conversation
func NotParticipantError() *AppError {
	return NewWithStatus(ErrCodeNotParticipant, "Caller is not a participant in this conversation", http.StatusForbidden)
}

// NotSenderError signals that only the original sender may delete a message
func NotSenderError() *AppError {
	return NewWithStatus(ErrCodeNotSender, "Only the sender may delete this message", http.StatusForbidden)
}

// Not found errors

func NotFoundError(resource string) *AppError {
	return NewWithStatus(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func ConversationNotFoundError() *AppError {
	return NewWithStatus(ErrCodeConversationNotFound, "Conversation not found", http.StatusNotFound)
}

func MessageNotFoundError() *AppError {
	return NewWithStatus(ErrCodeMessageNotFound, "Message not found", http.StatusNotFound)
}

// Internal errors

func InternalError(message string) *AppError {
	return NewWithStatus(ErrCodeInternal, message, http.StatusInternalServerError)
}

// StoreUnavailableError wraps a persistence or object-store I/O failure.
// Callers may safely retry these.
func StoreUnavailableError(err error) *AppError {
	e := Wrap(ErrCodeStoreUnavailable, "Store temporarily unavailable", err)
	e.StatusCode = http.StatusServiceUnavailable
	e.Retriable = true
	return e
}

func StorageError(err error) *AppError {
	e := Wrap(ErrCodeStorage, "Storage error", err)
	e.Retriable = true
	return e
}

// IsRetriable reports whether the caller may retry the failed operation
func IsRetriable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retriable
	}
	return false
}

// IsAppError checks if an error is an AppError type
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error, wrapping non-AppErrors as InternalError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalError(err.Error())
}
