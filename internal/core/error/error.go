package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// ServiceOfflineMessage is returned for every turn while the generative service is unavailable.
	ServiceOfflineMessage = "I'm sorry, my AI brain is currently offline. Please check the API key configuration."
)

// Kind classifies an AppError for callers that branch on failure category.
type Kind string

const (
	KindInternal      Kind = "internal"
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindExtraction    Kind = "extraction"
	KindNotFound      Kind = "not_found"
	KindStorage       Kind = "storage"
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
	Kind    Kind
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
		Kind:    kindForStatus(status),
	}
}

// Validation reports bad caller input. The message is safe to show to users.
func Validation(message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: message, Kind: KindValidation}
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...any) *AppError {
	return Validation(fmt.Sprintf(format, args...))
}

// NotFound reports a missing resource.
func NotFound(err error, message string) *AppError {
	return &AppError{Err: err, Status: http.StatusNotFound, Message: message, Kind: KindNotFound}
}

// Offline reports the generative service as unavailable.
func Offline(err error) *AppError {
	return &AppError{Err: err, Status: http.StatusServiceUnavailable, Message: ServiceOfflineMessage, Kind: KindConfiguration}
}

// Extraction reports a failed text-extraction call.
func Extraction(err error) *AppError {
	return &AppError{Err: err, Status: http.StatusUnprocessableEntity, Message: "document text extraction failed", Kind: KindExtraction}
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return t.Kind != "" && t.Kind == e.Kind
	}
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}

// StatusOf returns the HTTP status carried by err, or 500 for foreign errors.
func StatusOf(err error) int {
	var ae *AppError
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the safe message carried by err.
func MessageOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return SystemErrorMessage
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Kind == kind
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusServiceUnavailable:
		return KindConfiguration
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindInternal
	}
}
