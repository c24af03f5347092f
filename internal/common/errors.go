package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error taxonomy. Every fault crossing a component boundary is wrapped
// into exactly one of these kinds before it reaches the orchestrator.
var (
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrFileTooLarge    = errors.New("file exceeds size limit")
	ErrEngine          = errors.New("recognition engine failure")
	ErrRunInProgress   = errors.New("pipeline run already in progress")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("resource not found")
	ErrInternal        = errors.New("internal error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// UserMessage maps any pipeline error to a human-readable message.
// Raw engine error strings never reach the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedType):
		return "File type not supported. Please upload a JPG, PNG, GIF, BMP, WebP, or PDF file."
	case errors.Is(err, ErrFileTooLarge):
		return "File is too large. Please upload a smaller file."
	case errors.Is(err, ErrEngine):
		return "We couldn't extract text from the document. Please try again."
	case errors.Is(err, ErrRunInProgress):
		return "Another document is still being processed. Please wait for it to finish."
	case errors.Is(err, ErrNotFound):
		return "The requested document was not found."
	default:
		return "Something went wrong while processing the document. Please try again."
	}
}

// NoContentMessage is shown when recognition succeeded but yielded no text.
// Deliberately distinct from the engine-failure message: the fix is a clearer
// image, not a retry.
const NoContentMessage = "No readable text was found in the document. Try a clearer, higher-contrast image."

// HTTPStatus maps a pipeline error to an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRunInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
