package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType defines distinct categories for errors originating from vidbar components.
type ErrorType string

const (
	// ValidationError represents errors caused by malformed user input:
	// bad time tokens, non-monotonic chapter offsets, invalid colors.
	ValidationError ErrorType = "validation_error"
	// ConfigurationError represents missing or unusable dependencies discovered
	// before any work starts: unresolvable ffmpeg/ffprobe binaries, a chapter
	// title without a font path, a broken scheme file.
	ConfigurationError ErrorType = "configuration_error"
	// ProcessingError represents a failed ffmpeg run. Details carries the
	// captured stderr tail.
	ProcessingError ErrorType = "processing_error"
	// ProbeError represents failures while reading video metadata with ffprobe.
	ProbeError ErrorType = "probe_error"
	// DownloadError represents errors occurring while fetching a remote input.
	DownloadError ErrorType = "download_error"
	// SystemError represents underlying system issues such as file I/O errors.
	SystemError ErrorType = "system_error"
)

// StructuredError is a detailed error returned by vidbar operations.
// It includes a type, message, optional details, timestamp, and a specific
// error code, and implements the standard Go `error` interface.
type StructuredError struct {
	// Type categorizes the error (e.g., ValidationError, ProcessingError).
	Type ErrorType `json:"type"`
	// Message provides a concise, human-readable description of the error.
	Message string `json:"message"`
	// Details offers additional context or the underlying error message, if available.
	Details string `json:"details,omitempty"`
	// Timestamp marks when the error occurred in RFC3339 format.
	Timestamp string `json:"timestamp"`
	// Code provides a specific integer code unique to the error source within its type.
	Code int `json:"code"`
}

// Error implements the standard `error` interface for StructuredError.
func (e *StructuredError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Message, e.Details)
}

// JSON returns the StructuredError serialized as a JSON string.
func (e *StructuredError) JSON() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// New creates a new StructuredError instance.
// It automatically sets the Timestamp to the current time.
func New(errorType ErrorType, message, details string, code int) *StructuredError {
	return &StructuredError{
		Type:      errorType,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().Format(time.RFC3339),
		Code:      code,
	}
}

// Wrap creates a new StructuredError, using the message from an existing
// standard Go error as the Details field. If err is nil, Details is empty.
func Wrap(err error, errorType ErrorType, message string, code int) *StructuredError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return New(errorType, message, details, code)
}

// IsType reports whether err is (or wraps) a StructuredError of the given type.
func IsType(err error, t ErrorType) bool {
	var structured *StructuredError
	if stderrors.As(err, &structured) {
		return structured.Type == t
	}
	return false
}
