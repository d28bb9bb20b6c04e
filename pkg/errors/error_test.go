package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"
)

func TestStructuredErrorImplementsErrorInterface(t *testing.T) {
	err := New(ValidationError, "Test error", "Test details", 123)

	var _ error = err

	expected := "[validation_error] Test error: Test details"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestStructuredErrorWithoutDetails(t *testing.T) {
	err := New(ConfigurationError, "Font path required", "", ErrTitleNeedsFont)

	expected := "[configuration_error] Font path required"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestStructuredErrorJSON(t *testing.T) {
	err := New(ProcessingError, "JSON test", "Some details", 42)

	jsonStr, jsonErr := err.JSON()
	if jsonErr != nil {
		t.Fatalf("Failed to marshal error to JSON: %v", jsonErr)
	}

	var parsed map[string]interface{}
	if unmarshalErr := json.Unmarshal([]byte(jsonStr), &parsed); unmarshalErr != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", unmarshalErr)
	}

	if parsed["type"] != string(ProcessingError) {
		t.Errorf("type = %q, want %q", parsed["type"], ProcessingError)
	}

	if parsed["message"] != "JSON test" {
		t.Errorf("message = %q, want %q", parsed["message"], "JSON test")
	}

	if parsed["details"] != "Some details" {
		t.Errorf("details = %q, want %q", parsed["details"], "Some details")
	}

	if parsed["code"].(float64) != 42 {
		t.Errorf("code = %v, want %v", parsed["code"], 42)
	}
}

func TestWrap(t *testing.T) {
	originalErr := stderrors.New("original error")
	wrapped := Wrap(originalErr, SystemError, "Wrapped error", 55)

	if wrapped.Details != originalErr.Error() {
		t.Errorf("Details = %q, want %q", wrapped.Details, originalErr.Error())
	}

	if wrapped.Type != SystemError {
		t.Errorf("Type = %q, want %q", wrapped.Type, SystemError)
	}

	nilWrapped := Wrap(nil, DownloadError, "Nil wrap", 1)
	if nilWrapped.Details != "" {
		t.Errorf("Details = %q, want empty string", nilWrapped.Details)
	}
}

func TestIsType(t *testing.T) {
	err := New(ProcessingError, "ffmpeg failed", "exit status 1", ErrFFmpegExit)

	if !IsType(err, ProcessingError) {
		t.Error("IsType should match the error's own type")
	}

	if IsType(err, ValidationError) {
		t.Error("IsType should not match a different type")
	}

	wrapped := fmt.Errorf("job failed: %w", err)
	if !IsType(wrapped, ProcessingError) {
		t.Error("IsType should see through fmt.Errorf wrapping")
	}

	if IsType(stderrors.New("plain"), ProcessingError) {
		t.Error("IsType should be false for non-structured errors")
	}
}
