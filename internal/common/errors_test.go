package common

import (
	"errors"
	"testing"
)

func TestGenerationAPIError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &GenerationAPIError{Cause: cause}

	if got := err.Error(); got != "generation API error: dial tcp: connection refused" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause must be reachable via errors.Is")
	}

	var apiErr *GenerationAPIError
	wrapped := WrapError(err, "pipeline run")
	if !errors.As(wrapped, &apiErr) {
		t.Fatalf("errors.As failed on %v", wrapped)
	}
}

func TestAppError(t *testing.T) {
	err := NewAppError("CONFIG_ERROR", "OLLAMA_MODEL is required", ErrInvalidInput)
	if got := err.Error(); got != "CONFIG_ERROR: OLLAMA_MODEL is required: invalid input" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatal("sentinel must be reachable via errors.Is")
	}

	bare := NewAppError("NOT_FOUND", "no such extraction", nil)
	if got := bare.Error(); got != "NOT_FOUND: no such extraction" {
		t.Fatalf("Error() = %q", got)
	}
}
