package llmerr

import (
	"errors"
	"testing"
)

func TestSchemaErrorIsErrSchema(t *testing.T) {
	err := NewSchemaError("openai", "missing endpoint", nil)
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("expected errors.Is(err, ErrSchema) to be true")
	}
}

func TestValidationErrorMessageIncludesField(t *testing.T) {
	err := NewValidationError("temperature", "above maximum")
	if got := err.Error(); got != `validation: temperature: above maximum` {
		t.Fatalf("unexpected message: %q", got)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected errors.Is(err, ErrValidation) to be true")
	}
}

func TestValidationErrorWithoutField(t *testing.T) {
	err := NewValidationError("", "empty message list")
	if got := err.Error(); got != "validation: empty message list" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestTransportErrorCancelled(t *testing.T) {
	err := Cancelled()
	if !err.Cancelled {
		t.Fatalf("expected Cancelled flag set")
	}
	if got := err.Error(); got != "transport: request cancelled" {
		t.Fatalf("unexpected message: %q", got)
	}
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected errors.Is(err, ErrTransport) to be true")
	}
}

func TestTransportErrorPrefersMessageOverBody(t *testing.T) {
	err := &TransportError{StatusCode: 429, Message: "rate limited", Body: `{"error":{"message":"rate limited"}}`}
	if got := err.Error(); got != "transport: status 429: rate limited" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestResponseShapeErrorUnwrap(t *testing.T) {
	err := NewResponseShapeError([]any{"choices", 0, "message"}, "missing field")
	if !errors.Is(err, ErrResponseShape) {
		t.Fatalf("expected errors.Is(err, ErrResponseShape) to be true")
	}
}
