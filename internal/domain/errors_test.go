package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_SingleField(t *testing.T) {
	t.Parallel()

	err := NewValidationError("surah_id", "required")

	if got := err.Error(); got != "validation: surah_id: required" {
		t.Fatalf("unexpected Error(): %q", got)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatal("errors.Is(err, ErrValidation) = false")
	}
}

func TestValidationError_MultipleFields(t *testing.T) {
	t.Parallel()

	err := NewValidationErrors([]FieldError{
		{Field: "surah_id", Message: "required"},
		{Field: "ayah_number", Message: "out of range"},
	})

	if got := err.Error(); got != "validation: 2 errors" {
		t.Fatalf("unexpected Error(): %q", got)
	}
	if len(err.Errors) != 2 {
		t.Fatalf("expected 2 field errors, got %d", len(err.Errors))
	}
}

func TestValidationError_Wrapped(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("add bookmark: %w", NewValidationError("label", "too long"))

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("errors.As should find *ValidationError")
	}
	if ve.Errors[0].Field != "label" {
		t.Errorf("field = %q, want label", ve.Errors[0].Field)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatal("wrapped error should match ErrValidation")
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrValidation,
		ErrUnauthorized, ErrConflict, ErrUnavailable,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel errors %d and %d should not match", i, j)
			}
		}
	}
}
