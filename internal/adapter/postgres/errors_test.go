package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/heartmarshall/myquran/internal/domain"
)

func TestMapError_Nil(t *testing.T) {
	t.Parallel()

	if got := MapError(nil, "sync_record", "r1"); got != nil {
		t.Errorf("MapError(nil) = %v, want nil", got)
	}
}

func TestMapError_NoRows(t *testing.T) {
	t.Parallel()

	got := MapError(fmt.Errorf("scan row: %w", pgx.ErrNoRows), "sync_record", "r1")

	if !errors.Is(got, domain.ErrNotFound) {
		t.Errorf("MapError(ErrNoRows) does not wrap domain.ErrNotFound: %v", got)
	}
	if want := "sync_record r1: not found"; got.Error() != want {
		t.Errorf("MapError(ErrNoRows).Error() = %q, want %q", got.Error(), want)
	}
}

func TestMapError_ContextPassesThrough(t *testing.T) {
	t.Parallel()

	for _, ctxErr := range []error{context.DeadlineExceeded, context.Canceled} {
		got := MapError(ctxErr, "sync_record", "r1")
		if !errors.Is(got, ctxErr) {
			t.Errorf("MapError(%v) does not wrap it: %v", ctxErr, got)
		}
		if errors.Is(got, domain.ErrNotFound) {
			t.Errorf("MapError(%v) should not wrap domain.ErrNotFound", ctxErr)
		}
	}
}

func TestMapError_UnknownError(t *testing.T) {
	t.Parallel()

	original := errors.New("something unexpected")
	got := MapError(original, "sync_record", "r1")

	if !errors.Is(got, original) {
		t.Errorf("MapError(unknown) does not wrap original error: %v", got)
	}
	if want := "sync_record r1: something unexpected"; got.Error() != want {
		t.Errorf("MapError(unknown).Error() = %q, want %q", got.Error(), want)
	}
}

func TestMapError_UnknownPgError(t *testing.T) {
	t.Parallel()

	got := MapError(&pgconn.PgError{Code: "42P01", Message: "relation does not exist"}, "sync_record", "r1")

	var unwrapped *pgconn.PgError
	if !errors.As(got, &unwrapped) {
		t.Errorf("MapError(unknown PgError) does not wrap *pgconn.PgError: %v", got)
	}
	if errors.Is(got, domain.ErrNotFound) || errors.Is(got, domain.ErrAlreadyExists) || errors.Is(got, domain.ErrValidation) {
		t.Error("MapError(unknown PgError) should not map to a domain error")
	}
}

func TestMapError_AllPgCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"unique_violation", "23505", domain.ErrAlreadyExists},
		{"foreign_key_violation", "23503", domain.ErrNotFound},
		{"check_violation", "23514", domain.ErrValidation},
		{"invalid_text_representation", "22P02", domain.ErrValidation},
		{"serialization_failure", "40001", domain.ErrConflict},
		{"deadlock_detected", "40P01", domain.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wrapped := fmt.Errorf("exec: %w", &pgconn.PgError{Code: tt.code})
			got := MapError(wrapped, "sync_record", "r1")

			if !errors.Is(got, tt.wantErr) {
				t.Errorf("MapError(code %s) does not wrap %v: %v", tt.code, tt.wantErr, got)
			}
		})
	}
}
