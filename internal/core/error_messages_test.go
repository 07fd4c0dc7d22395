package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "file not found", err: fmt.Errorf("locate imports/a.csv: %w", ErrFileNotFound), wantCode: "FILE001"},
		{name: "empty file", err: ErrEmptyFile, wantCode: "FILE002"},
		{name: "missing headers wrapped", err: fmt.Errorf("%w: cpf", ErrMissingHeaders), wantCode: "VAL004"},
		{name: "constraint violation typed", err: &ConstraintViolationError{Field: ColumnEmail}, wantCode: "DB001"},
		{name: "duplicate key pattern", err: errors.New("ERROR: duplicate key value violates unique constraint"), wantCode: "DB001"},
		{name: "owner missing", err: ErrOwnerNotFound, wantCode: "USR001"},
		{name: "attempt timeout", err: fmt.Errorf("attempt 2: %w", ErrAttemptTimeout), wantCode: "JOB001"},
		{name: "context deadline", err: context.DeadlineExceeded, wantCode: "JOB001"},
		{name: "connection refused", err: errors.New("dial tcp 127.0.0.1:5432: connection refused"), wantCode: "DB004"},
		{name: "deadlock", err: errors.New("ERROR: deadlock detected"), wantCode: "DB007"},
		{name: "queue unavailable", err: fmt.Errorf("%w: publish: closed", ErrQueueUnavailable), wantCode: "JOB002"},
		{name: "too many uploads", err: ErrTooManyUploads, wantCode: "UPL001"},
		{name: "unknown", err: errors.New("something odd"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Errorf("MapError(%v) returned empty message", tt.err)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(ErrEmptyFile)
	want := "The uploaded file is empty (Code: FILE002). Upload a CSV file with a header and data rows"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
	if !IsUserFacing(ErrFileNotFound) {
		t.Error("ErrFileNotFound should be user facing")
	}
	if IsUserFacing(errors.New("boom")) {
		t.Error("unknown errors should not be user facing")
	}
}

func TestConstraintViolationError(t *testing.T) {
	cause := errors.New("pg 23505")
	err := fmt.Errorf("create employee: %w", &ConstraintViolationError{Field: ColumnTaxID, Err: cause})

	if !errors.Is(err, ErrConstraintViolation) {
		t.Error("expected errors.Is(err, ErrConstraintViolation)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected the driver error to stay reachable")
	}

	var cv *ConstraintViolationError
	if !errors.As(err, &cv) || cv.Field != ColumnTaxID {
		t.Fatalf("errors.As failed or wrong field: %+v", cv)
	}

	messages := map[string]string{
		ColumnEmail: "email is already in use",
		ColumnTaxID: "CPF is already in use",
		"":          "record already exists",
		"phone":     "phone is already in use",
	}
	for field, want := range messages {
		if got := (&ConstraintViolationError{Field: field}).Error(); got != want {
			t.Errorf("Error() for %q = %q, want %q", field, got, want)
		}
	}
}
