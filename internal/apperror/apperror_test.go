package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		sentinel error
	}{
		{"not found", NotFound("goal", 7), ErrNotFound},
		{"duplicate email", DuplicateEmail("ana@mail.com"), ErrDuplicate},
		{"validation", ValidationFailed("amount", "must be positive"), ErrValidation},
		{"no session", NoSession(), ErrNoSession},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false", tt.err)
			}
			// Wrapping must not break matching.
			wrapped := fmt.Errorf("service: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("wrapped error lost sentinel match")
			}
			var appErr *AppError
			if !errors.As(wrapped, &appErr) {
				t.Error("errors.As failed on wrapped AppError")
			}
		})
	}
}

func TestMessages(t *testing.T) {
	if got := NotFound("income", 12).Error(); got != "income 12 not found" {
		t.Errorf("NotFound message = %q", got)
	}
	dup := DuplicateEmail("ana@mail.com")
	if dup.Field != "email" {
		t.Errorf("Field = %q, want email", dup.Field)
	}
	val := ValidationFailed("day", "day out of range")
	if val.Error() != "day out of range" || val.Field != "day" {
		t.Errorf("validation = %+v", val)
	}
}
