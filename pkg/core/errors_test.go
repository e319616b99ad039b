package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestAutomationErrorIs(t *testing.T) {
	err := ErrNotFound.WithMessage("no element matched text=\"Send\"")

	if !errors.Is(err, ErrNotFound) {
		t.Error("derived error should match its sentinel")
	}
	if errors.Is(err, ErrLocateTimeout) {
		t.Error("derived error should not match a different sentinel")
	}
}

func TestAutomationErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("adb: device offline")
	err := ErrTransport.WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
	if err.Error() != "device transport call failed: adb: device offline" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestWithDetailsMerges(t *testing.T) {
	err := ErrNotFound.WithDetails(map[string]interface{}{"text": "Send"})
	err = err.WithDetails(map[string]interface{}{"strategy": "hierarchy"})

	if err.Details["text"] != "Send" || err.Details["strategy"] != "hierarchy" {
		t.Errorf("details not merged: %v", err.Details)
	}
	// Sentinel must stay untouched.
	if len(ErrNotFound.Details) != 0 {
		t.Error("sentinel details mutated")
	}
}

func TestCategoryRetryable(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		want     bool
	}{
		{ErrCategoryParse, false},
		{ErrCategoryRegion, false},
		{ErrCategoryLookup, true},
		{ErrCategoryTimeout, true},
		{ErrCategoryTransport, true},
		{ErrCategoryAmbiguity, false},
		{ErrCategoryConfig, false},
	}

	for _, tt := range tests {
		if got := tt.category.Retryable(); got != tt.want {
			t.Errorf("%s.Retryable() = %v, want %v", tt.category, got, tt.want)
		}
	}
}

func TestCategoryOf(t *testing.T) {
	if got := CategoryOf(nil); got != ErrCategoryNone {
		t.Errorf("CategoryOf(nil) = %v", got)
	}
	if got := CategoryOf(ErrParse); got != ErrCategoryParse {
		t.Errorf("CategoryOf(ErrParse) = %v", got)
	}
	wrapped := fmt.Errorf("step failed: %w", ErrLocateTimeout)
	if got := CategoryOf(wrapped); got != ErrCategoryTimeout {
		t.Errorf("CategoryOf(wrapped timeout) = %v", got)
	}
	if got := CategoryOf(errors.New("socket closed")); got != ErrCategoryTransport {
		t.Errorf("CategoryOf(plain error) = %v", got)
	}
}
