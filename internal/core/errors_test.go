// internal/core/errors_test.go
package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	if err.Error() != "[TEST_ERROR] test message" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_ErrorWithCause(t *testing.T) {
	err := WrapError(ErrNotifierFailed, errors.New("status 500"))
	if err.Error() != "[NOTIFIER_FAILED] notifier failed: status 500" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return cause")
	}
}

func TestError_Is(t *testing.T) {
	if !errors.Is(ErrSignalNotFound, ErrSignalNotFound) {
		t.Error("same error should match")
	}
	wrapped := fmt.Errorf("lookup: %w", WrapError(ErrValidation, errors.New("id")))
	if !errors.Is(wrapped, ErrValidation) {
		t.Error("wrapped error should match by code")
	}
	if errors.Is(wrapped, ErrSignalNotFound) {
		t.Error("different codes should not match")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("original")
	wrapped := WrapError(ErrFeedDisconnected, cause)
	if wrapped.Cause != cause {
		t.Error("cause not set")
	}
	if wrapped.Code != ErrFeedDisconnected.Code {
		t.Error("code not preserved")
	}
}
