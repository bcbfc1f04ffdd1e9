package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrOracleValidation, "malformed verdict").
		WithCause(root).
		WithRetryable(true)

	if GetErrorCode(err) != ErrOracleValidation {
		t.Fatalf("expected code %s, got %s", ErrOracleValidation, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("search aborted: %w", Errorf(ErrBudgetExceeded, "limit %d reached", 50))

	if !errors.Is(err, Sentinel(ErrBudgetExceeded)) {
		t.Fatalf("expected wrapped error to match its code")
	}
	if IsCode(err, ErrContextUninitialized) {
		t.Fatalf("expected different code not to match")
	}
	if GetErrorCode(err) != ErrBudgetExceeded {
		t.Fatalf("expected code to be extracted through wrapping, got %q", GetErrorCode(err))
	}
	if IsRetryable(err) {
		t.Fatalf("budget errors are not retryable")
	}
}
