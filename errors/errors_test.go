package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestBenchError_Error(t *testing.T) {
	err := New(ErrCategoryConfig, CodeInvalidRepetitions, "repetitions must be positive")
	expected := "[CONFIG:INVALID_REPETITIONS] repetitions must be positive"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestBenchError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewConnectionError("connect to mysql", cause)
	expected := "[CONNECTION:UNREACHABLE] connect to mysql: connection refused"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestBenchError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := NewLoadError(CodeConstraintViolation, "insert users", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestBenchError_Is(t *testing.T) {
	err1 := NewQueryError(CodeNotFound, "first", nil)
	err2 := NewQueryError(CodeNotFound, "second", nil)
	err3 := NewQueryError(CodeInvalidParams, "different code", nil)

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}
	if !errors.Is(fmt.Errorf("wrapped: %w", err1), err2) {
		t.Error("Is should see through fmt wrapping")
	}
}

func TestGetCategoryAndCode(t *testing.T) {
	err := fmt.Errorf("run q1: %w", NewQueryError(CodeInvalidParams, "empty continent", nil))
	if GetCategory(err) != ErrCategoryQuery {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryQuery)
	}
	if GetCode(err) != CodeInvalidParams {
		t.Errorf("got %q, want %q", GetCode(err), CodeInvalidParams)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-BenchError should return empty category")
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-BenchError should return empty code")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(NewQueryError(CodeNotFound, "no such table", nil)) {
		t.Error("expected not-found query error to be detected")
	}
	if IsNotFound(NewSchemaError("ddl", nil)) {
		t.Error("schema error is not a not-found condition")
	}
}

func TestWithDetails(t *testing.T) {
	err := NewLoadError(CodeInvalidRow, "bad row", nil)
	detailed := err.WithDetails(map[string]interface{}{"entity": "users"})

	if detailed.Details["entity"] != "users" {
		t.Error("WithDetails should set details")
	}
	if err.Details != nil {
		t.Error("WithDetails should not modify original")
	}
}
