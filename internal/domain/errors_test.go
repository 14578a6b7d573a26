package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestTypedErrorsUnwrapToSentinels(t *testing.T) {
	cause := errors.New("connection reset")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"validation", NewValidation("title", "is required"), ErrValidation},
		{"conflict", &ConflictError{Attempts: 16}, ErrConflict},
		{"dependency sentinel", NewDependency("json.get", cause), ErrDependency},
		{"dependency cause", NewDependency("json.get", cause), cause},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(fmt.Errorf("wrapped: %w", tc.err), tc.want) {
				t.Errorf("%v does not match %v", tc.err, tc.want)
			}
		})
	}
}

func TestValidationErrorField(t *testing.T) {
	var ve *ValidationError
	if !errors.As(NewValidation("caption", "too long (%d > %d)", 1500, 1400), &ve) {
		t.Fatal("expected *ValidationError")
	}
	if ve.Field != "caption" || ve.Reason != "too long (1500 > 1400)" {
		t.Errorf("unexpected error: %+v", ve)
	}
}

func TestClassify(t *testing.T) {
	if Classify("op", nil) != nil {
		t.Error("nil must stay nil")
	}
	if err := Classify("get item", fmt.Errorf("x: %w", ErrNotFound)); !errors.Is(err, ErrNotFound) || errors.Is(err, ErrDependency) {
		t.Errorf("known sentinel must pass through: %v", err)
	}
	if err := Classify("get item", context.Canceled); errors.Is(err, ErrDependency) {
		t.Errorf("context errors are not dependency failures: %v", err)
	}
	err := Classify("get item", errors.New("i/o timeout"))
	var de *DependencyError
	if !errors.As(err, &de) || de.Op != "get item" {
		t.Errorf("expected dependency error, got %v", err)
	}
}
