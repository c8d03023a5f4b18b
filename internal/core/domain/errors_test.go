package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrAlreadyExists", ErrAlreadyExists, "already exists"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrUnknownPredicate", ErrUnknownPredicate, "validation error: predicate not in closed set"},
		{"ErrUnmappedPredicate", ErrUnmappedPredicate, "consistency error: predicate has no mapping to a committed predicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestErrorCategories(t *testing.T) {
	tests := []struct {
		err      error
		category error
	}{
		{ErrEntityTypeChanged, ErrValidation},
		{ErrCoherenceOutOfRange, ErrValidation},
		{ErrInvalidRoutingRule, ErrValidation},
		{ErrUnmappedPredicate, ErrConsistency},
		{ErrDanglingEndpoint, ErrConsistency},
		{ErrRunFinished, ErrConsistency},
	}

	for _, tt := range tests {
		wrapped := fmt.Errorf("op: %w", tt.err)
		if !errors.Is(wrapped, tt.category) {
			t.Errorf("%v should match category %v", tt.err, tt.category)
		}
		if !errors.Is(wrapped, tt.err) {
			t.Errorf("%v should match itself through wrapping", tt.err)
		}
	}

	if errors.Is(ErrUnmappedPredicate, ErrUnknownPredicate) {
		t.Error("distinct sentinels must not match each other")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"collaborator", fmt.Errorf("embed: %w", ErrCollaborator), true},
		{"transaction", fmt.Errorf("write: %w", ErrTransaction), true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"validation", ErrCoherenceOutOfRange, false},
		{"consistency", ErrUnmappedPredicate, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
