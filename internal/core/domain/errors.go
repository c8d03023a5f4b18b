package domain

import (
	"context"
	"errors"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable indicates a collaborator could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Error categories. Every error produced by the pipeline wraps exactly one
// of these so callers can decide on retry and reporting with errors.Is.
var (
	// ErrValidation is rejected before any write and never retried.
	ErrValidation = errors.New("validation error")

	// ErrCollaborator covers embedding and classification failures.
	// Retried with backoff; on exhaustion the unit is marked incomplete.
	ErrCollaborator = errors.New("collaborator error")

	// ErrConsistency is surfaced to the caller, never dropped.
	ErrConsistency = errors.New("consistency error")

	// ErrTransaction means the storage write rolled back.
	ErrTransaction = errors.New("transaction error")
)

// Specific failures, each classified under one category.
var (
	ErrEntityTypeChanged   = Categorize(ErrValidation, "entity_type is immutable")
	ErrUnknownEntityType   = Categorize(ErrValidation, "unknown entity_type")
	ErrUnknownPredicate    = Categorize(ErrValidation, "predicate not in closed set")
	ErrCoherenceOutOfRange = Categorize(ErrValidation, "coherence_score out of range")
	ErrInvalidRoutingRule  = Categorize(ErrValidation, "malformed routing rule")
	ErrUnknownOperation    = Categorize(ErrValidation, "unknown episode operation")
	ErrDimensionMismatch   = Categorize(ErrValidation, "embedding dimension mismatch")

	ErrUnmappedPredicate = Categorize(ErrConsistency, "predicate has no mapping to a committed predicate")
	ErrDanglingEndpoint  = Categorize(ErrConsistency, "edge endpoint does not exist")
	ErrClaimDecided      = Categorize(ErrConsistency, "claim already decided")
	ErrRunFinished       = Categorize(ErrConsistency, "run already in a terminal state")
	ErrEdgeImmutable     = Categorize(ErrConsistency, "committed edge predicate and endpoints are immutable")
	ErrEntityIDCollision = Categorize(ErrConsistency, "entity id derived from another source path")
)

type categorized struct {
	category error
	msg      string
}

func (e *categorized) Error() string { return e.category.Error() + ": " + e.msg }
func (e *categorized) Unwrap() error { return e.category }

// Categorize creates a new sentinel that matches category under errors.Is.
func Categorize(category error, msg string) error {
	return &categorized{category: category, msg: msg}
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrConsistency) || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrCollaborator) ||
		errors.Is(err, ErrTransaction) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}
