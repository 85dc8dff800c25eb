package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrCollision if an item already exists within the store.
	ErrCollision = errors.New("item already exists")

	// ErrConflictingTotalParts if a run's expected part count is set twice with different values.
	ErrConflictingTotalParts = errors.New("conflicting total parts for run")

	// ErrInvalidTotalParts if a run's expected part count is not positive.
	ErrInvalidTotalParts = errors.New("total parts must be at least 1")

	ErrCancelled = errors.New("request has been cancelled")
	ErrNotFound  = errors.New("not found")
)

// ConflictingTotalPartsError wraps ErrConflictingTotalParts with both values.
func ConflictingTotalPartsError(runID string, stored, requested int) error {
	return fmt.Errorf("run '%s' already expects %d parts, got %d: %w", runID, stored, requested, ErrConflictingTotalParts)
}

// ValidateTotalParts is shared by store implementations.
func ValidateTotalParts(total int) error {
	if total < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidTotalParts, total)
	}
	return nil
}
