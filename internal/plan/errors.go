package plan

import (
	"errors"
	"fmt"

	"github.com/edudisplej/loopplan/internal/model"
)

// Sentinel errors of the plan engine. Except for persistence failures, every
// rejected operation leaves the plan unchanged.
var (
	// ErrConflictAbort is returned when a candidate block overlaps existing
	// blocks and the caller chose PolicyAbort.
	ErrConflictAbort = errors.New("time block overlaps existing blocks")

	// ErrEmptyPlan rejects publishing a plan with no content anywhere.
	ErrEmptyPlan = errors.New("plan has no content items")

	// ErrGroupNotEditable rejects mutations against a default group.
	ErrGroupNotEditable = errors.New("default group plan is not editable")

	// ErrBlockLocked rejects mutations of a locked time block.
	ErrBlockLocked = errors.New("time block is locked")
)

// ValidationError marks input rejected before any state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvariantViolation marks an operation that would break a plan invariant,
// like deleting the DEFAULT style.
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string {
	return e.Reason
}

// ConflictError carries the overlapping blocks back to the caller so the UI
// can offer the trim/delete/abort choice. Resolution is never silent.
type ConflictError struct {
	Overlaps []model.TimeBlock
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: %d overlapping blocks", ErrConflictAbort, len(e.Overlaps))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflictAbort
}

// PersistenceError wraps cache or network failures; local state is preserved
// so no edit is lost.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
