package contentflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error kinds. Every error returned by the service wraps exactly one of them.
var (
	// ErrNotFound indicates the referenced resource does not exist or lives in another tenant
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the caller lacks the relationship required for the operation
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition indicates the requested status change is not an edge of the state machine
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidation indicates malformed or cross-referencing-invalid input
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated indicates there is no acting principal
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Specific errors.
var (
	ErrContentNotFound = fmt.Errorf("content %w", ErrNotFound)
	ErrDraftNotFound   = fmt.Errorf("draft %w", ErrNotFound)
	ErrChannelNotFound = fmt.Errorf("channel %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	ErrMetricsNotFound = fmt.Errorf("content metrics %w", ErrNotFound)

	ErrInvalidContentStatus = fmt.Errorf("%w: invalid content status", ErrValidation)
	ErrDraftNotApproved     = fmt.Errorf("%w: draft is not approved", ErrValidation)
	ErrNoEntries            = fmt.Errorf("%w: at least one channel entry is required", ErrValidation)
)

// ContentError represents an error related to content operations
type ContentError struct {
	ContentID uuid.UUID
	Op        string
	Err       error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content operation %s failed for content %s: %v", e.Op, e.ContentID, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// DraftError represents an error related to draft operations
type DraftError struct {
	DraftID uuid.UUID
	Op      string
	Err     error
}

func (e *DraftError) Error() string {
	return fmt.Sprintf("draft operation %s failed for draft %s: %v", e.Op, e.DraftID, e.Err)
}

func (e *DraftError) Unwrap() error {
	return e.Err
}

// TransitionError reports a status change that has no edge in the state machine.
type TransitionError struct {
	From ContentStatus
	To   ContentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ForbiddenError carries the reason an operation was refused.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s: %s", ErrForbidden, e.Reason)
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

func forbidden(reason string) error {
	return &ForbiddenError{Reason: reason}
}

// ValidationError reports an invalid field, optionally with the offending ids.
type ValidationError struct {
	Field  string
	Reason string
	IDs    []uuid.UUID
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
	if len(e.IDs) == 0 {
		return msg
	}
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = id.String()
	}
	return msg + ": " + strings.Join(ids, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
