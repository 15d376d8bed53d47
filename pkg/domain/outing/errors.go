package outing

import (
	"errors"
	"fmt"
)

// Domain errors returned synchronously to the calling client.
var (
	// ErrNotFound indicates the draft, plan, stop or participant does not
	// exist. A converted draft also reports ErrNotFound.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates a role or lock violation.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict indicates a mutation was submitted against a stale version.
	ErrConflict = errors.New("version conflict")

	// ErrInvalidState indicates the operation is not valid from the current
	// state, e.g. converting an empty draft or checking in before starting.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidInput indicates a malformed request.
	ErrInvalidInput = errors.New("invalid input")
)

// ConflictError is returned when an expected version does not match the
// draft's current version. Draft holds the authoritative state so the caller
// can merge and retry or discard.
type ConflictError struct {
	DraftID  string `json:"draft_id"`
	Expected int64  `json:"expected_version"`
	Current  int64  `json:"current_version"`
	Draft    *Draft `json:"draft,omitempty"`
}

// ConflictDetailPrefix introduces the JSON form of a ConflictError inside
// a text error message, so remote callers can recover the current draft.
const ConflictDetailPrefix = "conflict detail: "

func (e *ConflictError) Error() string {
	return fmt.Sprintf("draft %s: expected version %d, current version is %d", e.DraftID, e.Expected, e.Current)
}

// Is allows errors.Is to work with ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// PermissionError describes a role or lock violation.
type PermissionError struct {
	Actor  string
	Role   Role
	Action string
	Reason string
}

func (e *PermissionError) Error() string {
	msg := fmt.Sprintf("%s (%s) may not %s", e.Actor, e.Role, e.Action)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is allows errors.Is to work with PermissionError.
func (e *PermissionError) Is(target error) bool {
	return target == ErrForbidden
}

// TransitionError describes a plan progress event that is not valid from the
// plan's current state.
type TransitionError struct {
	PlanID string
	From   ProgressState
	Event  string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("plan %s: cannot %s while %s", e.PlanID, e.Event, e.From)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// Is allows errors.Is to work with TransitionError.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidState
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// DraftNotFound builds the error returned for a missing or converted draft.
func DraftNotFound(id string) error { return notFound("draft", id) }

// PlanNotFound builds the error returned for a missing plan.
func PlanNotFound(id string) error { return notFound("plan", id) }
