package cli

import (
	"errors"
	"fmt"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

func asCLIError(err error, target **CLIError) bool {
	return errors.As(err, target)
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	var conflict *outing.ConflictError
	if errors.As(err, &conflict) {
		return NewCLIError(
			"draft changed underneath you",
			fmt.Sprintf("Draft '%s' is at version %d; reload it and retry", conflict.DraftID, conflict.Current),
			err,
		)
	}

	var transErr *outing.TransitionError
	if errors.As(err, &transErr) {
		return NewCLIError(
			transErr.Error(),
			fmt.Sprintf("Plan '%s' is '%s'; check its state with 'comesocial log --aggregate %s'", transErr.PlanID, transErr.From, transErr.PlanID),
			err,
		)
	}

	switch {
	case errors.Is(err, outing.ErrNotFound):
		return NewCLIError("not found", "Check the id; converted drafts are gone once their plan exists", err)
	case errors.Is(err, outing.ErrForbidden):
		return NewCLIError("not allowed", "Ask the host to change the edit policy or unlock the draft", err)
	case errors.Is(err, outing.ErrInvalidState):
		return NewCLIError("not possible right now", "", err)
	case errors.Is(err, outing.ErrInvalidInput):
		return NewCLIError("invalid input", "Run the command with --help for the expected arguments", err)
	}

	return err
}
