package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

func TestCLIError(t *testing.T) {
	t.Run("Error with cause", func(t *testing.T) {
		cause := errors.New("root cause")
		e := NewCLIError("something failed", "try this", cause)
		if e.Error() != "something failed: root cause" {
			t.Fatalf("unexpected: %s", e.Error())
		}
		if e.ExitCode != 1 {
			t.Fatalf("expected exit code 1, got %d", e.ExitCode)
		}
	})

	t.Run("Error without cause", func(t *testing.T) {
		e := NewCLIError("something failed", "try this", nil)
		if e.Error() != "something failed" {
			t.Fatalf("unexpected: %s", e.Error())
		}
	})

	t.Run("Unwrap returns cause", func(t *testing.T) {
		cause := errors.New("root")
		e := NewCLIError("msg", "", cause)
		if !errors.Is(e, cause) {
			t.Fatal("errors.Is should match wrapped cause")
		}
	})
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantMsg  string
		wantHint string
		wantCLI  bool
	}{
		{
			name: "nil returns nil",
			err:  nil,
		},
		{
			name:     "conflict",
			err:      &outing.ConflictError{DraftID: "d1", Expected: 2, Current: 4},
			wantMsg:  "draft changed underneath you",
			wantHint: "Draft 'd1' is at version 4",
			wantCLI:  true,
		},
		{
			name:     "transition",
			err:      fmt.Errorf("check in: %w", &outing.TransitionError{PlanID: "p1", From: outing.ProgressNotStarted, Event: "check_in"}),
			wantHint: "Plan 'p1' is 'not_started'",
			wantCLI:  true,
		},
		{
			name:     "not found",
			err:      outing.DraftNotFound("d9"),
			wantMsg:  "not found",
			wantHint: "converted drafts",
			wantCLI:  true,
		},
		{
			name:     "permission",
			err:      &outing.PermissionError{Actor: "ana", Role: outing.RoleGuest, Action: "delete_stop"},
			wantMsg:  "not allowed",
			wantHint: "edit policy",
			wantCLI:  true,
		},
		{
			name:    "invalid state",
			err:     fmt.Errorf("convert: %w", outing.ErrInvalidState),
			wantMsg: "not possible right now",
			wantCLI: true,
		},
		{
			name:     "invalid input",
			err:      fmt.Errorf("%w: venue name is required", outing.ErrInvalidInput),
			wantMsg:  "invalid input",
			wantHint: "--help",
			wantCLI:  true,
		},
		{
			name: "unmapped passes through",
			err:  errors.New("disk full"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}

			var cliErr *CLIError
			isCLI := errors.As(got, &cliErr)
			if isCLI != tt.wantCLI {
				t.Fatalf("CLIError = %v, want %v (%v)", isCLI, tt.wantCLI, got)
			}
			if !tt.wantCLI {
				if got != tt.err {
					t.Fatalf("unmapped error should pass through unchanged, got %v", got)
				}
				return
			}
			if tt.wantMsg != "" && cliErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", cliErr.Message, tt.wantMsg)
			}
			if !strings.Contains(cliErr.Hint, tt.wantHint) {
				t.Errorf("hint = %q, want it to contain %q", cliErr.Hint, tt.wantHint)
			}
			if !errors.Is(got, tt.err) {
				t.Error("mapped error should wrap the original")
			}
		})
	}
}

func TestMapError_KeepsCLIError(t *testing.T) {
	orig := NewCLIError("already mapped", "hint", outing.ErrNotFound)
	if got := MapError(orig); got != error(orig) {
		t.Fatalf("MapError rewrapped a CLIError: %v", got)
	}
}
