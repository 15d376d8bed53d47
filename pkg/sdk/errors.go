package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// ErrNoContent is returned when a tool result contains no content items.
var ErrNoContent = errors.New("comesocial: empty tool result")

// ToolError is returned when a tool call returns an error result.
type ToolError struct {
	Tool    string
	Message string

	// Conflict is set when the tool rejected a stale expected version. It
	// carries the draft's current version and state.
	Conflict *outing.ConflictError
}

func newToolError(tool, msg string) *ToolError {
	return &ToolError{Tool: tool, Message: msg, Conflict: parseConflict(msg)}
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("comesocial: tool %s: %s", e.Tool, e.Message)
}

// IsConflict reports whether the tool rejected a stale expected version.
func (e *ToolError) IsConflict() bool {
	return e.Conflict != nil
}

// Unwrap lets errors.Is match outing.ErrConflict.
func (e *ToolError) Unwrap() error {
	if e.Conflict == nil {
		return nil
	}
	return e.Conflict
}

func parseConflict(msg string) *outing.ConflictError {
	i := strings.Index(msg, outing.ConflictDetailPrefix)
	if i < 0 {
		return nil
	}
	var c outing.ConflictError
	if err := json.Unmarshal([]byte(msg[i+len(outing.ConflictDetailPrefix):]), &c); err != nil || c.DraftID == "" {
		return nil
	}
	return &c
}
