package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error          string        `json:"error"`
	Code           string        `json:"code"`
	CurrentVersion *int64        `json:"current_version,omitempty"`
	Draft          *outing.Draft `json:"draft,omitempty"`
}

// statusFor maps a domain error to its HTTP status and code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, outing.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, outing.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, outing.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, outing.ErrInvalidState):
		return http.StatusUnprocessableEntity, "invalid_state"
	case errors.Is(err, outing.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code := statusFor(err)
	body := ErrorBody{Error: err.Error(), Code: code}

	var conflict *outing.ConflictError
	if errors.As(err, &conflict) {
		current := conflict.Current
		body.CurrentVersion = &current
		body.Draft = conflict.Draft
	}
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
