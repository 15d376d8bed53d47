package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/application"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

type addStopRequest struct {
	VenueID       string `json:"venue_id"`
	VenueName     string `json:"venue_name"`
	Query         string `json:"query"`
	Notes         string `json:"notes"`
	EstimatedTime int    `json:"estimated_time"`
}

type updateStopRequest struct {
	Field           outing.StopField `json:"field"`
	Value           any              `json:"value"`
	ExpectedVersion *int64           `json:"expected_version"`
}

type reorderRequest struct {
	TargetStopID    string `json:"target_stop_id"`
	ExpectedVersion *int64 `json:"expected_version"`
}

type policyRequest struct {
	AllowAllEdit bool `json:"allow_all_edit"`
}

type editingRequest struct {
	StopID string           `json:"stop_id"`
	Field  outing.StopField `json:"field"`
}

func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var spec outing.DraftSpec
	if err := decode(r, createDraftSchema, &spec); err != nil {
		writeError(w, s.logger, err)
		return
	}
	// The creator hosts the draft.
	if spec.HostID != "" && spec.HostID != actor {
		writeError(w, s.logger, fmt.Errorf("%w: %s may not create a draft hosted by %s", outing.ErrForbidden, actor, spec.HostID))
		return
	}
	spec.HostID = actor
	d, err := s.engine.Lifecycle.CreateDraft(r.Context(), spec)
	s.respond(w, http.StatusCreated, d, err)
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.engine.Lifecycle.GetDraft(r.Context(), r.PathValue("id"))
	s.respond(w, http.StatusOK, d, err)
}

func (s *Server) handleAddStop(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req addStopRequest
	if err := decode(r, addStopSchema, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	var (
		d   *outing.Draft
		err error
	)
	if req.VenueName == "" && req.Query != "" {
		d, err = s.engine.Edits.AddStopFromSearch(r.Context(), r.PathValue("id"), req.Query, req.Notes, req.EstimatedTime, actor)
	} else {
		d, err = s.engine.Edits.AddStop(r.Context(), r.PathValue("id"), application.StopInput{
			VenueID:       req.VenueID,
			VenueName:     req.VenueName,
			Notes:         req.Notes,
			EstimatedTime: req.EstimatedTime,
		}, actor)
	}
	s.respond(w, http.StatusCreated, d, err)
}

func (s *Server) handleUpdateStop(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req updateStopRequest
	if err := decode(r, updateStopSchema, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	value := req.Value
	if n, isNumber := value.(json.Number); isNumber && req.Field != outing.FieldEstimatedTime {
		value = n.String()
	}
	d, err := s.engine.Edits.UpdateStopField(r.Context(), r.PathValue("id"), r.PathValue("stopId"), req.Field, value, actor, req.ExpectedVersion)
	s.respond(w, http.StatusOK, d, err)
}

func (s *Server) handleDeleteStop(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	d, err := s.engine.Edits.DeleteStop(r.Context(), r.PathValue("id"), r.PathValue("stopId"), actor)
	s.respond(w, http.StatusOK, d, err)
}

func (s *Server) handleReorderStop(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req reorderRequest
	if err := decode(r, reorderSchema, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	d, err := s.engine.Edits.ReorderStop(r.Context(), r.PathValue("id"), r.PathValue("stopId"), req.TargetStopID, actor, req.ExpectedVersion)
	s.respond(w, http.StatusOK, d, err)
}

func (s *Server) handleToggleLock(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	d, err := s.engine.Lifecycle.ToggleLock(r.Context(), r.PathValue("id"), actor)
	s.respond(w, http.StatusOK, d, err)
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	d, err := s.engine.Lifecycle.LockDraft(r.Context(), r.PathValue("id"), actor)
	s.respond(w, http.StatusOK, d, err)
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	d, err := s.engine.Lifecycle.UnlockDraft(r.Context(), r.PathValue("id"), actor)
	s.respond(w, http.StatusOK, d, err)
}

func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var sug application.Suggestion
	if err := decode(r, suggestionSchema, &sug); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := s.engine.Edits.ProposeStop(r.Context(), r.PathValue("id"), sug, actor); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleSetPolicy(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req policyRequest
	if err := decode(r, policySchema, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	d, err := s.engine.Edits.SetEditPolicy(r.Context(), r.PathValue("id"), req.AllowAllEdit, actor)
	s.respond(w, http.StatusOK, d, err)
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var p outing.Participant
	if err := decode(r, participantSchema, &p); err != nil {
		writeError(w, s.logger, err)
		return
	}
	d, err := s.engine.Edits.InviteParticipant(r.Context(), r.PathValue("id"), p, actor)
	s.respond(w, http.StatusOK, d, err)
}

func (s *Server) handleRemoveParticipant(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	d, err := s.engine.Edits.RemoveParticipant(r.Context(), r.PathValue("id"), r.PathValue("pid"), actor)
	s.respond(w, http.StatusOK, d, err)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	p, err := s.engine.Lifecycle.ConvertToLivePlan(r.Context(), r.PathValue("id"), actor)
	s.respond(w, http.StatusCreated, p, err)
}

func (s *Server) handlePlanForDraft(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Lifecycle.GetPlanForDraft(r.Context(), r.PathValue("id"))
	s.respond(w, http.StatusOK, p, err)
}

// Presence endpoints never fail the caller; bad input is dropped by the
// tracker.

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	s.engine.Presence.Heartbeat(r.Context(), r.PathValue("id"), actor)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetEditing(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req editingRequest
	if err := decode(r, editingSchema, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.engine.Presence.SetEditingField(r.Context(), r.PathValue("id"), actor, req.StopID, req.Field)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearEditing(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	s.engine.Presence.ClearEditingField(r.Context(), r.PathValue("id"), actor)
	w.WriteHeader(http.StatusNoContent)
}
