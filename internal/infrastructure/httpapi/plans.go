package httpapi

import (
	"net/http"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/application"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

type checkInRequest struct {
	StopID string `json:"stop_id"`
}

type pingRequest struct {
	Message string `json:"message"`
}

type friendStatusRequest struct {
	Status  outing.AttendanceStatus `json:"status"`
	ETA     string                  `json:"eta"`
	VenueID string                  `json:"venue_id"`
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Progress.GetPlan(r.Context(), r.PathValue("id"))
	s.respond(w, http.StatusOK, p, err)
}

func (s *Server) handleStartPlan(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	p, err := s.engine.Progress.StartPlan(r.Context(), r.PathValue("id"), actor)
	s.respond(w, http.StatusOK, p, err)
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req checkInRequest
	if err := decode(r, checkInSchema, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	p, err := s.engine.Progress.CheckIn(r.Context(), r.PathValue("id"), req.StopID, actor)
	s.respond(w, http.StatusOK, p, err)
}

func (s *Server) handleMoveToNext(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	p, err := s.engine.Progress.MoveToNext(r.Context(), r.PathValue("id"), actor)
	s.respond(w, http.StatusOK, p, err)
}

func (s *Server) handleEndPlan(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	p, err := s.engine.Progress.EndPlan(r.Context(), r.PathValue("id"), actor)
	s.respond(w, http.StatusOK, p, err)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req pingRequest
	if err := decode(r, pingSchema, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := s.engine.Progress.PingGroup(r.Context(), r.PathValue("id"), actor, req.Message); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleFriendStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req friendStatusRequest
	if err := decode(r, friendStatusSchema, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	fs, err := s.engine.Attendance.SetFriendStatus(r.Context(), application.FriendStatusUpdate{
		PlanID:        r.PathValue("id"),
		ParticipantID: r.PathValue("participantId"),
		Status:        req.Status,
		ETA:           req.ETA,
		VenueID:       req.VenueID,
	}, actor)
	s.respond(w, http.StatusOK, fs, err)
}

func (s *Server) handlePlanAttendance(w http.ResponseWriter, r *http.Request) {
	a, err := s.engine.Attendance.GetPlanAttendance(r.Context(), r.PathValue("id"))
	s.respond(w, http.StatusOK, a, err)
}

func (s *Server) handleStopAttendance(w http.ResponseWriter, r *http.Request) {
	a, err := s.engine.Attendance.GetStopAttendance(r.Context(), r.PathValue("id"), r.PathValue("stopId"))
	s.respond(w, http.StatusOK, a, err)
}
