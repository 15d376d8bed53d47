package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// OpSetFriendStatus is the op carried by friend_status_delta broadcasts.
const OpSetFriendStatus = "set_friend_status"

// FriendStatusUpdate is a participant-initiated status change.
type FriendStatusUpdate struct {
	PlanID        string                  `json:"plan_id"`
	ParticipantID string                  `json:"participant_id"`
	Status        outing.AttendanceStatus `json:"status"`
	ETA           string                  `json:"eta,omitempty"`
	VenueID       string                  `json:"venue_id,omitempty"`
}

// FriendStatusChange is the payload of a friend_status_delta: the new record
// and the recomputed buckets for the stop it concerns.
type FriendStatusChange struct {
	Status     outing.FriendStatus   `json:"status"`
	Attendance outing.StopAttendance `json:"attendance"`
}

// AttendanceService records friend statuses and derives per-stop attendance.
// Buckets are recomputed from the stored statuses on every read and write,
// so there is no second source of truth to keep in sync.
type AttendanceService struct {
	plans     outing.PlanRepository
	statuses  outing.FriendStatusRepository
	locks     *KeyedMutex
	publisher events.Publisher
	opts      options
}

// NewAttendanceService creates an AttendanceService.
func NewAttendanceService(plans outing.PlanRepository, statuses outing.FriendStatusRepository, locks *KeyedMutex, publisher events.Publisher, opts ...Option) *AttendanceService {
	if locks == nil {
		locks = NewKeyedMutex()
	}
	if publisher == nil {
		publisher = &events.Recorder{}
	}
	return &AttendanceService{
		plans:     plans,
		statuses:  statuses,
		locks:     locks,
		publisher: publisher,
		opts:      buildOptions(opts),
	}
}

// SetFriendStatus replaces the participant's status for the plan. Only the
// participant may report its own status.
func (s *AttendanceService) SetFriendStatus(ctx context.Context, u FriendStatusUpdate, actor string) (outing.FriendStatus, error) {
	if !u.Status.IsValid() {
		return outing.FriendStatus{}, fmt.Errorf("%w: unknown status %q", outing.ErrInvalidInput, u.Status)
	}
	if actor != "" && actor != u.ParticipantID {
		return outing.FriendStatus{}, &outing.PermissionError{
			Actor:  actor,
			Role:   outing.RoleGuest,
			Action: OpSetFriendStatus,
			Reason: "a status can only be set by its participant",
		}
	}

	unlock := s.locks.Lock(events.PlanTopic(u.PlanID))
	defer unlock()

	p, err := s.plans.GetPlan(ctx, u.PlanID)
	if err != nil {
		return outing.FriendStatus{}, err
	}
	if !p.HasParticipant(u.ParticipantID) {
		return outing.FriendStatus{}, &outing.PermissionError{
			Actor:  u.ParticipantID,
			Role:   outing.RoleGuest,
			Action: OpSetFriendStatus,
			Reason: "not a plan participant",
		}
	}

	stop := p.CurrentStop()
	if u.VenueID != "" {
		found, ok := p.FindStop(u.VenueID)
		if !ok {
			return outing.FriendStatus{}, fmt.Errorf("%w: venue %q is not a stop of plan %s", outing.ErrInvalidInput, u.VenueID, p.ID)
		}
		stop = found
	}
	venueRef := u.VenueID
	if venueRef == "" {
		venueRef = stop.ID
	}

	fs := outing.FriendStatus{
		PlanID:         p.ID,
		ParticipantID:  u.ParticipantID,
		Status:         u.Status,
		ETA:            strings.TrimSpace(u.ETA),
		LastUpdate:     s.opts.now(),
		CurrentVenueID: venueRef,
	}
	if err := s.statuses.PutFriendStatus(ctx, fs); err != nil {
		return outing.FriendStatus{}, fmt.Errorf("save friend status: %w", err)
	}

	all, err := s.statuses.GetFriendStatuses(ctx, p.ID)
	if err != nil {
		return outing.FriendStatus{}, fmt.Errorf("load friend statuses: %w", err)
	}
	attendance, err := outing.BuildStopAttendance(p, stop.ID, all)
	if err != nil {
		return outing.FriendStatus{}, err
	}

	s.publisher.Publish(ctx, events.NewPlanDelta(events.TypeFriendStatusDelta, p.ID, p.Version, OpSetFriendStatus, u.ParticipantID, FriendStatusChange{
		Status:     fs,
		Attendance: attendance,
	}))
	s.notifyStatus(ctx, p, fs, stop)
	return fs, nil
}

func (s *AttendanceService) notifyStatus(ctx context.Context, p *outing.Plan, fs outing.FriendStatus, stop outing.Stop) {
	if s.opts.notifier == nil {
		return
	}
	others := without(p.ParticipantIDs(), fs.ParticipantID)
	if len(others) == 0 {
		return
	}
	name := displayName(p.Participants, fs.ParticipantID)
	switch fs.Status {
	case outing.AttendanceCheckedIn:
		notify(ctx, s.opts.notifier, s.opts.logger, others,
			fmt.Sprintf("%s checked in at %s", name, stop.VenueName), outing.UrgencyLow)
	case outing.AttendanceLeftEarly:
		notify(ctx, s.opts.notifier, s.opts.logger, others,
			fmt.Sprintf("%s left %s early", name, stop.VenueName), outing.UrgencyNormal)
	}
}

// GetStopAttendance buckets the plan's participants for one stop. stopID may
// be a stop id or a venue id.
func (s *AttendanceService) GetStopAttendance(ctx context.Context, planID, stopID string) (outing.StopAttendance, error) {
	p, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return outing.StopAttendance{}, err
	}
	all, err := s.statuses.GetFriendStatuses(ctx, planID)
	if err != nil {
		return outing.StopAttendance{}, fmt.Errorf("load friend statuses: %w", err)
	}
	return outing.BuildStopAttendance(p, stopID, all)
}

// GetPlanAttendance buckets the plan's participants for every stop.
func (s *AttendanceService) GetPlanAttendance(ctx context.Context, planID string) ([]outing.StopAttendance, error) {
	p, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	all, err := s.statuses.GetFriendStatuses(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("load friend statuses: %w", err)
	}
	return outing.BuildPlanAttendance(p, all), nil
}

// GetFriendStatuses returns the latest status per participant.
func (s *AttendanceService) GetFriendStatuses(ctx context.Context, planID string) (map[string]outing.FriendStatus, error) {
	if _, err := s.plans.GetPlan(ctx, planID); err != nil {
		return nil, err
	}
	return s.statuses.GetFriendStatuses(ctx, planID)
}
