package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// PlanChange is the payload of a plan_delta. Phase is set to moving_to_next
// on the hop between a checked-in stop and the next one.
type PlanChange struct {
	Plan    *outing.Plan         `json:"plan"`
	Phase   outing.ProgressState `json:"phase,omitempty"`
	Message string               `json:"message,omitempty"`
}

// ProgressService moves a live plan through its progress states. The plan
// has one shared state; per-participant attendance lives in FriendStatus.
type ProgressService struct {
	plans     outing.PlanRepository
	locks     *KeyedMutex
	publisher events.Publisher
	opts      options
}

// NewProgressService creates a ProgressService.
func NewProgressService(plans outing.PlanRepository, locks *KeyedMutex, publisher events.Publisher, opts ...Option) *ProgressService {
	if locks == nil {
		locks = NewKeyedMutex()
	}
	if publisher == nil {
		publisher = &events.Recorder{}
	}
	return &ProgressService{plans: plans, locks: locks, publisher: publisher, opts: buildOptions(opts)}
}

// GetPlan returns the latest stored plan without taking the plan lock.
func (s *ProgressService) GetPlan(ctx context.Context, planID string) (*outing.Plan, error) {
	return s.plans.GetPlan(ctx, planID)
}

// StartPlan moves a not-started plan to en_route toward its first stop.
func (s *ProgressService) StartPlan(ctx context.Context, planID, actor string) (*outing.Plan, error) {
	return s.transition(ctx, planID, actor, outing.EventStartPlan, func(*outing.Plan) string {
		return outing.EventStartPlan
	}, nil)
}

// CheckIn marks the group as arrived at the current stop. A non-empty
// stopRef (stop id or venue id) must name the current stop.
func (s *ProgressService) CheckIn(ctx context.Context, planID, stopRef, actor string) (*outing.Plan, error) {
	guard := func(p *outing.Plan) func(string, string) bool {
		return func(_, _ string) bool {
			if stopRef == "" {
				return true
			}
			current := p.CurrentStop()
			return stopRef == current.ID || (current.VenueID != "" && stopRef == current.VenueID)
		}
	}
	return s.transition(ctx, planID, actor, outing.EventCheckIn, func(*outing.Plan) string {
		return outing.EventCheckIn
	}, guard)
}

// MoveToNext leaves the current stop. With another stop ahead the plan goes
// back to en_route with the next index; after the last stop it completes.
func (s *ProgressService) MoveToNext(ctx context.Context, planID, actor string) (*outing.Plan, error) {
	return s.transition(ctx, planID, actor, outing.EventMoveToNext, outing.ResolveMoveToNext, nil)
}

// EndPlan completes an active plan from any non-final state.
func (s *ProgressService) EndPlan(ctx context.Context, planID, actor string) (*outing.Plan, error) {
	return s.transition(ctx, planID, actor, outing.EventEndPlan, func(*outing.Plan) string {
		return outing.EventEndPlan
	}, nil)
}

// transition runs one progress event inside the plan's critical section.
// resolve maps the requested event to the machine event; guard, when set,
// builds the check-in guard for the loaded plan.
func (s *ProgressService) transition(ctx context.Context, planID, actor, requested string, resolve func(*outing.Plan) string, guard func(*outing.Plan) func(string, string) bool) (*outing.Plan, error) {
	unlock := s.locks.Lock(events.PlanTopic(planID))
	defer unlock()

	p, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !p.HasParticipant(actor) {
		return nil, &outing.PermissionError{Actor: actor, Role: outing.RoleGuest, Action: requested, Reason: "not a plan participant"}
	}
	if p.IsCompleted() {
		return nil, &outing.TransitionError{PlanID: p.ID, From: p.ProgressState, Event: requested, Reason: "plan is completed"}
	}

	event := resolve(p)
	var g func(string, string) bool
	if guard != nil {
		g = guard(p)
	}
	machine, err := outing.NewProgressMachine(p.ProgressState, p.ID, g)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", p.ID, err)
	}
	if err := machine.Fire(event); err != nil {
		var te *outing.TransitionError
		if errors.As(err, &te) {
			te.Event = requested
			if event == outing.EventCheckIn && te.Reason != "" {
				te.Reason = "check-in must target the current stop"
			}
		}
		return nil, err
	}

	var phase outing.ProgressState
	switch event {
	case outing.EventAdvance:
		p.CurrentStopIndex++
		phase = outing.ProgressMovingToNext
	case outing.EventFinish:
		phase = outing.ProgressMovingToNext
	}
	p.ProgressState = machine.Current()
	if machine.IsFinal() {
		p.Status = outing.PlanCompleted
	}
	p.Touch(s.opts.now())

	if err := s.plans.SavePlan(ctx, p); err != nil {
		return nil, fmt.Errorf("save plan %s: %w", p.ID, err)
	}
	s.publisher.Publish(ctx, events.NewPlanDelta(events.TypePlanDelta, p.ID, p.Version, requested, actor, PlanChange{
		Plan:  p.Clone(),
		Phase: phase,
	}))
	s.opts.logger.Debug("plan progressed",
		"plan_id", p.ID,
		"op", requested,
		"state", string(p.ProgressState),
		"stop_index", p.CurrentStopIndex,
		"version", p.Version,
	)
	return p, nil
}

// PingGroup notifies every other participant without changing state.
func (s *ProgressService) PingGroup(ctx context.Context, planID, actor, message string) error {
	unlock := s.locks.Lock(events.PlanTopic(planID))
	defer unlock()

	p, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	if !p.HasParticipant(actor) {
		return &outing.PermissionError{Actor: actor, Role: outing.RoleGuest, Action: outing.EventPingGroup, Reason: "not a plan participant"}
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = fmt.Sprintf("%s is pinging the group", displayName(p.Participants, actor))
	}

	s.publisher.Publish(ctx, events.NewPlanDelta(events.TypePlanDelta, p.ID, p.Version, outing.EventPingGroup, actor, PlanChange{
		Plan:    p,
		Message: message,
	}))
	if others := without(p.ParticipantIDs(), actor); s.opts.notifier != nil && len(others) > 0 {
		notify(ctx, s.opts.notifier, s.opts.logger, others, message, outing.UrgencyHigh)
	}
	return nil
}
