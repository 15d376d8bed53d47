package outing

import "fmt"

// ProgressState is the plan's shared phase of execution.
type ProgressState string

const (
	ProgressNotStarted ProgressState = "not_started"
	ProgressEnRoute    ProgressState = "en_route"
	ProgressCheckedIn  ProgressState = "checked_in"
	// ProgressMovingToNext only labels the hop between checked_in and the
	// next en_route in broadcasts. It is never persisted.
	ProgressMovingToNext ProgressState = "moving_to_next"
	ProgressCompleted    ProgressState = "completed"
)

// Progress events. EventMoveToNext is resolved to EventAdvance or EventFinish
// depending on whether another stop remains.
const (
	EventStartPlan  = "start_plan"
	EventCheckIn    = "check_in"
	EventMoveToNext = "move_to_next"
	EventAdvance    = "advance"
	EventFinish     = "finish"
	EventEndPlan    = "end_plan"
	EventPingGroup  = "ping_group"
)

// validProgressTransitions maps currentState -> event -> targetState.
var validProgressTransitions = map[ProgressState]map[string]ProgressState{
	ProgressNotStarted: {
		EventStartPlan: ProgressEnRoute,
		EventEndPlan:   ProgressCompleted,
	},
	ProgressEnRoute: {
		EventCheckIn: ProgressCheckedIn,
		EventEndPlan: ProgressCompleted,
	},
	ProgressCheckedIn: {
		EventAdvance: ProgressEnRoute,
		EventFinish:  ProgressCompleted,
		EventEndPlan: ProgressCompleted,
	},
	ProgressCompleted: {},
}

// IsValid returns true if the state can be persisted.
func (s ProgressState) IsValid() bool {
	switch s {
	case ProgressNotStarted, ProgressEnRoute, ProgressCheckedIn, ProgressCompleted:
		return true
	default:
		return false
	}
}

// IsFinal returns true for the terminal state.
func (s ProgressState) IsFinal() bool {
	return s == ProgressCompleted
}

// CanTransitionWith returns true if the event can fire from this state.
func (s ProgressState) CanTransitionWith(event string) bool {
	_, ok := validProgressTransitions[s][event]
	return ok
}

// TransitionWith returns the target state for an event.
func (s ProgressState) TransitionWith(event string) (ProgressState, error) {
	target, ok := validProgressTransitions[s][event]
	if !ok {
		return s, fmt.Errorf("event '%s' not allowed from state '%s'", event, s)
	}
	return target, nil
}

// ValidEvents returns the events accepted from this state in a stable order.
func (s ProgressState) ValidEvents() []string {
	order := []string{EventStartPlan, EventCheckIn, EventAdvance, EventFinish, EventEndPlan}
	var out []string
	for _, ev := range order {
		if s.CanTransitionWith(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// ResolveMoveToNext picks the concrete event behind a moveToNext request.
func ResolveMoveToNext(p *Plan) string {
	if p.HasNextStop() {
		return EventAdvance
	}
	return EventFinish
}
